// Package services defines shared utilities consumed by the conversion store,
// the dispatch engine, and the encoder resource.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs and engine invocation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the conversion error taxonomy (NoTargetSelected, EncodeFailed, ...).
//
// Use these helpers when wiring new conversion paths so failures surface to
// items with consistent diagnostics.
package services
