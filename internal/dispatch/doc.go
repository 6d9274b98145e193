// Package dispatch routes a single conversion to the right strategy.
//
// Images are decoded and re-encoded in process; every invocation owns its
// own raster and runs without coordination. Audio and video go through the
// shared encoder engine, one invocation at a time, under working names that
// are unique to the invocation. A corruption failure poisons the engine and
// is retried exactly once against a fresh instance.
package dispatch
