// Package main hosts the filewell CLI entrypoint and command graph.
//
// Commands admit local files into a conversion store, list the formats each
// file can become, run conversions through the shared encoder engine, and
// write results next to the configured output directory. Configuration and
// logging are resolved once per invocation in commandContext so subcommands
// only deal with their own flags and output.
package main
