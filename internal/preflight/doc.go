// Package preflight provides readiness checks for the filesystem paths and
// encoder engine filewell depends on.
//
// The CLI "filewell status" command runs RunAll and renders the results;
// "filewell convert" runs it before admitting any files so that a missing
// engine is reported once up front rather than per item.
package preflight
