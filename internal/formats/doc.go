// Package formats is the static registry of conversion targets.
//
// Every supported format is one row of data: its key, display label,
// category, canonical content type and extension, the content-type and
// extension hints used to recognise it on input, and its encode preset.
// Adding a format is a matter of adding a row; nothing else branches on
// format keys.
package formats
