// Package textutil sanitizes user-supplied file names before they reach the
// filesystem or an engine command line.
package textutil
