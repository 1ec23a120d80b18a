// Package label builds the debug labels attached to GPU objects.
package label

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title capitalizes every word of name, e.g. "gaussian blur" becomes
// "Gaussian Blur". A Caser is not safe for concurrent use, so each call
// builds its own.
func Title(name string) string {
	return cases.Title(language.English, cases.NoLower).String(name)
}

// Pipeline returns the label of the pipeline running a program.
func Pipeline(name string) string {
	return Title(name) + " pipeline"
}

// Pass returns the label of a compute pass or command encoder.
func Pass(name string) string {
	return Title(name) + " pass"
}

// Surface returns the label of a texture holding an image.
func Surface(name string) string {
	return Title(name) + " texture"
}

// Buffer returns the label of a buffer.
func Buffer(name string) string {
	return Title(name) + " buffer"
}
