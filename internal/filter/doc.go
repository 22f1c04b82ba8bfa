// Package filter decodes the chunks of filtered datasets.
//
// A [Pipeline] is built from a dataset's filter pipeline message and undoes
// the filters in reverse order. Deflate, shuffle and fletcher32 are
// supported; a pipeline naming any other filter cannot be built.
package filter
