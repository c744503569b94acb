// Package textutil sanitizes strings for use in temp file names and download
// filenames.
package textutil
