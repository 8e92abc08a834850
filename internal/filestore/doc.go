// Package filestore provides the write discipline shared by the flat-file
// stores: a per-path in-process mutex, an advisory flock on "<path>.lock",
// atomic temp-file-and-rename writes, and a bounded retry on busy resources.
package filestore
