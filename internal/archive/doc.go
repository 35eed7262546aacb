// Package archive assembles release zip files.
//
// A Writer is filled with files and directory trees from disk (AddPath) and
// with generated text (AddGenerated). Every entry gets an explicit
// destination path inside the archive; directories are walked recursively
// and only their files become entries. An IgnoreSet filters candidates by
// destination path.
//
// The archive is written to a temporary file next to the destination and
// renamed over it by Close, so a failed run never leaves a truncated
// artifact behind and never damages the previous one.
package archive
