// Package packager is the build driver: it packages one platform build of
// the product into a versioned zip archive.
//
// A run resolves the file version of the platform's executable, creates
// <output_dir>/<prefix>-<platform>-<version>.zip, adds the layout items in
// declaration order through the ignore set, appends the generated
// VERSION.TXT manifest and reports the artifact's size and digest. Any
// failure discards the archive being written.
package packager
