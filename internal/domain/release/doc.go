// Package release contains the core domain types of a packaging run.
//
// It defines Platform (the build target selected on the command line),
// the artifact naming convention and BuildInfo, which renders the
// VERSION.TXT manifest shipped inside every archive.
package release
