// Package version exposes build metadata of the hexpack tool itself.
//
// Version, Commit and BuildTime are injected with -ldflags "-X ..." and keep
// their defaults for local builds. This is unrelated to the version of the
// product being packaged, which is read from its executable by verinfo.
package version
