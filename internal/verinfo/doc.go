// Package verinfo reads the version-information resource (VS_VERSION_INFO)
// embedded in Windows PE executables.
//
// Resolution is a two-step query, mirroring the Win32 API: ask a Reader how
// large the version block is, then fetch it. A size of zero means the binary
// carries no version resource and yields an empty Info rather than an error.
// The block is then decoded by Tokenize into a key/value map and the
// FileVersion and ProductVersion values are validated as dotted numbers.
//
// On Windows the system reader calls GetFileVersionInfoSize and
// GetFileVersionInfo. Elsewhere PEReader walks the resource directory of the
// file with debug/pe, so release builds can be packaged from any host.
package verinfo
