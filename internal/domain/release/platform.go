package release

import (
	"sort"
	"strings"
)

// Platform identifies a build target of the packaged application.
type Platform uint8

const (
	// PlatformUnknown is the zero value and never selects a build.
	PlatformUnknown Platform = iota
	// PlatformX86 is the 32-bit Windows build.
	PlatformX86
	// PlatformAMD64 is the 64-bit Windows build.
	PlatformAMD64
)

//nolint:gochecknoglobals // Read-only lookup table.
var platformNames = map[Platform]string{
	PlatformX86:   "x86",
	PlatformAMD64: "amd64",
}

// String returns the selector used on the command line and in artifact names.
func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}

	return "unknown"
}

// ParsePlatform maps a command-line selector to a Platform.
// Matching is exact: "X86" is not a valid selector.
func ParsePlatform(s string) (Platform, bool) {
	for p, name := range platformNames {
		if name == s {
			return p, true
		}
	}

	return PlatformUnknown, false
}

// Platforms returns every known platform ordered by selector name.
func Platforms() []Platform {
	platforms := make([]Platform, 0, len(platformNames))
	for p := range platformNames {
		platforms = append(platforms, p)
	}

	sort.Slice(platforms, func(i, j int) bool {
		return platforms[i].String() < platforms[j].String()
	})

	return platforms
}

// Usage returns the one-line usage text listing every selector.
func Usage(program string) string {
	names := make([]string, 0, len(platformNames))
	for _, p := range Platforms() {
		names = append(names, p.String())
	}

	return "Usage: " + program + " <" + strings.Join(names, "|") + ">"
}
