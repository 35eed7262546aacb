package release

import (
	"io"
	"time"
)

const (
	// ArchiveExt is the extension of every produced artifact.
	ArchiveExt = ".zip"

	// TimestampLayout formats the Built line of the manifest as YYYY/MM/DD HH:MM:SS.
	TimestampLayout = "2006/01/02 15:04:05"

	// manifestLabelWidth aligns the values of the manifest lines.
	manifestLabelWidth = 10
)

// ArtifactName returns "<prefix>-<platform>-<version>.zip".
// An empty version is kept as is, producing "<prefix>-<platform>-.zip".
func ArtifactName(prefix string, platform Platform, version string) string {
	return prefix + "-" + platform.String() + "-" + version + ArchiveExt
}

// BuildInfo describes one packaged build and renders the VERSION.TXT manifest.
type BuildInfo struct {
	// Product is the product label written on the first line, e.g. "HexEdit".
	Product string
	// Version is the file version read from the executable; may be empty.
	Version string
	// Platform is the packaged build target.
	Platform Platform
	// Built is the packaging time.
	Built time.Time
}

// WriteTo writes the three manifest lines, each terminated by "\r\n".
func (b *BuildInfo) WriteTo(w io.Writer) (int64, error) {
	var total int64

	lines := [][2]string{
		{b.Product + ":", b.Version},
		{"Platform:", b.Platform.String()},
		{"Built:", b.Built.Format(TimestampLayout)},
	}

	for _, line := range lines {
		n, err := io.WriteString(w, padLabel(line[0])+line[1]+"\r\n")
		total += int64(n)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func padLabel(label string) string {
	for len(label) < manifestLabelWidth {
		label += " "
	}

	return label
}
