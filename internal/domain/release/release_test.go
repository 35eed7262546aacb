package release

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParsePlatform verifies known selectors round-trip and unknown ones are rejected.
func TestParsePlatform(t *testing.T) {
	t.Parallel()

	for _, p := range Platforms() {
		got, ok := ParsePlatform(p.String())
		require.True(t, ok)
		require.Equal(t, p, got)
	}

	for _, s := range []string{"", "X86", "arm64", "unknown"} {
		got, ok := ParsePlatform(s)
		require.False(t, ok, s)
		require.Equal(t, PlatformUnknown, got)
	}
}

// TestUsage checks the usage line lists selectors in a stable order.
func TestUsage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Usage: hexpack <amd64|x86>", Usage("hexpack"))
}

// TestArtifactName covers present and absent file versions.
func TestArtifactName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hexedit-x86-2.5.1.0.zip", ArtifactName("hexedit", PlatformX86, "2.5.1.0"))
	require.Equal(t, "hexedit-amd64-.zip", ArtifactName("hexedit", PlatformAMD64, ""))
}

// TestBuildInfoWriteTo verifies the manifest layout and CR-LF line endings.
func TestBuildInfoWriteTo(t *testing.T) {
	t.Parallel()

	info := &BuildInfo{
		Product:  "HexEdit",
		Version:  "2.5.1.0",
		Platform: PlatformX86,
		Built:    time.Date(2026, time.March, 4, 5, 6, 7, 0, time.Local),
	}

	var sb strings.Builder

	n, err := info.WriteTo(&sb)
	require.NoError(t, err)
	require.Equal(t, int64(sb.Len()), n)
	require.Equal(t,
		"HexEdit:  2.5.1.0\r\n"+
			"Platform: x86\r\n"+
			"Built:    2026/03/04 05:06:07\r\n",
		sb.String())
}
