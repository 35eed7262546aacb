//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFindProcessesExcludesSelf ensures the running test binary does not report itself.
func TestFindProcessesExcludesSelf(t *testing.T) {
	t.Parallel()

	self, err := os.Executable()
	require.NoError(t, err)

	pids, err := FindProcesses(filepath.Base(self))
	require.NoError(t, err)
	require.NotContains(t, pids, os.Getpid())
}

// TestFindProcessesUnknown ensures an executable that is not running yields nothing.
func TestFindProcessesUnknown(t *testing.T) {
	t.Parallel()

	pids, err := FindProcesses("hexpack-test-no-such-process.exe")
	require.NoError(t, err)
	require.Empty(t, pids)
}
