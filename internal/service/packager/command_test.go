package packager

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/hexpack/internal/config"
	"github.com/oshokin/hexpack/internal/domain/release"
	"github.com/oshokin/hexpack/internal/verinfo"
)

// builtAt is the fixed packaging time used by tests.
var builtAt = time.Date(2026, time.October, 19, 14, 3, 9, 0, time.Local) //nolint:gochecknoglobals // Test fixture.

// testLayout mirrors the default layout in a self-contained tree.
func testLayout() *config.Layout {
	return &config.Layout{
		Product:       "HexEdit",
		ArchivePrefix: "hexedit",
		OutputDir:     "out",
		Executable:    "HexEdit.exe",
		Manifest:      "HexEdit/VERSION.TXT",
		Ignore:        []string{".git", "*.git"},
		Platforms: map[string]config.PlatformLayout{
			"x86":   {BinDir: "bin/x86"},
			"amd64": {BinDir: "bin/amd64"},
		},
		Items: []config.Item{
			{Source: "README.md", Dest: "HexEdit/README.TXT"},
			{Source: "LICENCE.TXT", Dest: "HexEdit/LICENCE.TXT"},
			{Source: "HexEdit.exe", Base: config.BaseBin, Dest: "HexEdit/HexEdit.exe"},
			{Source: "typelib", Dest: "HexEdit/typelib"},
		},
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
}

func newTree(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"README.md":           "# HexEdit",
		"LICENCE.TXT":         "MIT",
		"bin/x86/HexEdit.exe": "MZ x86",
		"typelib/HexEdit.tlb": "tlb",
		"typelib/old.git":     "skip",
		"typelib/.git/HEAD":   "skip",
	})

	return dir
}

func fixedVersion(info verinfo.Info) Resolver {
	return func(path string) (*verinfo.Info, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}

		return &info, nil
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	contents := make(map[string]string, len(reader.File))

	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		contents[f.Name] = string(body)
	}

	return contents
}

// TestRun packages a tree and checks artifact name, entries, manifest and summary.
func TestRun(t *testing.T) {
	t.Parallel()

	dir := newTree(t)

	result, err := Run(context.Background(), &Options{
		Platform: release.PlatformX86,
		WorkDir:  dir,
		Layout:   testLayout(),
		Resolver: fixedVersion(verinfo.Info{FileVersion: "2.5.1.0", ProductVersion: "2.5.0.0"}),
		Now:      func() time.Time { return builtAt },
	})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "out", "hexedit-x86-2.5.1.0.zip"), result.Path)
	require.Equal(t, "2.5.1.0", result.Version.FileVersion)
	require.Equal(t, []string{
		"HexEdit/README.TXT",
		"HexEdit/LICENCE.TXT",
		"HexEdit/HexEdit.exe",
		"HexEdit/typelib/HexEdit.tlb",
		"HexEdit/VERSION.TXT",
	}, result.Entries)

	require.Equal(t, map[string]string{
		"HexEdit/README.TXT":          "# HexEdit",
		"HexEdit/LICENCE.TXT":         "MIT",
		"HexEdit/HexEdit.exe":         "MZ x86",
		"HexEdit/typelib/HexEdit.tlb": "tlb",
		"HexEdit/VERSION.TXT": "HexEdit:  2.5.1.0\r\n" +
			"Platform: x86\r\n" +
			"Built:    2026/10/19 14:03:09\r\n",
	}, readZip(t, result.Path))

	raw, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	require.Equal(t, int64(len(raw)), result.Size)
	require.Equal(t, digest.FromBytes(raw), result.Digest)
}

// TestRunWithoutFileVersion verifies an absent version degrades to an empty name segment.
func TestRunWithoutFileVersion(t *testing.T) {
	t.Parallel()

	dir := newTree(t)

	result, err := Run(context.Background(), &Options{
		Platform: release.PlatformX86,
		WorkDir:  dir,
		Layout:   testLayout(),
		Resolver: fixedVersion(verinfo.Info{}),
		Now:      func() time.Time { return builtAt },
	})
	require.NoError(t, err)
	require.Equal(t, "hexedit-x86-.zip", filepath.Base(result.Path))
	require.Contains(t, readZip(t, result.Path)["HexEdit/VERSION.TXT"], "HexEdit:  \r\n")
}

// TestRunUnknownPlatform verifies nothing is written for a platform missing from the layout.
func TestRunUnknownPlatform(t *testing.T) {
	t.Parallel()

	dir := newTree(t)

	for _, platform := range []release.Platform{release.PlatformUnknown, release.PlatformAMD64} {
		layout := testLayout()
		delete(layout.Platforms, "amd64")

		_, err := Run(context.Background(), &Options{
			Platform: platform,
			WorkDir:  dir,
			Layout:   layout,
			Resolver: fixedVersion(verinfo.Info{FileVersion: "1.0"}),
		})
		require.ErrorIs(t, err, config.ErrUnknownPlatform)
	}

	_, err := os.Stat(filepath.Join(dir, "out"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestRunMissingExecutable verifies a missing build aborts before the output directory is touched.
func TestRunMissingExecutable(t *testing.T) {
	t.Parallel()

	dir := newTree(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "bin", "x86", "HexEdit.exe")))

	_, err := Run(context.Background(), &Options{
		Platform: release.PlatformX86,
		WorkDir:  dir,
		Layout:   testLayout(),
		Resolver: func(path string) (*verinfo.Info, error) {
			return verinfo.ResolveWith(verinfo.PEReader{}, path)
		},
	})
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = os.Stat(filepath.Join(dir, "out"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestRunDecodeError verifies a malformed version resource is fatal.
func TestRunDecodeError(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), &Options{
		Platform: release.PlatformX86,
		WorkDir:  newTree(t),
		Layout:   testLayout(),
		Resolver: func(string) (*verinfo.Info, error) {
			return nil, verinfo.ErrDecode
		},
	})
	require.ErrorIs(t, err, verinfo.ErrDecode)
}

// TestRunMissingItemLeavesNoArtifact verifies a failed run discards the partial archive.
func TestRunMissingItemLeavesNoArtifact(t *testing.T) {
	t.Parallel()

	dir := newTree(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "LICENCE.TXT")))

	_, err := Run(context.Background(), &Options{
		Platform: release.PlatformX86,
		WorkDir:  dir,
		Layout:   testLayout(),
		Resolver: fixedVersion(verinfo.Info{FileVersion: "2.5.1.0"}),
	})
	require.ErrorIs(t, err, fs.ErrNotExist)

	leftovers, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

// TestRunReplacesPreviousArtifact verifies a rerun rewrites the archive from scratch.
func TestRunReplacesPreviousArtifact(t *testing.T) {
	t.Parallel()

	dir := newTree(t)
	opts := &Options{
		Platform: release.PlatformX86,
		WorkDir:  dir,
		Layout:   testLayout(),
		Resolver: fixedVersion(verinfo.Info{FileVersion: "2.5.1.0"}),
		Now:      func() time.Time { return builtAt },
	}

	first, err := Run(context.Background(), opts)
	require.NoError(t, err)

	writeFiles(t, dir, map[string]string{"README.md": "# HexEdit, second edition"})

	opts.Layout = testLayout()

	second, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, first.Path, second.Path)
	require.Equal(t, first.Entries, second.Entries)

	contents := readZip(t, second.Path)
	require.Equal(t, "# HexEdit, second edition", contents["HexEdit/README.TXT"])
	require.Len(t, contents, len(second.Entries))
}

// TestRunCanceled verifies a canceled context aborts the run without an artifact.
func TestRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := newTree(t)

	_, err := Run(ctx, &Options{
		Platform: release.PlatformX86,
		WorkDir:  dir,
		Layout:   testLayout(),
		Resolver: fixedVersion(verinfo.Info{FileVersion: "2.5.1.0"}),
	})
	require.True(t, errors.Is(err, context.Canceled))

	leftovers, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}
