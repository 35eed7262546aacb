package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/hexpack/internal/domain/release"
)

// Base selects what an item's source path is relative to.
type Base string

const (
	// BaseRoot resolves the source against the working directory.
	BaseRoot Base = "root"
	// BaseBin resolves the source against the platform's build output directory.
	BaseBin Base = "bin"
)

// Layout describes how a release archive is put together.
type Layout struct {
	// Product is the product label written into the manifest.
	Product string `yaml:"product"`
	// ArchivePrefix starts every artifact name, e.g. "hexedit".
	ArchivePrefix string `yaml:"archive_prefix"`
	// OutputDir receives the artifacts and is created when missing.
	OutputDir string `yaml:"output_dir"`
	// Executable is the file name of the binary inside each platform's BinDir.
	Executable string `yaml:"executable"`
	// Manifest is the archive path of the generated VERSION.TXT entry.
	Manifest string `yaml:"manifest"`
	// Ignore lists glob patterns excluded from the archive.
	Ignore []string `yaml:"ignore"`
	// Platforms maps selector names to their build output conventions.
	Platforms map[string]PlatformLayout `yaml:"platforms"`
	// Items are added to the archive in this order.
	Items []Item `yaml:"items"`
}

// PlatformLayout is the build output convention of one platform.
type PlatformLayout struct {
	// BinDir holds the built executable.
	BinDir string `yaml:"bin_dir"`
}

// Item maps a source file or directory to its destination inside the archive.
type Item struct {
	// Source is a file or directory path, relative to Base.
	Source string `yaml:"source"`
	// Base selects the directory Source is relative to; defaults to BaseRoot.
	Base Base `yaml:"base"`
	// Dest is the slash-separated destination path inside the archive.
	Dest string `yaml:"dest"`
}

var (
	// ErrUnknownPlatform is returned for a platform without a layout entry.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrInvalidLayout is returned when a layout fails validation.
	ErrInvalidLayout = errors.New("invalid layout")
)

//go:embed layout.yaml
var defaultLayout []byte

// Default decodes the compiled-in layout.
func Default() (*Layout, error) {
	return Parse(defaultLayout)
}

// Parse decodes and validates a YAML layout document.
func Parse(contents []byte) (*Layout, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)

	var layout Layout
	if err := decoder.Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}

	if err := Validate(&layout); err != nil {
		return nil, err
	}

	return &layout, nil
}

// Validate checks required fields and fills in defaults.
func Validate(layout *Layout) error {
	if layout == nil {
		return fmt.Errorf("%w: layout is not set", ErrInvalidLayout)
	}

	switch {
	case layout.Product == "":
		return fmt.Errorf("%w: product must be provided", ErrInvalidLayout)
	case layout.ArchivePrefix == "":
		return fmt.Errorf("%w: archive prefix must be provided", ErrInvalidLayout)
	case layout.Executable == "":
		return fmt.Errorf("%w: executable must be provided", ErrInvalidLayout)
	case len(layout.Platforms) == 0:
		return fmt.Errorf("%w: no platforms defined", ErrInvalidLayout)
	}

	if layout.OutputDir == "" {
		layout.OutputDir = "out"
	}

	for name := range layout.Platforms {
		if _, ok := release.ParsePlatform(name); !ok {
			return fmt.Errorf("%w: platform %q is not supported", ErrInvalidLayout, name)
		}
	}

	seen := make(map[string]struct{}, len(layout.Items)+1)

	if layout.Manifest != "" {
		if err := checkDest(layout.Manifest); err != nil {
			return err
		}

		seen[layout.Manifest] = struct{}{}
	}

	for i := range layout.Items {
		item := &layout.Items[i]

		switch item.Base {
		case "":
			item.Base = BaseRoot
		case BaseRoot, BaseBin:
		default:
			return fmt.Errorf("%w: item %q has unknown base %q", ErrInvalidLayout, item.Source, item.Base)
		}

		if item.Source == "" {
			return fmt.Errorf("%w: item %d has no source", ErrInvalidLayout, i)
		}

		if err := checkDest(item.Dest); err != nil {
			return err
		}

		// Two items with one destination would produce duplicate archive entries.
		if _, dup := seen[item.Dest]; dup {
			return fmt.Errorf("%w: destination %q is used twice", ErrInvalidLayout, item.Dest)
		}

		seen[item.Dest] = struct{}{}
	}

	return nil
}

// Platform returns the layout of p.
func (l *Layout) Platform(p release.Platform) (PlatformLayout, error) {
	pl, ok := l.Platforms[p.String()]
	if !ok {
		return PlatformLayout{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, p)
	}

	return pl, nil
}

// SourcePath resolves an item's source against workDir and the platform layout.
func (pl PlatformLayout) SourcePath(workDir string, item Item) string {
	if item.Base == BaseBin {
		return filepath.Join(workDir, filepath.FromSlash(pl.BinDir), filepath.FromSlash(item.Source))
	}

	return filepath.Join(workDir, filepath.FromSlash(item.Source))
}

// ExecutablePath returns the path of the platform's built executable.
func (l *Layout) ExecutablePath(workDir string, pl PlatformLayout) string {
	return filepath.Join(workDir, filepath.FromSlash(pl.BinDir), l.Executable)
}

func checkDest(dest string) error {
	if dest == "" {
		return fmt.Errorf("%w: empty destination", ErrInvalidLayout)
	}

	if path.IsAbs(dest) || strings.Contains(dest, `\`) || path.Clean(dest) != dest ||
		dest == ".." || strings.HasPrefix(dest, "../") {
		return fmt.Errorf("%w: destination %q must be a clean relative slash path", ErrInvalidLayout, dest)
	}

	return nil
}
