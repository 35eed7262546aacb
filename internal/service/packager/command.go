package packager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/oshokin/hexpack/internal/archive"
	"github.com/oshokin/hexpack/internal/config"
	"github.com/oshokin/hexpack/internal/domain/release"
	"github.com/oshokin/hexpack/internal/logger"
	"github.com/oshokin/hexpack/internal/service/common"
	"github.com/oshokin/hexpack/internal/verinfo"

	// Ensure SHA256 is available for the artifact digest.
	_ "crypto/sha256"
)

const (
	// separatorWidth is the width of the line printed before packaging starts.
	separatorWidth = 80

	// outputDirMode is used when creating the output directory.
	outputDirMode os.FileMode = 0o755
)

// Resolver reads the version information of an executable.
type Resolver func(path string) (*verinfo.Info, error)

// Options contains inputs for the packager entry point.
type Options struct {
	// Platform selects the build to package.
	Platform release.Platform
	// WorkDir is the directory layout paths are relative to (defaults to ".").
	WorkDir string
	// Layout overrides the compiled-in layout.
	Layout *config.Layout
	// Resolver overrides verinfo.Resolve.
	Resolver Resolver
	// Now overrides time.Now for the Built line of the manifest.
	Now func() time.Time
}

// Result describes a finished artifact.
type Result struct {
	// Path is the location of the archive.
	Path string
	// Size is the archive size in bytes.
	Size int64
	// Digest is the sha256 digest of the archive.
	Digest digest.Digest
	// Version is what was read from the executable.
	Version verinfo.Info
	// Entries lists the archive entries in write order.
	Entries []string
	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// packager holds the resolved settings of one run.
// It is unexported; callers use Run.
type packager struct {
	layout   *config.Layout
	platform release.Platform
	target   config.PlatformLayout
	workDir  string
	ignore   *archive.IgnoreSet
	resolve  Resolver
	now      func() time.Time
}

// Run packages the platform selected in opts.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "hexpack")

	pkg, err := newPackager(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize packager: %w", err)
	}

	result, err := pkg.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Packaging failed", "platform", opts.Platform.String(), "error", err)

		return nil, fmt.Errorf("package %s: %w", opts.Platform, err)
	}

	return result, nil
}

// newPackager applies defaults and validates the platform against the layout.
func newPackager(opts *Options) (*packager, error) {
	layout := opts.Layout
	if layout == nil {
		var err error

		layout, err = config.Default()
		if err != nil {
			return nil, err
		}
	} else if err := config.Validate(layout); err != nil {
		return nil, err
	}

	target, err := layout.Platform(opts.Platform)
	if err != nil {
		return nil, err
	}

	ignore, err := archive.NewIgnoreSet(layout.Ignore...)
	if err != nil {
		return nil, err
	}

	pkg := &packager{
		layout:   layout,
		platform: opts.Platform,
		target:   target,
		workDir:  opts.WorkDir,
		ignore:   ignore,
		resolve:  opts.Resolver,
		now:      opts.Now,
	}

	if pkg.workDir == "" {
		pkg.workDir = "."
	}

	if pkg.resolve == nil {
		pkg.resolve = verinfo.Resolve
	}

	if pkg.now == nil {
		pkg.now = time.Now
	}

	return pkg, nil
}

// Run resolves the version, writes the archive and reports the result.
func (p *packager) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	executable := p.layout.ExecutablePath(p.workDir, p.target)

	info, err := p.resolve(executable)
	if err != nil {
		return nil, fmt.Errorf("resolve version: %w", err)
	}

	logger.Info(ctx, strings.Repeat("-", separatorWidth))
	logger.Infof(ctx, "Packaging: %s - version %s", executable, info.FileVersion)

	if info.FileVersion == "" {
		logger.WarnKV(ctx, "Executable has no file version, the artifact name will lack it", "path", executable)
	}

	if info.ProductVersion != "" && info.ProductVersion != info.FileVersion {
		logger.InfoKV(ctx, "Product version differs from file version", "product_version", info.ProductVersion)
	}

	p.warnIfRunning(ctx)

	outDir := filepath.Join(p.workDir, p.layout.OutputDir)
	if err = os.MkdirAll(outDir, outputDirMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	target := filepath.Join(outDir, release.ArtifactName(p.layout.ArchivePrefix, p.platform, info.FileVersion))

	writer, err := archive.Create(ctx, target)
	if err != nil {
		return nil, err
	}

	if err = p.fill(ctx, writer, info); err != nil {
		_ = writer.Abort()

		return nil, err
	}

	if err = writer.Close(); err != nil {
		return nil, err
	}

	result, err := summarize(target)
	if err != nil {
		return nil, err
	}

	result.Version = *info
	result.Entries = writer.Entries()
	result.Elapsed = time.Since(started)

	logger.Info(ctx, "")
	logger.Infof(ctx, "Done:      %s", result.Path)
	logger.Infof(ctx, "           %d bytes", result.Size)
	logger.InfoKV(ctx, "Archive written",
		"entries", len(result.Entries), "digest", result.Digest.String(), "elapsed", result.Elapsed)

	return result, nil
}

// fill adds the layout items and the generated manifest in declaration order.
func (p *packager) fill(ctx context.Context, writer *archive.Writer, info *verinfo.Info) error {
	for _, item := range p.layout.Items {
		if err := ctx.Err(); err != nil {
			return err
		}

		source := p.target.SourcePath(p.workDir, item)
		if err := writer.AddPath(ctx, source, item.Dest, p.ignore); err != nil {
			return err
		}
	}

	if p.layout.Manifest == "" {
		return nil
	}

	build := &release.BuildInfo{
		Product:  p.layout.Product,
		Version:  info.FileVersion,
		Platform: p.platform,
		Built:    p.now(),
	}

	return writer.AddGenerated(ctx, p.layout.Manifest, func(out io.Writer) error {
		_, err := build.WriteTo(out)

		return err
	})
}

// warnIfRunning logs a warning when the executable is running; the build
// output may then be locked or mid-rebuild. Failing to list processes is not fatal.
func (p *packager) warnIfRunning(ctx context.Context) {
	pids, err := common.FindProcesses(p.layout.Executable)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)

		return
	}

	if len(pids) > 0 {
		logger.WarnKV(ctx, "Executable is running while being packaged", "name", p.layout.Executable, "pids", pids)
	}
}

// summarize stats the finished archive and computes its digest.
func summarize(path string) (*Result, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	dgst, err := digest.FromReader(file)
	if err != nil {
		return nil, fmt.Errorf("digest archive: %w", err)
	}

	return &Result{
		Path:   path,
		Size:   stat.Size(),
		Digest: dgst,
	}, nil
}
