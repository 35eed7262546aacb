package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/hexpack/internal/logger"
)

// DefaultFileMode is the permission of a finished archive.
const DefaultFileMode os.FileMode = 0o644

// ErrClosed is returned when a Writer is used after Close or Abort.
var ErrClosed = errors.New("archive is closed")

// Writer builds one zip archive. It is not safe for concurrent use.
type Writer struct {
	// path is the final location of the archive.
	path string
	// file is the temporary file the archive is written to.
	file *os.File
	zw   *zip.Writer
	// self holds files that must never become entries: the temporary file and
	// a previous artifact at path.
	self []os.FileInfo
	// entries lists destination paths in write order.
	entries []string
	// closed is set once no more entries may be added.
	closed bool
	// settled is set once the temporary file was renamed or removed.
	settled bool
}

// Create starts a new archive that will replace the file at path on Close.
// The directory of path must exist and be writable.
func Create(ctx context.Context, path string) (*Writer, error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}

	w := &Writer{
		path: path,
		file: file,
		zw:   zip.NewWriter(file),
	}

	if info, err := file.Stat(); err == nil {
		w.self = append(w.self, info)
	}

	if info, err := os.Stat(path); err == nil {
		logger.DebugKV(ctx, "Existing archive will be replaced", "path", path)

		w.self = append(w.self, info)
	}

	return w, nil
}

// Path returns the final location of the archive.
func (w *Writer) Path() string {
	return w.path
}

// Entries returns the destination paths written so far, in order.
func (w *Writer) Entries() []string {
	return append([]string(nil), w.entries...)
}

// AddPath adds the file or directory tree at source.
//
// A file is stored at destRoot. For a directory, every file beneath it at any
// depth is stored at destRoot joined with its path relative to source;
// directories themselves are not stored. Candidates whose destination
// matches ignore are skipped, and so is the archive itself.
func (w *Writer) AddPath(ctx context.Context, source, destRoot string, ignore *IgnoreSet) error {
	if w.closed {
		return ErrClosed
	}

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("add %s: %w", source, err)
	}

	if !info.IsDir() {
		return w.addFile(ctx, source, info, destRoot, ignore)
	}

	err = filepath.WalkDir(source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}

		// Stat follows symlinks so linked files are stored by content.
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}

		if fi.IsDir() {
			return nil
		}

		return w.addFile(ctx, p, fi, path.Join(destRoot, filepath.ToSlash(rel)), ignore)
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", source, err)
	}

	return nil
}

// AddGenerated stores the output of fill at dest.
func (w *Writer) AddGenerated(ctx context.Context, dest string, fill func(io.Writer) error) error {
	if w.closed {
		return ErrClosed
	}

	//nolint:exhaustruct // Remaining header fields are computed by the zip writer.
	header := &zip.FileHeader{
		Name:     dest,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	header.SetMode(DefaultFileMode)

	logger.Infof(ctx, "Adding:    %s", dest)

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", dest, err)
	}

	if err = fill(dst); err != nil {
		return fmt.Errorf("write entry %s: %w", dest, err)
	}

	w.entries = append(w.entries, dest)

	return nil
}

// Close finalizes the archive and moves it to its destination.
// On failure the temporary file is removed and the destination is untouched.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}

	w.closed = true

	if err := w.finish(); err != nil {
		_ = w.Abort()

		return err
	}

	w.settled = true

	return nil
}

func (w *Writer) finish() error {
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	if err := w.file.Chmod(DefaultFileMode); err != nil {
		return fmt.Errorf("chmod archive: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := os.Rename(w.file.Name(), w.path); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}

	return nil
}

// Abort discards the archive. It is a no-op after a successful Close.
func (w *Writer) Abort() error {
	w.closed = true

	if w.settled {
		return nil
	}

	w.settled = true

	// The file may already be closed by a failed finish.
	_ = w.file.Close()

	if err := os.Remove(w.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove temporary archive: %w", err)
	}

	return nil
}

func (w *Writer) addFile(ctx context.Context, source string, info os.FileInfo, dest string, ignore *IgnoreSet) error {
	if w.isSelf(info) {
		logger.DebugKV(ctx, "Skipping the archive itself", "path", source)

		return nil
	}

	ignored, err := ignore.Match(dest)
	if err != nil {
		return err
	}

	if ignored {
		logger.Debugf(ctx, "Ignored:   %s", dest)

		return nil
	}

	if !info.Mode().IsRegular() {
		logger.WarnKV(ctx, "Skipping non-regular file", "path", source, "mode", info.Mode().String())

		return nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", source, err)
	}

	header.Name = dest
	header.Method = zip.Deflate

	logger.Infof(ctx, "Adding:    %s", dest)

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", dest, err)
	}

	src, err := os.Open(source) //nolint:gosec // Sources come from the packaging layout.
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", source, err)
	}

	w.entries = append(w.entries, dest)

	return nil
}

func (w *Writer) isSelf(info os.FileInfo) bool {
	for _, self := range w.self {
		if os.SameFile(self, info) {
			return true
		}
	}

	return false
}
