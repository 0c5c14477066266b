package dataset

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// sourceFile is one CSV stream inside a path source.
type sourceFile struct {
	name string
	open func() (io.ReadCloser, error)
}

// resolveSources expands path into CSV streams: a .csv file, every CSV in a
// .zip archive, or every CSV and zipped CSV below a directory. Archives are
// read in place; nothing is extracted to disk.
func resolveSources(root string) ([]sourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("dataset path %q: %w", root, err)
	}

	if !info.IsDir() {
		srcs, err := fileSources(root)
		if err != nil {
			return nil, err
		}
		if len(srcs) == 0 {
			return nil, fmt.Errorf("%s: %w", root, ErrNoCSVFiles)
		}
		return srcs, nil
	}

	var srcs []sourceFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		found, err := fileSources(p)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFormat) {
				return nil
			}
			return err
		}
		srcs = append(srcs, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoCSVFiles)
	}
	return srcs, nil
}

func fileSources(p string) ([]sourceFile, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv":
		return []sourceFile{{
			name: p,
			open: func() (io.ReadCloser, error) { return os.Open(p) },
		}}, nil
	case ".zip":
		return zipSources(p)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func zipSources(p string) ([]sourceFile, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", p, err)
	}
	defer zr.Close()

	var srcs []sourceFile
	for i, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() || !isArchivedCSV(name) {
			continue
		}
		srcs = append(srcs, sourceFile{
			name: p + "!" + name,
			open: func() (io.ReadCloser, error) { return openZipEntry(p, i) },
		})
	}
	return srcs, nil
}

// isArchivedCSV skips the resource-fork entries macOS adds to archives.
func isArchivedCSV(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._") {
		return false
	}
	return strings.EqualFold(path.Ext(name), ".csv")
}

type zipEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z zipEntryReader) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func openZipEntry(archive string, index int) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archive, err)
	}
	if index >= len(zr.File) {
		zr.Close()
		return nil, fmt.Errorf("archive %s changed while loading", archive)
	}
	rc, err := zr.File[index].Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("open %s in %s: %w", zr.File[index].Name, archive, err)
	}
	return zipEntryReader{ReadCloser: rc, archive: zr}, nil
}
