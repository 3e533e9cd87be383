// Package archive bundles finished renditions into a single zip for
// download. Entries are stored under their base names, deflate-compressed.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteZip creates dstPath containing the given files. Files that no longer
// exist on disk are skipped rather than failing the whole bundle; the count
// of written entries is returned so the caller can notice a partial archive.
func WriteZip(dstPath string, files []string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, fmt.Errorf("create archive dir: %w", err)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	written := 0

	for _, path := range files {
		if err := addFile(zw, path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			zw.Close()
			return written, fmt.Errorf("add %s: %w", filepath.Base(path), err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("finalize archive: %w", err)
	}
	return written, nil
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
