// Package tarball extracts npm package tarballs.
//
// npm tarballs are gzip-compressed tar archives whose entries share a single
// leading directory (usually "package/"). [Extract] strips that first path
// component so the manifest lands at <dest>/package.json.
package tarball

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/noscripts/pkg/errors"
)

// MaxFileSize caps a single extracted file.
const MaxFileSize = 256 << 20

// Extract unpacks the gzip tar archive in data into dest, creating dest if
// needed. Entries escaping dest are rejected. Links, devices and other
// special entries are skipped.
func Extract(data []byte, dest string) error {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.ErrCodeFetchFailed, err, "invalid gzip stream")
	}
	defer gzr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to create %s", dest)
	}

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeFetchFailed, err, "invalid tar archive")
		}

		rel, ok := stripFirst(header.Name)
		if !ok {
			continue
		}
		target, err := within(dest, rel)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "failed to create %s", target)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, header.Size); err != nil {
				return err
			}
		}
	}
}

// stripFirst removes the leading path component shared by npm tarball
// entries. Entries without a second component are dropped.
func stripFirst(name string) (string, bool) {
	name = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	_, rest, ok := strings.Cut(name, "/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

func within(dest, rel string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))
	r, err := filepath.Rel(dest, target)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInvalidPath, "archive entry %q escapes extraction directory", rel)
	}
	return target, nil
}

func writeFile(target string, r io.Reader, size int64) error {
	if size > MaxFileSize {
		return errors.New(errors.ErrCodeFetchFailed, "archive entry %s too large (%d bytes)", target, size)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to create %s", filepath.Dir(target))
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to create %s", target)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(r, MaxFileSize)); err != nil {
		return errors.Wrap(errors.ErrCodeFetchFailed, err, "failed to extract %s", target)
	}
	return nil
}

// Build creates a gzip tar archive from files (relative path -> content),
// rooting every entry under prefix. It is used to publish packages to test
// registries.
func Build(prefix string, files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for name, content := range files {
		hdr := &tar.Header{
			Name:     path.Join(prefix, name),
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
