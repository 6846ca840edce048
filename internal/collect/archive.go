package collect

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxTapBytes caps a single extracted member; taps are short call captures.
const maxTapBytes = 512 << 20

// extractArchive unpacks the regular files of a .tgz into dest, flattening
// paths, and returns the extracted file paths sorted.
func extractArchive(archive, dest string) ([]string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}

	var files []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return files, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if name == "." || name == ".." || strings.HasPrefix(name, ".") {
			continue
		}
		out := filepath.Join(dest, name)
		if err := writeMember(out, tr); err != nil {
			return files, err
		}
		files = append(files, out)
	}
	sort.Strings(files)
	return files, nil
}

func writeMember(path string, r io.Reader) error {
	w, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, io.LimitReader(r, maxTapBytes)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
