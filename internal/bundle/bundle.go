// Package bundle archives a scaffolded pack.Bundle into a single
// tar.xz file so a multi-file scaffold travels as one artifact.
package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"

	"github.com/icl-lang/iclc/core/pack"
)

// Write serializes b as a tar.xz archive at dstPath. Entries are written
// in sorted path order and carry a fixed modification time so that
// repeated calls over the same bundle produce byte-identical archives —
// the same determinism guarantee pack.Bundle.Hash() already gives the
// uncompressed primary file.
func Write(b pack.Bundle, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return fmt.Errorf("xz writer: %w", err)
	}
	defer xw.Close()

	tw := tar.NewWriter(xw)
	defer tw.Close()

	names := make([]string, 0, len(b.Files))
	for name := range b.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data := b.Files[name]
		header := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write body %s: %w", name, err)
		}
	}
	return nil
}

// Summary renders a one-line human-readable description of a bundle's
// file count and total uncompressed size, for CLI reporting after a
// compile or archive step.
func Summary(b pack.Bundle) string {
	var total int
	for _, data := range b.Files {
		total += len(data)
	}
	return fmt.Sprintf("%d file(s), %s", len(b.Files), humanize.Bytes(uint64(total)))
}

// Read reconstructs a pack.Bundle from a tar.xz archive written by
// Write. primaryPath names the entry to treat as the bundle's
// PrimaryPath, matching the manifest's Scaffolding.PrimaryFile the
// caller already knows from the pack that produced the archive.
func Read(srcPath, primaryPath string) (pack.Bundle, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return pack.Bundle{}, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return pack.Bundle{}, fmt.Errorf("xz reader: %w", err)
	}

	tr := tar.NewReader(xr)
	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pack.Bundle{}, fmt.Errorf("read header: %w", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return pack.Bundle{}, fmt.Errorf("read body %s: %w", header.Name, err)
		}
		files[header.Name] = data
	}

	return pack.Bundle{PrimaryPath: primaryPath, Files: files}, nil
}
