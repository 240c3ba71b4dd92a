// Package archive implements the Archive Expander (C4): recursively
// walks ZIP files, yielding carrier-tagged FileEntries. Malformed
// archives yield an empty list and log; they never raise past this
// boundary, matching the Converter Adapters' own error-coercion policy.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
)

// Expander extracts ZIP archives into a fresh temp directory and
// returns the expanded FileEntries. The directory is returned to the
// caller; the Expander itself never removes it.
type Expander struct {
	tempRoot string
	log      *logging.Logger
}

func NewExpander(tempRoot string, log *logging.Logger) *Expander {
	return &Expander{tempRoot: tempRoot, log: log}
}

// Expand extracts archivePath (a ZIP file) under a fresh subdirectory
// of tempRoot, skipping entries whose filename starts with "." or
// "__". It returns the extraction directory (for lifecycle tracking)
// and the expanded entries. A malformed archive returns an empty
// directory path and a nil entry list — the caller treats that file as
// contributing nothing, per spec.md §4.4.
func (e *Expander) Expand(archivePath, archiveDisplayName string) (extractDir string, entries []model.FileEntry) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		e.log.Warn("malformed archive, skipping", "archive", archivePath, "err", err)
		return "", nil
	}
	defer reader.Close()

	extractDir, err = os.MkdirTemp(e.tempRoot, "archive-*")
	if err != nil {
		e.log.Warn("failed to create extraction dir", "archive", archivePath, "err", err)
		return "", nil
	}

	for _, f := range reader.File {
		if isSkipped(f.Name) {
			continue
		}
		if f.FileInfo().IsDir() {
			continue
		}

		destPath := filepath.Join(extractDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(destPath, filepath.Clean(extractDir)+string(os.PathSeparator)) {
			e.log.Warn("skipping zip entry escaping extraction dir", "entry", f.Name)
			continue
		}

		if err := extractOne(f, destPath); err != nil {
			e.log.Warn("failed to extract archive entry, skipping", "entry", f.Name, "err", err)
			continue
		}

		entries = append(entries, model.FileEntry{
			Path:        destPath,
			DisplayName: fmt.Sprintf("%s → %s", archiveDisplayName, f.Name),
			Origin:      model.ArchiveOrigin(archiveDisplayName, f.Name),
		})
	}

	return extractDir, entries
}

func isSkipped(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "__")
}

func extractOne(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
