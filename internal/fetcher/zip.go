package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidArchive is returned when the input is not a readable ZIP archive
// or contains a member that cannot be safely extracted.
var ErrInvalidArchive = eris.New("zip: invalid archive")

// ExtractZIP extracts all files from a ZIP archive to the destination directory,
// overwriting existing files of the same name. Returns the list of extracted file paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidArchive, "zip: open archive: %v", err)
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractZIPEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// extractZIPEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Wrapf(ErrInvalidArchive, "zip: illegal path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(ErrInvalidArchive, "zip: open entry %q: %v", f.Name, err)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		if eris.Is(err, zip.ErrChecksum) || eris.Is(err, zip.ErrFormat) || eris.Is(err, zip.ErrAlgorithm) {
			return "", eris.Wrapf(ErrInvalidArchive, "zip: read entry %q: %v", f.Name, err)
		}
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
