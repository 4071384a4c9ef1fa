package cvm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/cvm-report/internal/fetcher"
)

// Materializer downloads archives and extracts them into the Store.
type Materializer struct {
	fetcher fetcher.Fetcher
	store   *Store
	baseURL string
	timeout time.Duration
	group   singleflight.Group
}

// NewMaterializer creates a Materializer. A zero timeout means five minutes.
func NewMaterializer(f fetcher.Fetcher, store *Store, baseURL string, timeout time.Duration) *Materializer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Materializer{fetcher: f, store: store, baseURL: baseURL, timeout: timeout}
}

// ArchiveURL returns the download URL of an archive.
func (m *Materializer) ArchiveURL(doc DocType, fileName string) string {
	return m.baseURL + doc.DataPath() + fileName
}

// Materialize downloads fileName and extracts every member into
// <root>/<DOC_TYPE>/<year>/, returning that directory. Existing files of the
// same name are overwritten; the archive is always downloaded again.
//
// Concurrent calls for the same destination share one download. The shared
// download is bounded by the materializer timeout only; a caller whose ctx
// ends stops waiting without cancelling it for the others. Members are
// extracted to a staging directory first and renamed into place, so readers
// never observe a partially written CSV.
func (m *Materializer) Materialize(ctx context.Context, doc DocType, fileName string) (string, error) {
	desc := NewArchiveDescriptor(doc, fileName)
	key := m.store.Dir(desc.DocType, desc.Year)

	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.materialize(shared, desc)
	})

	select {
	case <-ctx.Done():
		return "", eris.Wrapf(ctx.Err(), "materialize %s", desc.FileName)
	case res := <-ch:
		if res.Shared {
			zap.L().Debug("materialize shared with concurrent caller", zap.String("dir", key))
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *Materializer) materialize(ctx context.Context, desc ArchiveDescriptor) (string, error) {
	log := zap.L().With(
		zap.String("component", "cvm.materializer"),
		zap.String("doc_type", string(desc.DocType)),
		zap.String("archive", desc.FileName),
		zap.String("year", desc.Year),
	)
	if desc.Year == UnknownYear {
		log.Warn("could not determine year from archive name, using fallback directory")
	}

	docDir := filepath.Join(m.store.Root(), string(desc.DocType))
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return "", eris.Wrapf(ErrFilesystem, "create %s: %v", docDir, err)
	}

	zipPath := filepath.Join(docDir, ".download-"+uuid.NewString()+".zip")
	defer os.Remove(zipPath) //nolint:errcheck

	archiveURL := m.ArchiveURL(desc.DocType, desc.FileName)
	dlCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	log.Info("downloading archive", zap.String("url", archiveURL))
	start := time.Now()
	n, err := m.fetcher.DownloadToFile(dlCtx, archiveURL, zipPath)
	if err != nil {
		log.Error("archive download failed", zap.Error(err))
		return "", eris.Wrapf(ErrUpstream, "download %s: %v", archiveURL, err)
	}
	log.Info("archive downloaded", zap.Int64("bytes", n), zap.Duration("elapsed", time.Since(start)))

	staging := filepath.Join(docDir, ".staging-"+desc.Year+"-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", eris.Wrapf(ErrFilesystem, "create staging dir: %v", err)
	}
	defer os.RemoveAll(staging) //nolint:errcheck

	files, err := fetcher.ExtractZIP(zipPath, staging)
	if err != nil {
		if eris.Is(err, fetcher.ErrInvalidArchive) {
			log.Error("archive is not a valid zip", zap.Error(err))
			return "", eris.Wrapf(ErrBadArchive, "%s: %v", desc.FileName, err)
		}
		log.Error("archive extraction failed", zap.Error(err))
		return "", eris.Wrapf(ErrFilesystem, "extract %s: %v", desc.FileName, err)
	}

	dest := m.store.Dir(desc.DocType, desc.Year)
	if err := publish(staging, dest, files); err != nil {
		log.Error("could not move extracted files into place", zap.Error(err))
		return "", err
	}

	log.Info("archive extracted", zap.String("dir", dest), zap.Int("files", len(files)))
	return dest, nil
}

// publish moves extracted files from staging into dest. A missing dest is
// created by renaming the whole staging directory; otherwise each file is
// renamed over its previous version.
func publish(staging, dest string, files []string) error {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := os.Rename(staging, dest); err == nil {
			return nil
		}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return eris.Wrapf(ErrFilesystem, "create %s: %v", dest, err)
	}
	for _, src := range files {
		rel, err := filepath.Rel(staging, src)
		if err != nil {
			return eris.Wrapf(ErrFilesystem, "relative path of %s: %v", src, err)
		}
		target := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return eris.Wrapf(ErrFilesystem, "create %s: %v", filepath.Dir(target), err)
		}
		if err := os.Rename(src, target); err != nil {
			return eris.Wrapf(ErrFilesystem, "move %s: %v", rel, err)
		}
	}
	return nil
}
