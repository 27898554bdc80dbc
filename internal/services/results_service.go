package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ResultsService lists and serves exported artifacts from the output
// directory: solved quote tables, grid files, and mesh samples.
type ResultsService struct {
	outDir string
	logger *slog.Logger
}

// NewResultsService creates a results service over the output directory.
func NewResultsService(outDir string, logger *slog.Logger) *ResultsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsService{
		outDir: outDir,
		logger: logger.With(slog.String("component", "results_service")),
	}
}

// ResultFile describes one exported artifact.
type ResultFile struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

// exportedExtensions are the artifact types the exporters produce.
var exportedExtensions = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".json": "application/json",
}

// ListResults returns the exported artifacts, newest first. Directories,
// dotfiles, and files the exporters do not produce are skipped.
func (rs *ResultsService) ListResults(ctx context.Context) ([]ResultFile, error) {
	entries, err := os.ReadDir(rs.outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: output directory %s", ErrNoFilesFound, rs.outDir)
		}
		return nil, fmt.Errorf("list results: %w", err)
	}

	var files []ResultFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, ok := exportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ResultFile{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime(),
		})
	}
	if len(files) == 0 {
		return nil, ErrNoFilesFound
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Modified.Equal(files[j].Modified) {
			return files[i].Modified.After(files[j].Modified)
		}
		return files[i].Name < files[j].Name
	})

	rs.logger.DebugContext(ctx, "results listed",
		slog.Int("files", len(files)),
		slog.String("out_dir", rs.outDir))

	return files, nil
}

// ServeResult writes one exported artifact to the response as an attachment.
// The filename must resolve inside the output directory.
func (rs *ResultsService) ServeResult(ctx context.Context, w http.ResponseWriter, r *http.Request, filename string) error {
	cleaned := filepath.FromSlash(filepath.Clean(filename))

	path, err := filepath.Abs(filepath.Join(rs.outDir, cleaned))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, filename)
	}
	base, err := filepath.Abs(rs.outDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if path != base && !strings.HasPrefix(path, base+string(filepath.Separator)) {
		rs.logger.WarnContext(ctx, "result path escapes output directory",
			slog.String("requested", filename),
			slog.String("resolved", path))
		return fmt.Errorf("%w: %s", ErrInvalidInput, filename)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}

	contentType := exportedExtensions[strings.ToLower(filepath.Ext(cleaned))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(cleaned)))
	w.Header().Set("Content-Type", contentType)

	http.ServeFile(w, r, path)
	return nil
}
