package quotes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes a discovered quote input file.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// inputExtensions are the file types the parsers accept.
var inputExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// DiscoverInputs lists quote input files (CSV/XLSX) in a directory, sorted by
// modification time ascending.
func DiscoverInputs(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !inputExtensions[ext] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// LatestInput returns the most recently modified quote input file in dir.
func LatestInput(dir string) (FileInfo, error) {
	files, err := DiscoverInputs(dir)
	if err != nil {
		return FileInfo{}, err
	}
	if len(files) == 0 {
		return FileInfo{}, fmt.Errorf("no quote input files in %s", dir)
	}
	return files[len(files)-1], nil
}

// IsXLSX reports whether the file should be routed to the workbook parser.
func (fi FileInfo) IsXLSX() bool {
	ext := strings.ToLower(filepath.Ext(fi.Name))
	return ext == ".xlsx" || ext == ".xls"
}
