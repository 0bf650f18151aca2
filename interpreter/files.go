package interpreter

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// textExtensions are uploaded as UTF-8 text.
var textExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".json": true,
	".py":   true,
}

// nativeExtensions are left for the interpreter to read itself (pandas opens
// spreadsheets directly), so they are noted and skipped.
var nativeExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// CollectFiles walks dir and returns every text-like file as an attachment,
// named by its slash-separated path relative to dir. Paths with a hidden
// component (relative to dir) are skipped. Unreadable or non-UTF-8 files are
// logged and skipped. A missing directory yields no files.
func CollectFiles(dir string, logger *slog.Logger) []File {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Warn("data directory does not exist, skipping file collection", "dir", dir)
		return nil
	}

	var files []File
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("could not read path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case textExtensions[ext]:
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("could not read file", "path", path, "error", err)
				return nil
			}
			if !utf8.Valid(data) {
				logger.Warn("could not read file", "path", path, "error", "invalid UTF-8")
				return nil
			}
			files = append(files, File{
				Name:     filepath.ToSlash(rel),
				Encoding: "string",
				Content:  string(data),
			})
		case nativeExtensions[ext]:
			logger.Info("spreadsheet detected, leaving it to pandas", "file", d.Name())
		}
		return nil
	})
	if walkErr != nil {
		logger.Warn("file collection stopped early", "dir", dir, "error", walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}
