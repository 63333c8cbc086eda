package chunker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// TextFileExtensions are the extensions picked up by ListTextFiles.
var TextFileExtensions = []string{
	".txt", ".md", ".py", ".js", ".html", ".css", ".json", ".csv", ".xml", ".yaml", ".yml",
}

// ListTextFiles returns the regular files in dir that look like text, sorted by name.
func ListTextFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if isTextFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile returns the file content and the source name recorded for its chunks.
func ReadFile(path string) (content, source string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "read %s", path)
	}
	source = filepath.Base(path)
	if source == "." || source == string(filepath.Separator) {
		source = path
	}
	return string(data), source, nil
}

func isTextFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range TextFileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
