package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"leadpulse/internal/errors"
	"leadpulse/internal/validation"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds lead exports in a directory
type Discovery struct {
	basePath  string
	validator *validation.FileValidator
}

// NewDiscovery creates a discovery rooted at basePath. Relative directories
// passed to its methods are resolved against it.
func NewDiscovery(basePath string, validator *validation.FileValidator) *Discovery {
	if validator == nil {
		validator = validation.NewFileValidator(nil)
	}
	return &Discovery{basePath: basePath, validator: validator}
}

// FindLeadExports lists the readable lead exports in dir, oldest first.
// Hidden files, extensionless files and Excel lock files are skipped.
func (d *Discovery) FindLeadExports(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fullPath)
		}
		return nil, errors.NewStorageError(fmt.Sprintf("failed to read directory %s", fullPath), err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) == "" {
			continue
		}
		if d.validator.ValidateExtension(name) != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// Latest returns the most recently modified lead export in dir.
func (d *Discovery) Latest(dir string) (FileInfo, error) {
	files, err := d.FindLeadExports(dir)
	if err != nil {
		return FileInfo{}, err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return FileInfo{}, errors.NewNotFoundError(fmt.Sprintf("lead export in %s", dir))
	}
	return latest, nil
}

// ResolveInput returns path unchanged when it names a file, or the newest
// lead export inside it when it names a directory.
func (d *Discovery) ResolveInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}
	latest, err := d.Latest(path)
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}

// GetLatestFile returns the most recently modified file
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, f := range files[1:] {
		if f.ModTime.After(latest.ModTime) {
			latest = f
		}
	}
	return latest, true
}
