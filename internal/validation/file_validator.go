package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"leadpulse/internal/errors"
)

// Extensions accepted for lead exports. A missing extension is allowed and
// left to content sniffing.
var acceptedExtensions = map[string]bool{
	"":      true,
	".csv":  true,
	".txt":  true,
	".xlsx": true,
	".xlsm": true,
}

// FileValidator checks input files and output locations before they are
// handed to the reader or the exporter.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateUpload checks the name and size of an uploaded export. A limit of
// zero or less disables the size check.
func (v *FileValidator) ValidateUpload(name string, size, limit int64) error {
	if err := v.ValidateExtension(name); err != nil {
		return err
	}
	if size == 0 {
		return invalidField("file", "uploaded file is empty")
	}
	if limit > 0 && size > limit {
		v.logger.Warn("Upload exceeds size limit",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("limit", limit))
		return invalidField("file", fmt.Sprintf("file is %d bytes, limit is %d", size, limit))
	}
	return nil
}

// ValidateExtension rejects file types the reader cannot decode.
func (v *FileValidator) ValidateExtension(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return invalidField("file", "temporary Excel lock files cannot be read")
	}

	ext := strings.ToLower(filepath.Ext(base))
	if ext == ".xls" {
		return invalidField("file", "legacy .xls workbooks are not supported, save as .xlsx")
	}
	if !acceptedExtensions[ext] {
		v.logger.Debug("Rejected file extension",
			slog.String("file", name),
			slog.String("extension", ext))
		return invalidField("file", fmt.Sprintf("unsupported file type %q, expected .csv or .xlsx", ext))
	}
	return nil
}

// ValidateFile checks that path is a readable lead export.
func (v *FileValidator) ValidateFile(path string) error {
	if path == "" {
		return invalidField("in", "input file is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			v.logger.Error("File not found", slog.String("file", path))
			return errors.NewNotFoundError(fmt.Sprintf("file %s", path))
		}
		return errors.NewStorageError(fmt.Sprintf("cannot access file %s", path), err)
	}

	if info.IsDir() {
		return invalidField("in", fmt.Sprintf("%s is a directory, not a file", path))
	}

	if err := v.ValidateExtension(path); err != nil {
		return err
	}

	if info.Size() == 0 {
		v.logger.Warn("File is empty", slog.String("file", path))
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the output directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	f.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func invalidField(field, message string) error {
	return errors.NewAppValidationError(message).WithContext("field", field)
}
