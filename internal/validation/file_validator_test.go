package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpulse/internal/errors"
)

func newTestValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		limit   int64
		wantErr bool
	}{
		{name: "csv within limit", file: "users.csv", size: 100, limit: 1024},
		{name: "xlsx upper case extension", file: "Users.XLSX", size: 100, limit: 1024},
		{name: "no extension", file: "export", size: 10, limit: 0},
		{name: "no limit", file: "users.csv", size: 1 << 30, limit: 0},
		{name: "exactly at limit", file: "users.csv", size: 1024, limit: 1024},
		{name: "over limit", file: "users.csv", size: 1025, limit: 1024, wantErr: true},
		{name: "empty upload", file: "users.csv", size: 0, limit: 1024, wantErr: true},
		{name: "legacy xls", file: "users.xls", size: 10, limit: 1024, wantErr: true},
		{name: "excel lock file", file: "~$users.xlsx", size: 10, limit: 1024, wantErr: true},
		{name: "unsupported type", file: "users.pdf", size: 10, limit: 1024, wantErr: true},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.file, tt.size, tt.limit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFileValidator_ValidateFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantType  errors.ErrorType
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "users.csv")
				require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))
				return path
			},
		},
		{
			name: "empty file is accepted",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "users.csv")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantType: errors.ErrTypeNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "empty path",
			setupFunc: func(t *testing.T) string {
				return ""
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "users.json")
				require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
				return path
			},
			wantType: errors.ErrTypeValidation,
		},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFile(tt.setupFunc(t))
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newTestValidator()

	t.Run("creates nested directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports", "daily")
		require.NoError(t, v.ValidateOutputDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		_, err = os.Stat(filepath.Join(dir, ".write_test"))
		assert.True(t, os.IsNotExist(err), "probe file should be removed")
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "taken")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		err := v.ValidateOutputDirectory(file)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeStorage))
	})
}

func TestInvalidField_CarriesFieldContext(t *testing.T) {
	err := newTestValidator().ValidateExtension("report.xls")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "file", appErr.Context["field"])
	assert.Contains(t, appErr.Message, ".xlsx")
}
