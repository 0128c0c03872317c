package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "feeddiff/internal/errors"
	"feeddiff/internal/feed"
	"feeddiff/internal/infrastructure"
)

// FileValidator checks feed inputs and report outputs before a diff runs
type FileValidator struct {
	logger  *slog.Logger
	maxSize int64
}

// NewFileValidator creates a new file validator. maxSize <= 0 disables the
// size check.
func NewFileValidator(maxSize int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:  infrastructure.WithComponent(logger, "file_validator"),
		maxSize: maxSize,
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return apperrors.NewNotFoundError(fmt.Sprintf("file %s", path)).
			WithContext("path", path)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	if v.maxSize > 0 && info.Size() > v.maxSize {
		v.logger.Error("File too large",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("max_size", v.maxSize))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("file %s is %d bytes, limit is %d", path, info.Size(), v.maxSize), nil)
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateFeedFile checks that path is a readable CSV or Excel feed.
// Excel lock files (~$name.xlsx) are rejected.
func (v *FileValidator) ValidateFeedFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	if !feed.SupportedExtension(path) {
		ext := strings.ToLower(filepath.Ext(path))
		v.logger.Error("Unsupported feed file",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewAppValidationError(fmt.Sprintf("cannot read %s", path), feed.ErrUnsupportedFormat).
			WithContext("extension", ext)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Temporary Excel file", slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is a temporary Excel file", path), nil)
	}

	return nil
}

// ValidateFeeds validates both feed paths and rejects comparing a file
// against itself
func (v *FileValidator) ValidateFeeds(path1, path2 string) error {
	for _, p := range []string{path1, path2} {
		if err := v.ValidateFeedFile(p); err != nil {
			return err
		}
	}

	abs1, err1 := filepath.Abs(path1)
	abs2, err2 := filepath.Abs(path2)
	if err1 == nil && err2 == nil && abs1 == abs2 {
		v.logger.Warn("Both feeds point at the same file", slog.String("file", abs1))
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateOutputFile checks that the report file at path can be created
func (v *FileValidator) ValidateOutputFile(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}
