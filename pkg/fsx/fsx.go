// Package fsx abstracts the object storage used for audit archives so the
// same sink writes to local disk in development and S3 in production.
package fsx

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
)

// FileReader provides read-only operations.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// FileWriter provides write operations. WriteFile replaces any existing
// object at path.
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

// FileSystem combines all file operations.
type FileSystem interface {
	FileReader
	FileWriter
}

var ErrRegistry = errx.NewRegistry("FSX")

var (
	CodeNotFound    = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "File not found")
	CodeInvalidPath = ErrRegistry.Register("INVALID_PATH", errx.TypeValidation, http.StatusBadRequest, "Invalid file path")
	CodeIOFailure   = ErrRegistry.Register("IO_FAILURE", errx.TypeExternal, http.StatusBadGateway, "Storage operation failed")
)

func ErrNotFound(p string) *errx.Error {
	return ErrRegistry.New(CodeNotFound).WithDetail("path", p)
}

func ErrInvalidPath(p string) *errx.Error {
	return ErrRegistry.New(CodeInvalidPath).WithDetail("path", p)
}

func ErrIOFailure(op, p string, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeIOFailure, cause).
		WithDetail("op", op).
		WithDetail("path", p)
}

// Clean normalizes p into a relative slash separated key. Keys that are
// empty or escape the root are rejected.
func Clean(p string) (string, error) {
	key := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." || strings.Contains(p, "..") {
		return "", ErrInvalidPath(p)
	}
	return key, nil
}

// Join joins key elements with forward slashes.
func Join(elem ...string) string {
	return path.Join(elem...)
}
