// Package storage keeps uploaded profile images on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/routepick/backend/internal/pkg/apperr"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

var ErrInvalidName = errors.New("storage: invalid object name")

// Store persists objects under generated names.
type Store interface {
	// Put stores the object and returns its public URL.
	Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Upload describes a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Validate checks an upload against the size limit and the image extension allow-list.
func Validate(filename string, size, maxBytes int64) error {
	if size <= 0 {
		return apperr.Validation(apperr.CodeInvalidFile, "file is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		return apperr.Validation(apperr.CodeInvalidFile, fmt.Sprintf("file exceeds %d MB", maxBytes>>20))
	}
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]; !ok {
		return apperr.Validation(apperr.CodeInvalidFile, "only jpg, jpeg, png and gif images are allowed")
	}
	return nil
}

// NewName returns a random object name keeping the original extension.
func NewName(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}

// ContentType guesses the MIME type from the extension.
func ContentType(name string) string {
	if ct, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Save validates up and stores it under a fresh name. It returns the stored
// name and its public URL.
func Save(ctx context.Context, store Store, up Upload, maxBytes int64) (string, string, error) {
	if err := Validate(up.Filename, up.Size, maxBytes); err != nil {
		return "", "", err
	}
	name := NewName(up.Filename)
	url, err := store.Put(ctx, name, up.Body, up.Size, ContentType(name))
	if err != nil {
		return "", "", fmt.Errorf("store %s: %w", name, err)
	}
	return name, url, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	return name, nil
}
