package utils

import (
	"brz/storage"
	"fmt"
	"io"
	"mime/multipart"
)

// ReadUploadedFile reads a multipart upload into a FilePayload. Reads stop one
// byte past maxBytes so the artifact store still reports the size violation.
func ReadUploadedFile(file *multipart.FileHeader, maxBytes int64) (storage.FilePayload, error) {
	src, err := file.Open()
	if err != nil {
		return storage.FilePayload{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	reader := io.Reader(src)
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return storage.FilePayload{}, fmt.Errorf("read upload: %w", err)
	}

	// Browsers and curl send application/octet-stream when they cannot guess;
	// leave the type to content sniffing in that case.
	declared := file.Header.Get("Content-Type")
	if declared == "application/octet-stream" {
		declared = ""
	}

	return storage.FilePayload{
		Data:         data,
		DeclaredMIME: declared,
	}, nil
}
