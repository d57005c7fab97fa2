package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalBlobStore keeps blobs under Root and exposes them below PublicPrefix,
// which is where the HTTP server serves Root statically.
type LocalBlobStore struct {
	Root         string
	PublicPrefix string
}

func NewLocalBlobStore(root, publicPrefix string) *LocalBlobStore {
	return &LocalBlobStore{Root: root, PublicPrefix: strings.TrimRight(publicPrefix, "/")}
}

func (s *LocalBlobStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	// write-then-rename so readers never observe a partial file
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit blob: %w", err)
	}

	return s.PublicPrefix + "/" + clean, nil
}

// Read accepts either a key or a reference previously returned by Write.
func (s *LocalBlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.PublicPrefix != "" {
		key = strings.TrimPrefix(key, s.PublicPrefix+"/")
	}
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, clean)
	}
	return data, err
}

func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))[1:]
	if clean == "" {
		return "", errors.New("empty blob key")
	}
	return clean, nil
}
