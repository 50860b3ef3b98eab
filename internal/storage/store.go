package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Storer[T Record] interface {
	Save(string, T) error
	Get(string) T
	Delete(string) error
}

// Codec transforms record files between their stored and JSON form.
type Codec interface {
	// Extension is the file extension, including the dot, of stored records.
	Extension() string
	Encode(plain []byte) ([]byte, error)
	Decode(stored []byte) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) Extension() string { return ".json" }

func (jsonCodec) Encode(plain []byte) ([]byte, error) { return plain, nil }

func (jsonCodec) Decode(stored []byte) ([]byte, error) { return stored, nil }

type FileStore[T Record] struct {
	path    string
	codec   Codec
	records map[string]T

	mu sync.RWMutex
}

type FileStoreOpt func(*fileStoreConfig)

type fileStoreConfig struct {
	codec Codec
}

// WithCodec stores records through c instead of plain JSON files.
func WithCodec(c Codec) FileStoreOpt {
	return func(cfg *fileStoreConfig) {
		cfg.codec = c
	}
}

func NewFileStore[T Record](path string, opts ...FileStoreOpt) (*FileStore[T], error) {
	cfg := &fileStoreConfig{codec: jsonCodec{}}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &FileStore[T]{
		path:    path,
		codec:   cfg.codec,
		records: map[string]T{},
	}

	err := s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore[T]) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = map[string]T{}

	return filepath.WalkDir(s.path, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() || !strings.HasSuffix(path, s.codec.Extension()) {
			return nil
		}

		env, err := s.readEnvelope(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}

		err = env.Validate()
		if err != nil {
			return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
		}

		if _, ok := s.records[env.Id()]; ok {
			return fmt.Errorf("duplicate key detected: %s", env.Id())
		}

		s.records[env.Id()] = env.Body
		return nil
	})
}

func (s *FileStore[T]) Save(id string, o T) error {
	env := &Envelope[T]{
		Version:    currentVersion,
		Identifier: Identifier(id),
		Body:       o,
		SavedAt:    time.Now().UTC(),
	}
	if err := env.Validate(); err != nil {
		return fmt.Errorf("validating %s: %w", id, err)
	}

	jsonData, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	data, err := s.codec.Encode(jsonData)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.filePath(id), data, 0600); err != nil {
		return err
	}
	s.records[id] = o
	return nil
}

// Delete removes the record and its file. Deleting a missing record is not an error.
func (s *FileStore[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	err := os.Remove(s.filePath(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", id, err)
	}
	return nil
}

// atomicWrite writes data to a temp file then renames it to the target path.
// This prevents partial or empty files if the process is interrupted.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (s *FileStore[T]) Get(id string) T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records[id]
}

func (s *FileStore[T]) filePath(id string) string {
	return filepath.Join(s.path, id+s.codec.Extension())
}

func (s *FileStore[T]) readEnvelope(path string) (*Envelope[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	// Ignoring close error - file is read-only, error is not actionable
	defer func() { _ = file.Close() }()

	stored, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	jsonData, err := s.codec.Decode(stored)
	if err != nil {
		return nil, fmt.Errorf("decoding file: %w", err)
	}

	env := &Envelope[T]{}
	err = json.Unmarshal(jsonData, env)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling envelope: %w", err)
	}

	return env, nil
}
