// Package file provides the durable, per-path persistence adapter for cart
// snapshots: the Go analog of an origin-scoped browser storage key. One file
// holds one snapshot record.
package file

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
)

// gzipMagic is the two-byte gzip stream header, used to detect compressed
// records on load regardless of the current Compress setting.
var gzipMagic = []byte{0x1f, 0x8b}

// Store persists snapshot records to a single file, atomically.
//
// Writes go to a temp file in the same directory followed by a rename, so a
// concurrent reader never observes a torn record. Two processes pointed at
// the same path still race last-writer-wins; the engine documents that gap
// rather than coordinating across processes.
type Store struct {
	path     string
	compress bool
}

// Option customizes a Store.
type Option func(*Store)

// WithCompression gzip-compresses records on write. Load transparently
// handles both compressed and plain records.
func WithCompression() Option {
	return func(s *Store) { s.compress = true }
}

// New creates a Store writing to path. The parent directory is created if
// missing.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create storage directory")
		}
	}
	return s, nil
}

// Save writes the record atomically. Any failure leaves the previous record
// intact.
func (s *Store) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.compress {
		var buf bytes.Buffer
		zw := pgzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return errors.Wrap(err, "compress record")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "finish compression")
		}
		data = buf.Bytes()
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write record")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "replace record")
	}
	return nil
}

// Load reads the last saved record. ok is false when no record exists yet.
func (s *Store) Load(ctx context.Context) (data []byte, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "read record")
	}

	if !bytes.HasPrefix(raw, gzipMagic) {
		return raw, true, nil
	}

	zr, err := pgzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false, errors.Wrap(err, "open compressed record")
	}
	defer func() { _ = zr.Close() }()

	data, err = io.ReadAll(zr)
	if err != nil {
		return nil, false, errors.Wrap(err, "decompress record")
	}
	return data, true, nil
}

// Ping verifies the storage directory is writable. Used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	probe, err := os.CreateTemp(filepath.Dir(s.path), ".probe-*")
	if err != nil {
		return errors.Wrap(err, "storage directory not writable")
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
