// Package memory serves blobs from process memory. It backs memory://
// frame references in tests.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"nwbview/internal/blob/core"
)

type object struct {
	info core.Info
	data []byte
}

// Store holds immutable objects keyed by name. The object set is fixed at
// construction, so reads need no locking.
type Store struct {
	objs map[string]object
}

// New returns a store serving a copy of objects. Content types are sniffed
// from the data and the ETag is its sha256.
func New(objects map[string][]byte) *Store {
	now := time.Now().UTC()
	s := &Store{objs: make(map[string]object, len(objects))}
	for key, data := range objects {
		data = bytes.Clone(data)
		sum := sha256.Sum256(data)
		s.objs[key] = object{
			data: data,
			info: core.Info{
				Key:          key,
				Size:         int64(len(data)),
				ContentType:  http.DetectContentType(data),
				ETag:         hex.EncodeToString(sum[:]),
				LastModified: now,
			},
		}
	}
	return s
}

// Driver implements core.Store.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns the object's metadata and a reader over its bytes.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, ok := s.objs[key]
	if !ok {
		return core.Info{}, nil, fmt.Errorf("memory blob %s: %w", key, core.ErrNotFound)
	}
	return obj.info, io.NopCloser(bytes.NewReader(obj.data)), nil
}
