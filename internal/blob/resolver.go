package blob

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"nwbview/internal/infra/blob/httpstore"
	infraS3 "nwbview/internal/infra/blob/s3"
)

// ResolverConfig wires the stores a Resolver hands out.
type ResolverConfig struct {
	// BaseDir anchors relative and file:// references, normally the
	// directory holding the container file.
	BaseDir string
	HTTP    HTTPConfig
	S3      S3Config
	// S3Store, when set, serves s3:// references instead of a client built
	// from S3. Its bucket is replaced per reference.
	S3Store Store
	// Memory serves memory:// references. Without it they are rejected.
	Memory Store
}

type bucketScoped interface {
	Store
	WithBucket(bucket string) *infraS3.Store
}

// Resolver maps an external frame reference to the store that can serve it
// and the key within that store:
//
//	http://, https://  -> HTTP store, key is the URL
//	s3://bucket/key    -> S3 store for bucket
//	memory://key       -> configured memory store
//	file://path, path  -> filesystem store; relative paths use BaseDir
type Resolver struct {
	cfg  ResolverConfig
	http Store

	mu   sync.Mutex
	s3   bucketScoped
	dirs map[string]Store
}

// NewResolver constructs a resolver. The S3 client is created on first use.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	r := &Resolver{cfg: cfg, http: NewHTTP(cfg.HTTP), dirs: make(map[string]Store)}
	if cfg.S3Store != nil {
		bs, ok := cfg.S3Store.(bucketScoped)
		if !ok {
			return nil, fmt.Errorf("s3 store %T cannot address buckets", cfg.S3Store)
		}
		r.s3 = bs
	}
	return r, nil
}

// Resolve returns the store and key for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Store, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", fmt.Errorf("empty reference")
	}
	switch {
	case httpstore.IsURL(ref):
		return r.http, ref, nil
	case strings.HasPrefix(ref, "s3://"):
		bucket, key, err := infraS3.ParseURI(ref)
		if err != nil {
			return nil, "", err
		}
		base, err := r.s3Store(ctx)
		if err != nil {
			return nil, "", err
		}
		return base.WithBucket(bucket), key, nil
	case strings.HasPrefix(ref, "memory://"):
		if r.cfg.Memory == nil {
			return nil, "", fmt.Errorf("%w: no memory store for %s", ErrUnsupported, ref)
		}
		return r.cfg.Memory, strings.TrimPrefix(ref, "memory://"), nil
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, "", err
		}
		return r.local(u.Path)
	case strings.Contains(ref, "://"):
		return nil, "", fmt.Errorf("%w: reference scheme in %s", ErrUnsupported, ref)
	default:
		return r.local(ref)
	}
}

// local anchors path at BaseDir unless it is absolute and serves it from a
// store rooted at the file's own directory, so "../frames/0.jpg" works.
func (r *Resolver) local(path string) (Store, string, error) {
	p := filepath.FromSlash(path)
	if !filepath.IsAbs(p) {
		base := r.cfg.BaseDir
		if base == "" {
			base = "."
		}
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	dir, key := filepath.Dir(p), filepath.Base(p)
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.dirs[dir]; ok {
		return st, key, nil
	}
	st, err := NewFilesystem(dir)
	if err != nil {
		return nil, "", err
	}
	r.dirs[dir] = st
	return st, key, nil
}

func (r *Resolver) s3Store(ctx context.Context) (bucketScoped, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s3 != nil {
		return r.s3, nil
	}
	st, err := infraS3.New(ctx, r.cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	r.s3 = st
	return st, nil
}
