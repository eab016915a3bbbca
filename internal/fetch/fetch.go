// Package fetch retrieves externally referenced frames and assembles them
// into an image stack in reference order.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"

	"nwbview/internal/blob"
	"nwbview/internal/imaging"
	"nwbview/pkg/imagestack"
)

var log = logging.Logger("nwbview/fetch")

// DefaultRetryInterval is the first backoff delay when retries are enabled.
const DefaultRetryInterval = 200 * time.Millisecond

// Resolver maps a reference to the store serving it.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (blob.Store, string, error)
}

// Config controls fetching.
type Config struct {
	// Concurrency is the number of references fetched at once. Values below
	// one mean sequential fetching. Output order never depends on it.
	Concurrency int
	// Retries is the number of extra attempts per reference.
	Retries int
	// RetryInterval is the initial backoff delay.
	RetryInterval time.Duration
}

// Stats summarizes one Stack call.
type Stats struct {
	Frames int
	Bytes  int64
}

// FrameError attributes a failure to a reference.
type FrameError struct {
	Index int
	Ref   string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (%s): %v", e.Index, e.Ref, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Fetcher fetches and decodes frames.
type Fetcher struct {
	res Resolver
	dec *imaging.Decoder
	cfg Config
}

// New constructs a fetcher.
func New(res Resolver, dec *imaging.Decoder, cfg Config) *Fetcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Fetcher{res: res, dec: dec, cfg: cfg}
}

// Config returns the normalized configuration.
func (f *Fetcher) Config() Config { return f.cfg }

// Bytes returns the raw content of ref, retrying transient failures.
func (f *Fetcher) Bytes(ctx context.Context, ref string) ([]byte, error) {
	store, key, err := f.res.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	var data []byte
	attempt := 0
	op := func() error {
		attempt++
		_, rc, err := store.Get(ctx, key)
		if err != nil {
			return classify(err)
		}
		defer func() { _ = rc.Close() }()
		b, err := io.ReadAll(rc)
		if err != nil {
			return classify(err)
		}
		data = b
		return nil
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.cfg.Retries)), ctx)
	notify := func(err error, wait time.Duration) {
		log.Warnw("retrying frame fetch", "ref", ref, "attempt", attempt, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return data, nil
}

// classify marks errors that retrying cannot fix as permanent.
func classify(err error) error {
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrUnsupported) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	var se *blob.HTTPStatusError
	if errors.As(err, &se) && !se.Temporary() {
		return backoff.Permanent(err)
	}
	return err
}

// Frame fetches and decodes one reference.
func (f *Fetcher) Frame(ctx context.Context, ref string) (imagestack.Frame, int, error) {
	start := time.Now()
	data, err := f.Bytes(ctx, ref)
	if err != nil {
		return imagestack.Frame{}, 0, err
	}
	frame, format, err := f.dec.DecodeBytes(data)
	if err != nil {
		return imagestack.Frame{}, len(data), err
	}
	log.Debugw("decoded frame", "ref", ref, "format", format, "height", frame.Height, "width", frame.Width, "bytes", len(data), "elapsed", time.Since(start))
	return frame, len(data), nil
}

// Stack fetches every reference and stacks the frames in reference order.
// Any failure aborts the call; no partial stack is returned.
func (f *Fetcher) Stack(ctx context.Context, refs []string) (*imagestack.Stack, Stats, error) {
	if len(refs) == 0 {
		return nil, Stats{}, fmt.Errorf("no references to fetch")
	}
	if f.cfg.Concurrency == 1 || len(refs) == 1 {
		return f.sequential(ctx, refs)
	}
	return f.concurrent(ctx, refs)
}

func (f *Fetcher) sequential(ctx context.Context, refs []string) (*imagestack.Stack, Stats, error) {
	var (
		stack *imagestack.Stack
		stats Stats
	)
	for i, ref := range refs {
		frame, n, err := f.Frame(ctx, ref)
		if err != nil {
			return nil, stats, &FrameError{Index: i, Ref: ref, Err: err}
		}
		stats.Bytes += int64(n)
		if i == 0 {
			stack, err = imagestack.New(frame)
		} else {
			err = stack.Append(frame)
		}
		if err != nil {
			return nil, stats, &FrameError{Index: i, Ref: ref, Err: err}
		}
		stats.Frames++
	}
	return stack, stats, nil
}

func (f *Fetcher) concurrent(ctx context.Context, refs []string) (*imagestack.Stack, Stats, error) {
	frames := make([]imagestack.Frame, len(refs))
	sizes := make([]int, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			frame, n, err := f.Frame(gctx, ref)
			if err != nil {
				return &FrameError{Index: i, Ref: ref, Err: err}
			}
			frames[i], sizes[i] = frame, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}
	var stats Stats
	for _, n := range sizes {
		stats.Bytes += int64(n)
	}
	stack, err := imagestack.FromFrames(frames)
	if err != nil {
		return nil, stats, err
	}
	stats.Frames = stack.Len()
	return stack, stats, nil
}
