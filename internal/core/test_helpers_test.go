package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"nwbview/pkg/imagestack"
	"nwbview/pkg/pluginapi"
)

// suffixPlugin accepts paths ending in ext and returns a stack of n h×w frames.
type suffixPlugin struct {
	name    string
	readers []pluginapi.Reader
	regErr  error
}

func (p *suffixPlugin) Name() string    { return p.name }
func (p *suffixPlugin) Version() string { return "1.0.0" }
func (p *suffixPlugin) Register(r pluginapi.Registry) error {
	if p.regErr != nil {
		return p.regErr
	}
	for _, rd := range p.readers {
		if err := r.RegisterReader(rd); err != nil {
			return err
		}
	}
	return nil
}

func stackReader(name, ext string, n, h, w int) pluginapi.Reader {
	return pluginapi.Reader{
		Name:       name,
		Extensions: []string{ext},
		GetReader: func(paths pluginapi.Paths) pluginapi.ReaderFunc {
			if !paths.HasSuffix(ext) {
				return nil
			}
			return func(context.Context, pluginapi.Paths) ([]pluginapi.LayerData, error) {
				frames := make([]imagestack.Frame, n)
				for i := range frames {
					frames[i] = imagestack.NewFrame(h, w)
				}
				st, err := imagestack.FromFrames(frames)
				if err != nil {
					return nil, err
				}
				return []pluginapi.LayerData{{Data: st, Options: map[string]any{}, Kind: pluginapi.LayerImage}}, nil
			}
		},
	}
}

var errBrokenRead = errors.New("broken read")

func failingReader(name, ext string) pluginapi.Reader {
	return pluginapi.Reader{
		Name:       name,
		Extensions: []string{ext},
		GetReader: func(paths pluginapi.Paths) pluginapi.ReaderFunc {
			if !strings.HasSuffix(paths.First(), ext) {
				return nil
			}
			return func(context.Context, pluginapi.Paths) ([]pluginapi.LayerData, error) {
				return nil, errBrokenRead
			}
		},
	}
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op    string
	err   error
	attrs map[string]any
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op, attrs: map[string]any{}}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
	attrs  map[string]any
}

func (s *captureSpan) SetAttribute(key string, value any) { s.attrs[key] = value }

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err, attrs: s.attrs})
}

// steppingClock advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}
