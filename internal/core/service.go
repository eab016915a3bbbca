// Package core hosts reader plugins: it installs them, dispatches paths to
// the first reader that accepts them and records what was opened.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"nwbview/internal/history"
	"nwbview/internal/infra/persistence/memory"
	"nwbview/pkg/pluginapi"
)

var log = logging.Logger("nwbview/core")

// ErrNoReader is returned when no installed reader accepts a path.
var ErrNoReader = errors.New("no reader accepts path")

// OperationRead labels metrics and spans emitted by Read.
const OperationRead = "read"

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the span sink.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithHistory sets where successful reads are recorded.
func WithHistory(store history.Store) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.history = store
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type installedReader struct {
	plugin string
	reader pluginapi.Reader
}

// Service dispatches reads to installed plugins.
type Service struct {
	mu      sync.RWMutex
	plugins map[string]PluginMetadata
	order   []string
	readers []installedReader

	history history.Store
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// NewService constructs a service with an in-memory history unless
// WithHistory is given.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		plugins: make(map[string]PluginMetadata),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = memory.NewStore(0)
	}
	return s
}

// InstallPlugin registers a plugin's readers after the ones already installed.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	name := plugin.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[name]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", name)
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, fmt.Errorf("register plugin %s: %w", name, err)
	}
	readers := registry.Readers()
	for _, rd := range readers {
		for _, existing := range s.readers {
			if existing.reader.Name == rd.Name {
				return PluginMetadata{}, fmt.Errorf("reader %s already provided by plugin %s", rd.Name, existing.plugin)
			}
		}
	}

	meta := PluginMetadata{Name: name, Version: plugin.Version()}
	for _, rd := range readers {
		s.readers = append(s.readers, installedReader{plugin: name, reader: rd})
		meta.Readers = append(meta.Readers, ReaderDescriptor{Name: rd.Name, Extensions: rd.Extensions})
	}
	s.plugins[name] = meta
	s.order = append(s.order, name)
	log.Infow("plugin installed", "plugin", name, "version", meta.Version, "readers", len(readers))
	return meta.clone(), nil
}

// RegisteredPlugins returns installed plugins in install order.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.plugins[name].clone())
	}
	return out
}

// ReaderMatch is the reader chosen for a path.
type ReaderMatch struct {
	Plugin string
	Reader string
	Read   pluginapi.ReaderFunc
}

// GetReader asks each reader, in install order, whether it accepts paths.
func (s *Service) GetReader(paths pluginapi.Paths) (ReaderMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ir := range s.readers {
		if fn := ir.reader.GetReader(paths); fn != nil {
			return ReaderMatch{Plugin: ir.plugin, Reader: ir.reader.Name, Read: fn}, nil
		}
	}
	return ReaderMatch{}, fmt.Errorf("%w: %q", ErrNoReader, paths.First())
}

// Read dispatches paths to the matching reader and records the outcome.
// History failures are logged and do not fail the read.
func (s *Service) Read(ctx context.Context, paths pluginapi.Paths) (layers []pluginapi.LayerData, err error) {
	ctx, span := s.tracer.Start(ctx, OperationRead)
	start := s.now()
	span.SetAttribute("path", paths.First())
	defer func() {
		s.metrics.Observe(ctx, OperationRead, err == nil, s.now().Sub(start))
		span.End(err)
	}()

	match, err := s.GetReader(paths)
	if err != nil {
		return nil, err
	}
	span.SetAttribute("reader", match.Reader)
	layers, err = match.Read(ctx, paths)
	if err != nil {
		log.Debugw("read failed", "path", paths.First(), "reader", match.Reader, "err", err)
		return nil, err
	}

	entry := history.NewEntry(paths.First(), match.Plugin, match.Reader, start)
	entry.Layers = len(layers)
	for i, l := range layers {
		if l.Data == nil {
			continue
		}
		if i == 0 {
			entry.Shape = l.Data.Shape()
		}
		entry.Bytes += int64(len(l.Data.Bytes()))
	}
	span.SetAttribute("shape", entry.Shape)
	if herr := s.history.Record(ctx, entry); herr != nil {
		log.Warnw("recording history failed", "path", entry.Path, "err", herr)
	}
	return layers, nil
}

// History returns the most recent successful reads, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	return s.history.Recent(ctx, limit)
}

// Close releases the history store.
func (s *Service) Close() error {
	return s.history.Close()
}
