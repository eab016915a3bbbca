package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nwbview/internal/history"
	"nwbview/pkg/pluginapi"
)

type failingHistory struct{ history.Store }

func (failingHistory) Record(context.Context, history.Entry) error { return errors.New("disk full") }

func TestInstallPluginOrderAndMetadata(t *testing.T) {
	svc := NewService()
	first := &suffixPlugin{name: "first", readers: []pluginapi.Reader{stackReader("first.tif", ".tif", 1, 2, 2)}}
	second := &suffixPlugin{name: "second", readers: []pluginapi.Reader{
		stackReader("second.tif", ".tif", 3, 2, 2),
		stackReader("second.nwb", ".nwb", 2, 4, 4),
	}}
	for _, p := range []Plugin{first, second} {
		if _, err := svc.InstallPlugin(p); err != nil {
			t.Fatalf("install %s: %v", p.Name(), err)
		}
	}
	plugins := svc.RegisteredPlugins()
	if len(plugins) != 2 || plugins[0].Name != "first" || plugins[1].Name != "second" {
		t.Fatalf("plugins = %+v", plugins)
	}
	if len(plugins[1].Readers) != 2 || plugins[1].Readers[1].Extensions[0] != ".nwb" {
		t.Fatalf("readers = %+v", plugins[1].Readers)
	}
	plugins[1].Readers[1].Extensions[0] = "mutated"
	if svc.RegisteredPlugins()[1].Readers[1].Extensions[0] != ".nwb" {
		t.Fatalf("metadata should be returned by copy")
	}

	match, err := svc.GetReader(pluginapi.PathOf("a.tif"))
	if err != nil || match.Plugin != "first" || match.Reader != "first.tif" {
		t.Fatalf("expected first installed reader, got %+v %v", match, err)
	}
	match, err = svc.GetReader(pluginapi.Paths{"a.nwb", "b.tif"})
	if err != nil || match.Reader != "second.nwb" {
		t.Fatalf("expected nwb reader, got %+v %v", match, err)
	}
}

func TestInstallPluginRejects(t *testing.T) {
	svc := NewService()
	if _, err := svc.InstallPlugin(nil); err == nil {
		t.Fatalf("expected nil plugin error")
	}
	p := &suffixPlugin{name: "p", readers: []pluginapi.Reader{stackReader("r", ".tif", 1, 1, 1)}}
	if _, err := svc.InstallPlugin(p); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := svc.InstallPlugin(p); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate plugin error, got %v", err)
	}
	clash := &suffixPlugin{name: "other", readers: []pluginapi.Reader{stackReader("r", ".png", 1, 1, 1)}}
	if _, err := svc.InstallPlugin(clash); err == nil || !strings.Contains(err.Error(), "already provided") {
		t.Fatalf("expected duplicate reader error, got %v", err)
	}
	twice := &suffixPlugin{name: "twice", readers: []pluginapi.Reader{
		stackReader("dup", ".a", 1, 1, 1),
		stackReader("dup", ".b", 1, 1, 1),
	}}
	if _, err := svc.InstallPlugin(twice); err == nil {
		t.Fatalf("expected duplicate reader inside one plugin to fail")
	}
	broken := &suffixPlugin{name: "broken", regErr: errors.New("nope")}
	if _, err := svc.InstallPlugin(broken); err == nil || !strings.Contains(err.Error(), "register plugin broken") {
		t.Fatalf("expected registration error, got %v", err)
	}
	invalid := &suffixPlugin{name: "invalid", readers: []pluginapi.Reader{{Name: "x"}}}
	if _, err := svc.InstallPlugin(invalid); err == nil {
		t.Fatalf("expected invalid reader error")
	}
	if got := len(svc.RegisteredPlugins()); got != 1 {
		t.Fatalf("failed installs must not register, have %d", got)
	}
}

func TestGetReaderNoMatch(t *testing.T) {
	svc := NewService()
	if _, err := svc.GetReader(pluginapi.PathOf("a.nwb")); !errors.Is(err, ErrNoReader) {
		t.Fatalf("expected ErrNoReader, got %v", err)
	}
	if _, err := svc.Read(context.Background(), nil); !errors.Is(err, ErrNoReader) {
		t.Fatalf("expected ErrNoReader for empty paths, got %v", err)
	}
}

func TestReadRecordsHistory(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(WithClock(steppingClock(start, time.Second)))
	if _, err := svc.InstallPlugin(&suffixPlugin{name: "nwb", readers: []pluginapi.Reader{stackReader("nwb.series", ".nwb", 2, 50, 50)}}); err != nil {
		t.Fatalf("install: %v", err)
	}
	ctx := context.Background()
	layers, err := svc.Read(ctx, pluginapi.PathOf("session.nwb"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(layers) != 1 || layers[0].Data.Shape() != [3]int{2, 50, 50} {
		t.Fatalf("layers = %+v", layers)
	}
	if _, err := svc.Read(ctx, pluginapi.PathOf("other.nwb")); err != nil {
		t.Fatalf("second read: %v", err)
	}

	entries, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "other.nwb" {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[1]
	if e.Plugin != "nwb" || e.Reader != "nwb.series" || e.Layers != 1 || e.Shape != [3]int{2, 50, 50} || e.Bytes != 5000 {
		t.Fatalf("entry = %+v", e)
	}
	if !e.OpenedAt.Equal(start) {
		t.Fatalf("opened at = %v", e.OpenedAt)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestReadFailureSkipsHistory(t *testing.T) {
	svc := NewService()
	if _, err := svc.InstallPlugin(&suffixPlugin{name: "bad", readers: []pluginapi.Reader{failingReader("bad", ".nwb")}}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := svc.Read(context.Background(), pluginapi.PathOf("x.nwb")); !errors.Is(err, errBrokenRead) {
		t.Fatalf("expected reader error, got %v", err)
	}
	if entries, _ := svc.History(context.Background(), 0); len(entries) != 0 {
		t.Fatalf("failed reads must not be recorded: %+v", entries)
	}
}

func TestHistoryFailureDoesNotFailRead(t *testing.T) {
	svc := NewService(WithHistory(failingHistory{}))
	if _, err := svc.InstallPlugin(&suffixPlugin{name: "p", readers: []pluginapi.Reader{stackReader("r", ".nwb", 1, 1, 1)}}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := svc.Read(context.Background(), pluginapi.PathOf("x.nwb")); err != nil {
		t.Fatalf("read should succeed despite history error: %v", err)
	}
}
