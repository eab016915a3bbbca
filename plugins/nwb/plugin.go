// Package nwb is the reader plugin for NWB files whose image series keep
// their frames in external image files.
package nwb

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"

	"nwbview/internal/blob"
	"nwbview/internal/fetch"
	"nwbview/internal/imaging"
	nwbfile "nwbview/internal/nwb"
	"nwbview/pkg/pluginapi"
)

var log = logging.Logger("nwbview/plugins/nwb")

// ReaderName identifies the reader contribution.
const ReaderName = "nwb.external_image_series"

type imageSeries interface {
	External() (nwbfile.External, error)
}

type container interface {
	Series(name string) (imageSeries, error)
	Dir() string
	Close() error
}

type fileContainer struct{ *nwbfile.File }

func (c fileContainer) Series(name string) (imageSeries, error) {
	s, err := c.Acquisition(name)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var openContainer = func(path string) (container, error) {
	f, err := nwbfile.Open(path)
	if err != nil {
		return nil, err
	}
	return fileContainer{f}, nil
}

// Plugin reads /acquisition/<series>/external_file frames into one image layer.
type Plugin struct {
	cfg Config
	dec *imaging.Decoder
}

// New constructs the plugin.
func New(cfg Config) (*Plugin, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dec, err := imaging.NewDecoder(cfg.ColorMode)
	if err != nil {
		return nil, err
	}
	return &Plugin{cfg: cfg, dec: dec}, nil
}

// Name returns the plugin identifier.
func (*Plugin) Name() string { return "nwb" }

// Version returns the plugin semantic version.
func (*Plugin) Version() string { return "0.2.0" }

// Register contributes the NWB reader.
func (p *Plugin) Register(registry pluginapi.Registry) error {
	return registry.RegisterReader(pluginapi.Reader{
		Name:       ReaderName,
		Extensions: []string{nwbfile.Extension},
		GetReader:  p.GetReader,
	})
}

// GetReader returns Read when the first path ends in ".nwb" and nil otherwise.
func (p *Plugin) GetReader(paths pluginapi.Paths) pluginapi.ReaderFunc {
	if !paths.HasSuffix(nwbfile.Extension) {
		return nil
	}
	return p.Read
}

// Read opens the first path, fetches every external frame of the configured
// image series in order and returns them as a single image layer.
func (p *Plugin) Read(ctx context.Context, paths pluginapi.Paths) (layers []pluginapi.LayerData, err error) {
	path := paths.First()
	start := time.Now()
	c, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close %s: %w", path, cerr))
			layers = nil
		}
	}()

	series, err := c.Series(p.cfg.SeriesName)
	if err != nil {
		return nil, err
	}
	ext, err := series.External()
	if err != nil {
		return nil, err
	}
	refs := ext.Files
	log.Infow("reading external image series", "path", path, "series", p.cfg.SeriesName, "frames", len(refs), "rate_hz", ext.Rate)

	res, err := blob.NewResolver(blob.ResolverConfig{
		BaseDir: c.Dir(),
		HTTP:    blob.HTTPConfig{Timeout: p.cfg.FetchTimeout, UserAgent: "nwbview"},
		S3:      p.cfg.S3,
		S3Store: p.cfg.S3Store,
		Memory:  p.cfg.Memory,
	})
	if err != nil {
		return nil, err
	}
	fetcher := fetch.New(res, p.dec, fetch.Config{Concurrency: p.cfg.Concurrency, Retries: p.cfg.Retries})
	stack, stats, err := fetcher.Stack(ctx, refs)
	if err != nil {
		return nil, err
	}
	if p.cfg.Diagnostics != nil {
		fmt.Fprintln(p.cfg.Diagnostics, stack.String())
	}
	log.Infow("stacked external frames", "path", path, "shape", stack.String(), "bytes", stats.Bytes, "elapsed", time.Since(start))
	return []pluginapi.LayerData{{
		Data:    stack,
		Options: map[string]any{},
		Kind:    pluginapi.LayerImage,
	}}, nil
}
