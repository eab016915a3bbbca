// Package nwb reads the parts of an NWB (Neurodata Without Borders) container
// the viewer needs. NWB files are HDF5 files; acquisition data lives under
// /acquisition and an ImageSeries may point at frames stored outside the file
// through its external_file dataset.
package nwb

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/robert-malhotra/go-hdf5/hdf5"
)

var log = logging.Logger("nwbview/nwb")

const (
	// Extension is the file suffix NWB containers use.
	Extension = ".nwb"
	// AcquisitionGroup holds raw acquired data series.
	AcquisitionGroup = "acquisition"
	// DefaultSeriesName is the acquisition child read when none is configured.
	DefaultSeriesName = "image_series"
	// FormatExternal is the ImageSeries format value for referenced frames.
	FormatExternal = "external"

	externalFileDataset  = "external_file"
	startingFrameDataset = "starting_frame"
	startingTimeDataset  = "starting_time"
	formatDataset        = "format"
	rateAttr             = "rate"
)

var (
	// ErrSeriesNotFound is returned when the named acquisition child is absent.
	ErrSeriesNotFound = errors.New("nwb: image series not found in acquisition")
	// ErrNoExternalFile is returned when the series has no external_file dataset.
	ErrNoExternalFile = errors.New("Trying to read NWB ImageSeries' external data, but there is none.") //nolint:stylecheck // fixed user-facing message
	// ErrEmptyExternalFile is returned when external_file exists but lists nothing.
	ErrEmptyExternalFile = errors.New("nwb: image series external_file list is empty")
	// ErrNotExternal is returned when the series format names inline storage.
	ErrNotExternal = errors.New("nwb: image series format is not external")
	// ErrFrameLayout is returned when starting_frame does not describe one
	// frame per external file.
	ErrFrameLayout = errors.New("nwb: external files must hold exactly one frame each")
	// ErrClosed is returned by operations on a closed File.
	ErrClosed = errors.New("nwb: file is closed")
)

// File is an NWB container opened read-only.
type File struct {
	path string
	h5   *hdf5.File
}

// Open opens path as an HDF5 container. Errors from the HDF5 library are
// wrapped, so errors.Is matches its sentinels (hdf5.ErrNotHDF5 etc.).
func Open(path string) (*File, error) {
	h5, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nwb %s: %w", path, err)
	}
	log.Debugw("opened container", "path", path, "superblock", h5.Version())
	return &File{path: path, h5: h5}, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Dir returns the directory relative external_file entries resolve against.
func (f *File) Dir() string { return filepath.Dir(f.path) }

// Close releases the underlying handle. It is safe to call more than once.
func (f *File) Close() error {
	if f.h5 == nil {
		return nil
	}
	err := f.h5.Close()
	f.h5 = nil
	return err
}

// AcquisitionNames lists the children of /acquisition in sorted order.
func (f *File) AcquisitionNames() ([]string, error) {
	if f.h5 == nil {
		return nil, ErrClosed
	}
	g, err := f.h5.OpenGroup("/" + AcquisitionGroup)
	if err != nil {
		return nil, fmt.Errorf("open /%s: %w", AcquisitionGroup, err)
	}
	names, err := g.Members()
	if err != nil {
		return nil, fmt.Errorf("list /%s: %w", AcquisitionGroup, err)
	}
	sort.Strings(names)
	return names, nil
}

// Acquisition returns the image series stored at /acquisition/<name>.
func (f *File) Acquisition(name string) (*ImageSeries, error) {
	if f.h5 == nil {
		return nil, ErrClosed
	}
	if name == "" {
		name = DefaultSeriesName
	}
	p := "/" + AcquisitionGroup + "/" + name
	g, err := f.h5.OpenGroup(p)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s in %s%s", ErrSeriesNotFound, p, f.path, f.available())
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return &ImageSeries{name: name, path: p, group: g}, nil
}

// available renders the acquisition children for a not-found error.
func (f *File) available() string {
	names, err := f.AcquisitionNames()
	if err != nil {
		return " (no /" + AcquisitionGroup + " group)"
	}
	if len(names) == 0 {
		return " (/" + AcquisitionGroup + " is empty)"
	}
	return " (have " + strings.Join(names, ", ") + ")"
}
