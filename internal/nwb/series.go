package nwb

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// ImageSeries is an acquisition child holding image data. Only the
// external-reference form is read; inline data is ignored.
type ImageSeries struct {
	name  string
	path  string
	group *hdf5.Group
}

// External is the validated external-reference view of a series.
type External struct {
	// Files lists the frame references in display order.
	Files []string
	// Rate is the sampling rate in Hz; zero when HasRate is false.
	Rate    float64
	HasRate bool
}

// External reads external_file and checks it against the optional format
// and starting_frame fields. A missing external_file always reports
// ErrNoExternalFile first.
func (s *ImageSeries) External() (External, error) {
	files, err := s.ExternalFile()
	if err != nil {
		return External{}, err
	}
	format, err := s.Format()
	if err != nil {
		return External{}, err
	}
	starting, err := s.StartingFrame()
	if err != nil {
		return External{}, err
	}
	if err := checkLayout(format, len(files), starting); err != nil {
		return External{}, fmt.Errorf("%s: %w", s.path, err)
	}
	rate, ok, err := s.Rate()
	if err != nil {
		return External{}, err
	}
	return External{Files: files, Rate: rate, HasRate: ok}, nil
}

func checkLayout(format string, files int, starting []int64) error {
	if format != "" && format != FormatExternal {
		return fmt.Errorf("%w: %q", ErrNotExternal, format)
	}
	if starting == nil {
		return nil
	}
	if len(starting) != files {
		return fmt.Errorf("%w: %d starting_frame entries for %d files", ErrFrameLayout, len(starting), files)
	}
	for i, v := range starting {
		if v != int64(i) {
			return fmt.Errorf("%w: file %d starts at frame %d", ErrFrameLayout, i, v)
		}
	}
	return nil
}

// Name returns the acquisition key of the series.
func (s *ImageSeries) Name() string { return s.name }

// Path returns the absolute HDF5 path of the series group.
func (s *ImageSeries) Path() string { return s.path }

// ExternalFile returns the ordered external_file references. A missing
// dataset yields ErrNoExternalFile and an empty one ErrEmptyExternalFile.
func (s *ImageSeries) ExternalFile() ([]string, error) {
	ds, err := s.group.OpenDataset(externalFileDataset)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, ErrNoExternalFile
		}
		return nil, fmt.Errorf("open %s/%s: %w", s.path, externalFileDataset, err)
	}
	refs, err := ds.ReadString()
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.path, externalFileDataset, err)
	}
	if len(refs) == 0 {
		return nil, ErrEmptyExternalFile
	}
	return refs, nil
}

// StartingFrame returns the index of the first frame in each external file,
// or nil when the optional dataset is absent.
func (s *ImageSeries) StartingFrame() ([]int64, error) {
	ds, err := s.group.OpenDataset(startingFrameDataset)
	if errors.Is(err, hdf5.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", s.path, startingFrameDataset, err)
	}
	return ds.ReadInt64()
}

// Rate returns the sampling rate in Hz stored on starting_time, if any.
func (s *ImageSeries) Rate() (float64, bool, error) {
	ds, err := s.group.OpenDataset(startingTimeDataset)
	if errors.Is(err, hdf5.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("open %s/%s: %w", s.path, startingTimeDataset, err)
	}
	attr := ds.Attr(rateAttr)
	if attr == nil {
		return 0, false, nil
	}
	rate, err := attr.ReadScalarFloat64()
	if err != nil {
		return 0, false, fmt.Errorf("read %s/%s@%s: %w", s.path, startingTimeDataset, rateAttr, err)
	}
	return rate, true, nil
}

// Format returns the series storage format, "external" for referenced frames,
// or "" when unset.
func (s *ImageSeries) Format() (string, error) {
	ds, err := s.group.OpenDataset(formatDataset)
	if errors.Is(err, hdf5.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open %s/%s: %w", s.path, formatDataset, err)
	}
	vals, err := ds.ReadString()
	if err != nil {
		return "", fmt.Errorf("read %s/%s: %w", s.path, formatDataset, err)
	}
	if len(vals) == 0 {
		return "", nil
	}
	return vals[0], nil
}
