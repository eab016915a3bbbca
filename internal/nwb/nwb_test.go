package nwb

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// writeContainer builds a minimal NWB-shaped HDF5 file:
// /acquisition/image_series{starting_frame} and /acquisition/other.
func writeContainer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.nwb")
	f, err := hdf5.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	acq, err := f.Root().CreateGroup(AcquisitionGroup)
	if err != nil {
		t.Fatalf("create acquisition: %v", err)
	}
	series, err := acq.CreateGroup(DefaultSeriesName)
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	if _, err := series.CreateDataset(startingFrameDataset, []int64{0, 10}); err != nil {
		t.Fatalf("create starting_frame: %v", err)
	}
	if _, err := acq.CreateGroup("other"); err != nil {
		t.Fatalf("create other: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.nwb")); err == nil {
		t.Fatalf("expected missing file error")
	}
	junk := filepath.Join(t.TempDir(), "junk.nwb")
	if err := os.WriteFile(junk, []byte("definitely not hdf5"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(junk); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestAcquisitionLookup(t *testing.T) {
	f, err := Open(writeContainer(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	names, err := f.AcquisitionNames()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{DefaultSeriesName, "other"}) {
		t.Fatalf("names = %v", names)
	}

	_, err = f.Acquisition("absent")
	if !errors.Is(err, ErrSeriesNotFound) {
		t.Fatalf("expected series not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "(have image_series, other)") {
		t.Fatalf("not-found error should list acquisition children: %v", err)
	}

	series, err := f.Acquisition("")
	if err != nil {
		t.Fatalf("acquisition: %v", err)
	}
	if series.Name() != DefaultSeriesName || series.Path() != "/acquisition/image_series" {
		t.Fatalf("series = %s %s", series.Name(), series.Path())
	}
	if _, err := series.ExternalFile(); !errors.Is(err, ErrNoExternalFile) {
		t.Fatalf("expected missing external_file, got %v", err)
	}
	if ErrNoExternalFile.Error() != "Trying to read NWB ImageSeries' external data, but there is none." {
		t.Fatalf("message changed: %s", ErrNoExternalFile)
	}
	frames, err := series.StartingFrame()
	if err != nil || !reflect.DeepEqual(frames, []int64{0, 10}) {
		t.Fatalf("starting frame = %v, %v", frames, err)
	}
	if _, ok, err := series.Rate(); ok || err != nil {
		t.Fatalf("expected no rate, got %v %v", ok, err)
	}
	if format, err := series.Format(); format != "" || err != nil {
		t.Fatalf("expected no format, got %q %v", format, err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	f, err := Open(writeContainer(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.Dir() != filepath.Dir(f.Path()) {
		t.Fatalf("dir mismatch")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := f.Acquisition(""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func openSeries(t *testing.T, fixture string) *ImageSeries {
	t.Helper()
	f, err := Open(filepath.Join("testdata", fixture))
	if err != nil {
		t.Fatalf("open %s: %v", fixture, err)
	}
	t.Cleanup(func() { _ = f.Close() })
	series, err := f.Acquisition(DefaultSeriesName)
	if err != nil {
		t.Fatalf("acquisition: %v", err)
	}
	return series
}

func TestExternalFileFixture(t *testing.T) {
	series := openSeries(t, "external.nwb")
	want := []string{"memory://0.jpg", "memory://1.jpg"}
	refs, err := series.ExternalFile()
	if err != nil {
		t.Fatalf("external_file: %v", err)
	}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("external_file = %v, want %v", refs, want)
	}
	ext, err := series.External()
	if err != nil {
		t.Fatalf("external: %v", err)
	}
	if !reflect.DeepEqual(ext.Files, want) || ext.HasRate || ext.Rate != 0 {
		t.Fatalf("external = %+v", ext)
	}
}

func TestExternalFixtureErrors(t *testing.T) {
	if _, err := openSeries(t, "external_empty.nwb").ExternalFile(); !errors.Is(err, ErrEmptyExternalFile) {
		t.Fatalf("expected empty external_file, got %v", err)
	}
	if _, err := openSeries(t, "external_empty.nwb").External(); !errors.Is(err, ErrEmptyExternalFile) {
		t.Fatalf("expected empty external_file, got %v", err)
	}
	if _, err := openSeries(t, "external_multiframe.nwb").External(); !errors.Is(err, ErrFrameLayout) {
		t.Fatalf("expected frame layout error, got %v", err)
	}
}

func TestCheckLayout(t *testing.T) {
	cases := []struct {
		format   string
		files    int
		starting []int64
		want     error
	}{
		{"", 2, nil, nil},
		{FormatExternal, 2, []int64{0, 1}, nil},
		{"raw", 2, nil, ErrNotExternal},
		{"tiff", 1, []int64{0}, ErrNotExternal},
		{"", 2, []int64{0}, ErrFrameLayout},
		{"", 2, []int64{0, 5}, ErrFrameLayout},
		{"", 1, []int64{1}, ErrFrameLayout},
	}
	for _, tc := range cases {
		err := checkLayout(tc.format, tc.files, tc.starting)
		if tc.want == nil && err != nil {
			t.Fatalf("checkLayout(%q, %d, %v) = %v", tc.format, tc.files, tc.starting, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("checkLayout(%q, %d, %v) = %v, want %v", tc.format, tc.files, tc.starting, err, tc.want)
		}
	}
}
