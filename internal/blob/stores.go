package blob

import (
	fsstore "nwbview/internal/infra/blob/fs"
	"nwbview/internal/infra/blob/httpstore"
	memorystore "nwbview/internal/infra/blob/memory"
	infraS3 "nwbview/internal/infra/blob/s3"
)

type (
	// S3Config re-exports the infra S3 configuration type.
	S3Config = infraS3.Config
	// HTTPConfig re-exports the infra HTTP configuration type.
	HTTPConfig = httpstore.Config
	// HTTPStatusError re-exports the HTTP store's non-2xx error.
	HTTPStatusError = httpstore.StatusError
)

// NewFilesystem returns a Store reading plain files under root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns an in-memory Store serving objects, keyed as they appear
// after memory:// in a reference.
func NewMemory(objects map[string][]byte) Store { return memorystore.New(objects) }

// NewHTTP returns a read-only Store for http(s) URLs.
func NewHTTP(cfg HTTPConfig) Store { return httpstore.New(cfg) }

// S3ConfigFromEnv reads NWBVIEW_S3_* variables.
func S3ConfigFromEnv() S3Config { return infraS3.ConfigFromEnv() }

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
// objects is keyed by "bucket/key".
func NewMockS3ForTests(objects map[string][]byte) Store {
	return infraS3.NewMockForTests("", objects)
}
