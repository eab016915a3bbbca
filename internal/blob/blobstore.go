// Package blob is the only package allowed to import the infra blob stores.
// It re-exports their shared types and resolves external frame references to
// a store and key.
package blob

import "nwbview/internal/blob/core"

type (
	Driver = core.Driver
	Info   = core.Info
	Store  = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
	DriverHTTP       = core.DriverHTTP
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
)
