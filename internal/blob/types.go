// Package blob is the entry point for artifact storage. Callers depend on the
// Store interface re-exported here; the drivers live under internal/infra/blob.
package blob

import (
	"spreadsim/internal/blob/core"
)

type (
	// Driver identifies an artifact backend.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// URLOptions configures retrieval URLs.
	URLOptions = core.URLOptions
	// Info describes a stored artifact.
	Info = core.Info
	// Store is implemented by every artifact backend.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrUnsupported = core.ErrUnsupported
)
