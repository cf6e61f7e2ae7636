package blob

import (
	memorystore "spreadsim/internal/infra/blob/memory"
)

// NewMemory returns an in-process artifact store.
func NewMemory() Store { return memorystore.New() }
