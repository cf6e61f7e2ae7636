package blob

import (
	"spreadsim/internal/infra/blob/fs"
)

// NewFilesystem returns an artifact store rooted at the given directory.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
