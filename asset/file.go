package asset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FileFetcher serves asset paths from a directory tree. Paths may not
// escape the root.
type FileFetcher struct {
	fsys fs.FS
}

func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{fsys: os.DirFS(root)}
}

func (f *FileFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Path: p, Err: err}
	}
	name := path.Clean(strings.TrimPrefix(p, "/"))
	if !fs.ValidPath(name) {
		return nil, &NetworkError{Path: p, Err: fmt.Errorf("invalid asset path")}
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return nil, &NetworkError{Path: p, Err: err}
	}
	return data, nil
}
