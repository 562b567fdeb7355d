//go:build unix

package main

import (
	"fmt"
	"path/filepath"

	garena "github.com/blong14/pilot/internal/arena"
	gerrors "github.com/blong14/pilot/internal/errors"
	gpool "github.com/blong14/pilot/internal/pool"
)

// mappedRegion backs each worker arena with a private mapping of its own
// file under dir, or with anonymous memory when dir is empty. Pinned
// regions are locked in RAM until the worker exits.
func mappedRegion(dir string, size int, pin bool) gpool.RegionFunc {
	return func(worker int) ([]byte, func() error, error) {
		var r *garena.Region
		var err error
		if dir == "" {
			r, err = garena.MapAnonymous(size)
		} else {
			path := filepath.Join(dir, fmt.Sprintf("arena-%d.dat", worker))
			r, err = garena.MapRegion(path, size, garena.Private())
		}
		if err != nil {
			return nil, nil, err
		}
		if !pin {
			return r.Bytes(), r.Close, nil
		}
		if err = r.Pin(); err != nil {
			return nil, nil, gerrors.Append(err, r.Close()).ErrorOrNil()
		}
		release := func() error {
			return gerrors.Append(r.Unpin(), r.Close()).ErrorOrNil()
		}
		return r.Bytes(), release, nil
	}
}
