//go:build !unix

package main

import (
	"errors"

	gpool "github.com/blong14/pilot/internal/pool"
)

func mappedRegion(string, int, bool) gpool.RegionFunc {
	return func(int) ([]byte, func() error, error) {
		return nil, nil, errors.New("mapped arenas need a unix system")
	}
}
