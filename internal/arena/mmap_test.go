//go:build unix

package arena_test

import (
	"os"
	"path/filepath"
	"testing"

	garena "github.com/blong14/pilot/internal/arena"
)

func TestMapRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.dat")
	region, err := garena.MapRegion(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	a := garena.New(region.Bytes())
	block, err := a.Allocate(5)
	if err != nil {
		t.Fatal(err)
	}
	copy(block, "pilot")
	if err = region.Close(); err != nil {
		t.Error(err)
	}

	dat, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(dat) != 4096 {
		t.Errorf("file size = %d, want 4096", len(dat))
	}
	if string(dat[:5]) != "pilot" {
		t.Errorf("mapped write not persisted: %q", dat[:5])
	}
}

func TestMapRegion_Private(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.dat")
	region, err := garena.MapRegion(path, 4096, garena.Private())
	if err != nil {
		t.Fatal(err)
	}
	copy(region.Bytes(), "pilot")
	if err = region.Close(); err != nil {
		t.Error(err)
	}
	dat, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(dat[:5]) == "pilot" {
		t.Error("private mapping leaked to disk")
	}
}

func TestMapAnonymous(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "should map a page", size: 4096},
		{name: "should reject an empty region", size: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, err := garena.MapAnonymous(tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MapAnonymous() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer func() {
				if err := region.Close(); err != nil {
					t.Error(err)
				}
			}()
			a := garena.New(region.Bytes())
			if a.Cap() != tt.size {
				t.Errorf("Cap() = %d, want %d", a.Cap(), tt.size)
			}
			if _, err := a.Allocate(tt.size); err != nil {
				t.Error(err)
			}
			if _, err := a.Allocate(1); err == nil {
				t.Error("expected out of memory")
			}
		})
	}
}
