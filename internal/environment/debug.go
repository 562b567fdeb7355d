package environment

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	KiB = 1024
	MiB = 1024 * KiB

	// DefaultArenaSize is the region each lexer arena gets when
	// PILOT_ARENA_SIZE is unset.
	DefaultArenaSize = 1 * MiB
)

func Debug() bool {
	return os.Getenv("DEBUG") == "true"
}

func TraceEnabled() bool {
	return os.Getenv("TRACE") == "true"
}

func JaegerEndpoint() string {
	url, ok := os.LookupEnv("JAEGER_ENDPOINT")
	if !ok {
		url = "http://localhost:14268/api/traces"
	}
	return url
}

// ArenaSize reads PILOT_ARENA_SIZE, e.g. "4096", "64KiB" or "2MiB".
func ArenaSize() (int, error) {
	v, ok := os.LookupEnv("PILOT_ARENA_SIZE")
	if !ok {
		return DefaultArenaSize, nil
	}
	return ParseSize(v)
}

func Workers() (int, error) {
	v, ok := os.LookupEnv("PILOT_WORKERS")
	if !ok {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("PILOT_WORKERS: invalid worker count %q", v)
	}
	return n, nil
}

// Rate reads PILOT_RATE, the number of sources tokenized per second. Zero
// means unlimited.
func Rate() (int, error) {
	v, ok := os.LookupEnv("PILOT_RATE")
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("PILOT_RATE: invalid rate %q", v)
	}
	return n, nil
}

// RatePerMinute reads PILOT_RATE_MINUTE, a cap on sources tokenized per
// minute on top of PILOT_RATE. Zero means unlimited.
func RatePerMinute() (int, error) {
	v, ok := os.LookupEnv("PILOT_RATE_MINUTE")
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("PILOT_RATE_MINUTE: invalid rate %q", v)
	}
	return n, nil
}

func ParseSize(v string) (int, error) {
	s := strings.TrimSpace(v)
	unit := 1
	switch {
	case strings.HasSuffix(s, "MiB"):
		unit, s = MiB, strings.TrimSuffix(s, "MiB")
	case strings.HasSuffix(s, "KiB"):
		unit, s = KiB, strings.TrimSuffix(s, "KiB")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > math.MaxInt/unit {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	return n * unit, nil
}
