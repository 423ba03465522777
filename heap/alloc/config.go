package alloc

import (
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/internal/layout"
)

const (
	// WordSize is the allocation granule. Requests are rounded up to it.
	WordSize = layout.WordSize

	// HeaderSize is the per-block overhead in bytes.
	HeaderSize = layout.HeaderSize
)

// Runtime debug flag for allocation logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// Config describes the heap geometry and policy.
type Config struct {
	// Name for this configuration (for reports)
	Name string

	Capacity    int      // fixed size of the backing store
	InitialSize int      // break after initialization; one free block spans it
	GrowthStep  int      // bytes committed per break extension
	Strategy    Strategy // free-list search policy

	// Paranoid runs Check after every mutating operation and panics with an
	// assertion error when the free list is found corrupt.
	Paranoid bool

	// Logger receives debug records for growth, trims and rejected frees.
	// Nil discards them unless HEAPKIT_LOG_ALLOC is set.
	Logger *slog.Logger
}

// Predefined configurations.
var (
	// ConfigSmall: a 64KB store growing 1KB at a time. Good for tests and
	// scripts where every block is worth inspecting.
	ConfigSmall = Config{
		Name:        "Small",
		Capacity:    64 << 10,
		InitialSize: 1 << 10,
		GrowthStep:  1 << 10,
		Strategy:    FirstFit,
	}

	// ConfigBalanced: 16MB store, 8KB initial extent, 4KB pages.
	ConfigBalanced = Config{
		Name:        "Balanced",
		Capacity:    16 << 20,
		InitialSize: 8 << 10,
		GrowthStep:  4 << 10,
		Strategy:    FirstFit,
	}

	// ConfigLarge: 1GB store growing in 1MB steps, best-fit to keep big
	// blocks intact for big requests.
	ConfigLarge = Config{
		Name:        "Large",
		Capacity:    1 << 30,
		InitialSize: 1 << 20,
		GrowthStep:  1 << 20,
		Strategy:    BestFit,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigBalanced
)

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Capacity <= 0 || !layout.IsWordAligned(c.Capacity):
		return errors.Wrapf(ErrBadConfig, "capacity %d must be a positive multiple of %d", c.Capacity, WordSize)
	case c.InitialSize < layout.MinGrowthStep || !layout.IsWordAligned(c.InitialSize):
		return errors.Wrapf(ErrBadConfig, "initial size %d must be a multiple of %d and at least %d",
			c.InitialSize, WordSize, layout.MinGrowthStep)
	case c.InitialSize > c.Capacity:
		return errors.Wrapf(ErrBadConfig, "initial size %d exceeds capacity %d", c.InitialSize, c.Capacity)
	case c.GrowthStep < layout.MinGrowthStep || !layout.IsWordAligned(c.GrowthStep):
		return errors.Wrapf(ErrBadConfig, "growth step %d must be a multiple of %d and at least %d",
			c.GrowthStep, WordSize, layout.MinGrowthStep)
	case c.Strategy != FirstFit && c.Strategy != BestFit:
		return errors.Wrapf(ErrBadConfig, "unknown strategy %d", c.Strategy)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
