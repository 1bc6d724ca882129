// Package config loads heapkit profiles: the memory region to manage and
// where to log. Profiles are TOML files; every field has a default.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

const (
	// DefaultBase is the start of the on-board work RAM on the reference
	// target.
	DefaultBase = 0x02000000

	// DefaultSize is the size of the on-board work RAM (256 KiB).
	DefaultSize = 256 * 1024
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid profile")

// Config is a heapkit profile.
type Config struct {
	Region Region `toml:"region"`
	Log    Log    `toml:"log"`
}

// Region describes the memory handed to the allocator.
type Region struct {
	Base   uint32 `toml:"base"`
	Size   uint32 `toml:"size"`
	Mapped bool   `toml:"mapped"` // back the region with an anonymous mapping
}

// Log configures diagnostic logging.
type Log struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // empty logs to stderr
	Level   string `toml:"level"`
	JSON    bool   `toml:"json"`
}

// Default returns the built-in profile.
func Default() Config {
	return Config{
		Region: Region{Base: DefaultBase, Size: DefaultSize},
		Log:    Log{Level: "info"},
	}
}

// Load reads the profile at path over the defaults. Keys missing from the
// file keep their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a profile from r over the defaults and validates it.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the region is usable and the log level is known.
func (c Config) Validate() error {
	if _, err := c.MemRegion(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Region.Size < format.Granularity {
		return fmt.Errorf("%w: region size %d is smaller than one %d-byte granule",
			ErrInvalid, c.Region.Size, format.Granularity)
	}
	if _, ok := logger.LookupLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// MemRegion returns the configured region.
func (c Config) MemRegion() (mem.Region, error) {
	return mem.RegionOf(mem.Addr(c.Region.Base), c.Region.Size)
}

// LoggerOptions converts the log section for logger.Init.
func (c Config) LoggerOptions() logger.Options {
	return logger.Options{
		Enabled: c.Log.Enabled,
		LogDir:  c.Log.Dir,
		Level:   logger.ParseLevel(c.Log.Level),
		JSON:    c.Log.JSON,
	}
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
