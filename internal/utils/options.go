package util

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Eviction policy names accepted in Options.Policy
const (
	PolicyClock         = "clock"
	PolicyLRU           = "lru"
	PolicyDeterministic = "deterministic"
)

// Options represents database configuration options
type Options struct {
	Path           string
	BufferPoolSize int
	Policy         string
	ClockMaxUsage  int
	SyncWrites     bool
	LogLevel       string
}

// DefaultOptions returns default database options
func DefaultOptions() Options {
	return Options{
		Path:           "pagedb.dat",
		BufferPoolSize: 1000, // 4MB default buffer pool
		Policy:         PolicyClock,
		ClockMaxUsage:  1,
		SyncWrites:     false,
		LogLevel:       "info",
	}
}

func (o Options) Validate() error {
	if o.BufferPoolSize <= 0 {
		return errors.Wrapf(ErrInvalidPoolSize, "buffer_pool_size=%d", o.BufferPoolSize)
	}
	switch o.Policy {
	case PolicyClock, PolicyLRU, PolicyDeterministic:
	default:
		return errors.Wrapf(ErrInvalidPolicy, "policy=%q", o.Policy)
	}
	if o.ClockMaxUsage <= 0 {
		return errors.Wrapf(ErrInvalidClockUsage, "clock_max_usage=%d", o.ClockMaxUsage)
	}
	return nil
}

/*
LoadOptions reads an ini file of the form

	[storage]
	path             = data/pagedb.dat
	buffer_pool_size = 64
	policy           = lru
	clock_max_usage  = 1
	sync_writes      = true

	[log]
	level = debug

Keys that are absent keep their DefaultOptions value.
*/
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	cfg, err := ini.Load(path)
	if err != nil {
		return opts, errors.Wrapf(err, "load config %s", path)
	}

	storage := cfg.Section("storage")
	opts.Path = storage.Key("path").MustString(opts.Path)
	opts.BufferPoolSize = storage.Key("buffer_pool_size").MustInt(opts.BufferPoolSize)
	opts.Policy = strings.ToLower(storage.Key("policy").MustString(opts.Policy))
	opts.ClockMaxUsage = storage.Key("clock_max_usage").MustInt(opts.ClockMaxUsage)
	opts.SyncWrites = storage.Key("sync_writes").MustBool(opts.SyncWrites)

	opts.LogLevel = cfg.Section("log").Key("level").MustString(opts.LogLevel)

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
