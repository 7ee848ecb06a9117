// Package configwatch adds optional hot-reload of a cache's live-safe
// tunables from a watched configuration file. It is grounded on
// agilira-balios's HotConfig: maximumSize, maximumWeight, shard count,
// and eviction policy are fixed for the life of a cache.Cache (changing
// them needs a new ShardedMap and policy state), but
// expireAfterWrite/expireAfterAccess/refreshAfterWrite are read
// atomically on every lazy check, so they can be swapped live.
package configwatch

import (
	"fmt"
	"time"

	"github.com/agilira/argus"

	"github.com/nullforge/corecache/cache"
)

// Reloader watches a configuration file and applies TTL changes to a
// cache.HotReloadable as they are observed. It does not depend on the
// cache's key/value type parameters: only cache.TTLs cross the seam.
type Reloader struct {
	target  cache.HotReloadable
	watcher *argus.Watcher

	// OnReload, if set, is invoked with the newly applied TTLs after a
	// config file change has been picked up. Must be fast and
	// non-blocking; it runs on argus's polling goroutine.
	OnReload func(cache.TTLs)
}

// Options configures New.
type Options struct {
	// ConfigPath is the file to watch. argus.UniversalConfigWatcher
	// infers format (JSON, YAML, TOML, HCL, INI, Properties) from the
	// file extension.
	ConfigPath string

	// PollInterval defaults to 1s and is floored at 100ms.
	PollInterval time.Duration

	OnReload func(cache.TTLs)
}

// New creates a Reloader for target and starts watching immediately.
//
// Recognized keys under a top-level "cache" section (any key may be
// omitted, in which case that TTL is left unchanged):
//
//	cache:
//	  expire_after_write: "50ms"
//	  expire_after_access: "30s"
//	  refresh_after_write: "20ms"
//
// maximumSize/maximumWeight/policy are not recognized here; they require
// rebuilding the cache via cache.Builder.
func New(target cache.HotReloadable, opts Options) (*Reloader, error) {
	if target == nil {
		return nil, fmt.Errorf("configwatch: target must not be nil")
	}
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("configwatch: ConfigPath is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	r := &Reloader{target: target, OnReload: opts.OnReload}

	argusCfg := argus.Config{PollInterval: opts.PollInterval}
	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, r.apply, argusCfg)
	if err != nil {
		return nil, err
	}
	r.watcher = watcher
	return r, nil
}

// Start begins watching the configuration file. Safe to call when
// already running; argus itself no-ops a double-start.
func (r *Reloader) Start() error {
	if r.watcher.IsRunning() {
		return nil
	}
	return r.watcher.Start()
}

// Stop stops watching. The cache keeps whatever TTLs were last applied.
func (r *Reloader) Stop() error {
	return r.watcher.Stop()
}

func (r *Reloader) apply(data map[string]interface{}) {
	section, ok := data["cache"].(map[string]interface{})
	if !ok {
		section = data
	}

	next := r.target.TTLs()
	if d, ok := parseDuration(section["expire_after_write"]); ok {
		next.ExpireAfterWrite = d
	}
	if d, ok := parseDuration(section["expire_after_access"]); ok {
		next.ExpireAfterAccess = d
	}
	if d, ok := parseDuration(section["refresh_after_write"]); ok {
		next.RefreshAfterWrite = d
	}

	r.target.SetTTLs(next)
	if r.OnReload != nil {
		r.OnReload(next)
	}
}

func parseDuration(v interface{}) (time.Duration, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}
