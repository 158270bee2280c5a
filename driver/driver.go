// Package driver is the driver registry: early and deferred init lists
// plus a name blacklist, grounded in the original kernel's
// DRIVER_EXPORT/DRIVER_DEFER section-based registry (sys/include/sys/driver.h)
// and its FNV-1 name blacklist (sys/kern/driver_blacklist.c). Go has no
// linker-section equivalent, so drivers register into these lists at
// package-init time instead of being discovered from a binary section.
package driver

import (
	"sync"

	"hyra/defs"
	"hyra/hashtable"
)

/// InitFunc is a driver's entry point, returning a negative Err_t on
/// failure.
type InitFunc func() defs.Err_t

type entry_t struct {
	name     string
	init     InitFunc
	deferred bool
}

var (
	mu       sync.Mutex
	early    []entry_t
	deferred []entry_t
)

/// Export registers an early (high-priority) driver, run during
/// DriversInit.
func Export(name string, init InitFunc) {
	mu.Lock()
	defer mu.Unlock()
	early = append(early, entry_t{name: name, init: init})
}

/// Defer registers a deferred (low-priority) driver, run only after
/// DriversInit completes, via DriversRunDeferred.
func Defer(name string, init InitFunc) {
	mu.Lock()
	defer mu.Unlock()
	deferred = append(deferred, entry_t{name: name, init: init, deferred: true})
}

/// DriversInit runs every registered early driver not on the blacklist,
/// in registration order, collecting any failures rather than aborting
/// on the first one.
func DriversInit() map[string]defs.Err_t {
	mu.Lock()
	list := append([]entry_t(nil), early...)
	mu.Unlock()
	return runAll(list)
}

/// DriversRunDeferred runs every registered deferred driver not on the
/// blacklist.
func DriversRunDeferred() map[string]defs.Err_t {
	mu.Lock()
	list := append([]entry_t(nil), deferred...)
	mu.Unlock()
	return runAll(list)
}

func runAll(list []entry_t) map[string]defs.Err_t {
	failures := make(map[string]defs.Err_t)
	for _, e := range list {
		if Blacklisted(e.name) {
			continue
		}
		if err := e.init(); err != 0 {
			failures[e.name] = err
		}
	}
	return failures
}

const blacklistBuckets = 64

var blacklist = hashtable.MkHash(blacklistBuckets)

/// Blacklist marks name so it is skipped by DriversInit/DriversRunDeferred.
func Blacklist(name string) defs.Err_t {
	if name == "" {
		return defs.EINVAL
	}
	blacklist.Set(name, true)
	return 0
}

/// Blacklisted reports whether name has been blacklisted.
func Blacklisted(name string) bool {
	_, ok := blacklist.Get(name)
	return ok
}
