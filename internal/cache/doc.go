// Package cache implements lazily fetched, refreshable remote state.
//
// A Cell holds one remote resource behind a fetcher, a default value and a
// stable key. Every fetch attempt is tagged with a per-cell generation; a
// result is published only when its generation is still the latest one
// issued, so a slow older response can never overwrite a newer one. Failed
// fetches surface through Err while the last good value stays readable.
//
// A Registry maps cache keys to cells so that consumers asking for the same
// key share one cell, and tears every cell down when its owner goes away.
//
// Derived views (Derive) are pure projections of a cell's value, memoized by
// the generation of the value they were computed from.
package cache
