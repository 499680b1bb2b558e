// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kvcache implements the process-wide "client_id:var_id" ->
// latest-sample store: no TTL, no eviction, per-key atomic replace, and
// a "*:*" style pattern scan.
package kvcache

import (
	"strconv"
	"strings"
	"sync"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

// Cache is a concurrent map from an ASCII "client_id:var_id" key to the
// most recently decoded Sample. Multiple polling-job writers and a
// periodic aggregator reader share one Cache; writes replace atomically
// per key, reads may observe a mix of updates from different writers.
type Cache struct {
	mu    sync.RWMutex
	store map[string]schema.Sample
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{store: make(map[string]schema.Sample)}
}

// Set replaces the sample stored at key without keeping history.
func (c *Cache) Set(key string, value any, valueType schema.ValueType) {
	c.mu.Lock()
	c.store[key] = schema.Sample{Value: value, Type: valueType}
	c.mu.Unlock()
}

// SetClientVar is a convenience wrapper that builds the key via
// schema.Key.
func (c *Cache) SetClientVar(clientID, varID int64, value any, valueType schema.ValueType) {
	c.Set(schema.Key(clientID, varID), value, valueType)
}

// Get returns the sample at key and whether it was present.
func (c *Cache) Get(key string) (schema.Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.store[key]
	return s, ok
}

// Entry pairs a key with its sample, returned by Scan.
type Entry struct {
	Key    string
	Sample schema.Sample
}

// Scan returns every entry whose key matches pattern. The only pattern
// shape callers need is "*:*" (enumerate everything, as does "*"); any
// other pattern is split on ":" and compared with the key segment by
// segment, where a segment of exactly "*" matches any value and every
// other segment must match literally.
func (c *Cache) Scan(pattern string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.store))
	for k, v := range c.store {
		if matchPattern(pattern, k) {
			entries = append(entries, Entry{Key: k, Sample: v})
		}
	}
	return entries
}

// ScanClientVar parses every "client_id:var_id" key matched by pattern
// into its integer parts; keys that don't parse as two integers are
// skipped, since the aggregator only folds keys of that shape.
func (c *Cache) ScanClientVar(pattern string) []ClientVarEntry {
	raw := c.Scan(pattern)
	out := make([]ClientVarEntry, 0, len(raw))
	for _, e := range raw {
		clientID, varID, ok := parseClientVarKey(e.Key)
		if !ok {
			continue
		}
		out = append(out, ClientVarEntry{ClientID: clientID, VarID: varID, Sample: e.Sample})
	}
	return out
}

// ClientVarEntry is a Scan result whose key has already been parsed into
// its two integer components.
type ClientVarEntry struct {
	ClientID int64
	VarID    int64
	Sample   schema.Sample
}

func parseClientVarKey(key string) (clientID, varID int64, ok bool) {
	idx := strings.IndexByte(key, ':')
	if idx < 0 {
		return 0, 0, false
	}
	c, err := strconv.ParseInt(key[:idx], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	v, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return c, v, true
}

// matchPattern implements the subset of glob syntax the KV key space
// needs: "*" as a wildcard segment, literal ":" as the separator.
func matchPattern(pattern, key string) bool {
	if pattern == "*:*" || pattern == "*" {
		return true
	}
	pParts := strings.Split(pattern, ":")
	kParts := strings.Split(key, ":")
	if len(pParts) != len(kParts) {
		return false
	}
	for i := range pParts {
		if pParts[i] == "*" {
			continue
		}
		if pParts[i] != kParts[i] {
			return false
		}
	}
	return true
}

// Len reports the number of keys currently stored, mostly useful for
// tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
