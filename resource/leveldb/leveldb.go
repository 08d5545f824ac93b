// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package leveldb backs resource.Manager entries with a persistent
// key/value store, letting a host-registered resource (a simulated
// database handle, a cache) survive across engine restarts — useful
// chiefly for tests that want to assert on state left behind by a prior
// run. The default resource.Manager remains purely in-memory; this is an
// opt-in alternative a host wires in explicitly.
package leveldb

import (
	"fmt"

	"github.com/probechain/gophp/resource"
	"github.com/syndtr/goleveldb/leveldb"
)

// Store wraps a goleveldb database as a resource.Manager-registrable
// payload: extension functions that want durable storage (e.g. a "kv"
// native extension) register one Store per opened database path and get
// back a resource ID to hand to PHP code as a Resource value.
type Store struct {
	db   *leveldb.DB
	path string
}

// Open opens (creating if absent) the LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Register registers s with mgr, returning the resource ID a native
// extension hands back to PHP as the Resource value's payload. The
// release hook closes the underlying database file.
func Register(mgr *resource.Manager, s *Store) uint64 {
	id, _ := mgr.Register(s, func() {
		s.db.Close()
	})
	return id
}

// Get reads the value stored under key, or (nil, false) if absent.
func (s *Store) Get(key []byte) ([]byte, bool) {
	v, err := s.db.Get(key, nil)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Put writes key/value, overwriting any prior value.
func (s *Store) Put(key, value []byte) error {
	if err := s.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("leveldb: put: %w", err)
	}
	return nil
}

// Delete removes key, a no-op if it was already absent.
func (s *Store) Delete(key []byte) error {
	if err := s.db.Delete(key, nil); err != nil {
		return fmt.Errorf("leveldb: delete: %w", err)
	}
	return nil
}

// Has reports whether key is present.
func (s *Store) Has(key []byte) bool {
	ok, err := s.db.Has(key, nil)
	return err == nil && ok
}

// Close closes the underlying database file directly, without going
// through a resource.Manager teardown. Prefer registering via Register and
// letting Manager.Teardown release it.
func (s *Store) Close() error {
	return s.db.Close()
}
