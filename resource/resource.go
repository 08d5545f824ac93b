// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package resource implements the engine's resource manager: a table
// mapping monotonically generated IDs to opaque host-owned handles (file
// descriptors, simulated DB connections, anything a native extension wants
// to hand back to PHP code as a Resource value) with a registered drop
// hook run on removal.
package resource

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/probechain/gophp/value"
)

// Manager owns the live resource table for one engine context. It is not
// safe for concurrent use from multiple goroutines, matching the engine's
// single-threaded-per-request discipline.
type Manager struct {
	nextID    uint64
	resources map[uint64]*value.SharedResource
	// order records registration order so Teardown can drop resources in
	// reverse, matching the engine context's documented teardown contract.
	order []uint64
}

// NewManager creates an empty resource table.
func NewManager() *Manager {
	return &Manager{resources: make(map[uint64]*value.SharedResource)}
}

// NextID allocates the next monotonic resource ID without registering
// anything; callers typically use Register, which allocates for them.
func (m *Manager) NextID() uint64 {
	return atomic.AddUint64(&m.nextID, 1)
}

// Register wraps payload in a SharedResource under a freshly allocated ID
// and returns both the ID and the SharedResource suitable for embedding in
// a value.Value{Kind: value.KindResource}. release is called once, when
// Remove removes the resource or Teardown reaps it.
func (m *Manager) Register(payload interface{}, release func()) (uint64, *value.SharedResource) {
	id := m.NextID()
	sr := value.NewSharedResource(id, payload, release)
	m.resources[id] = sr
	m.order = append(m.order, id)
	return id, sr
}

// ExternalID returns a collision-proof UUID for id, for hosts that need an
// identifier stable across distinct engine instances rather than the
// per-context monotonic integer.
func (m *Manager) ExternalID(id uint64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("gophp-resource-%d", id))).String()
}

// Get returns the resource registered under id, if any.
func (m *Manager) Get(id uint64) (*value.SharedResource, bool) {
	sr, ok := m.resources[id]
	return sr, ok
}

// GetPayload returns id's payload type-asserted to T, the generic
// equivalent of the spec's get<T>(id).
func GetPayload[T any](m *Manager, id uint64) (T, bool) {
	var zero T
	sr, ok := m.resources[id]
	if !ok {
		return zero, false
	}
	v, ok := sr.Payload.(T)
	return v, ok
}

// Remove deregisters id, releases the underlying SharedResource, and
// returns the payload that was removed, the generic equivalent of the
// spec's remove<T>(id).
func Remove[T any](m *Manager, id uint64) (T, bool) {
	var zero T
	sr, ok := m.resources[id]
	if !ok {
		return zero, false
	}
	delete(m.resources, id)
	v, matched := sr.Payload.(T)
	sr.Release()
	if !matched {
		return zero, false
	}
	return v, true
}

// Len reports how many resources are currently live.
func (m *Manager) Len() int { return len(m.resources) }

// Teardown releases every remaining resource in reverse registration
// order, matching the engine context's documented teardown contract.
func (m *Manager) Teardown() {
	for i := len(m.order) - 1; i >= 0; i-- {
		id := m.order[i]
		if sr, ok := m.resources[id]; ok {
			delete(m.resources, id)
			sr.Release()
		}
	}
	m.order = nil
}
