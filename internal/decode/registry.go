// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package decode

import (
	"sync"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

// GroupChangedEvent describes a MemoryGroup replacement: the observer
// sees only the new definition, never a diff, since nothing downstream
// needs anything finer than "this group's variables may have changed."
type GroupChangedEvent struct {
	ClientID int64
	Group    schema.MemoryGroup
}

// Observer is notified when a MemoryGroup's variable set changes under
// a Registry. The relationship is one-way: a client's decoded samples
// flow from its MemoryGroups, never the reverse.
type Observer interface {
	OnMemoryGroupChanged(event GroupChangedEvent)
}

// Registry holds the current MemoryGroup set per client and fans out
// change notifications to every registered Observer from the single
// mutation point, UpdateGroup.
type Registry struct {
	mu        sync.RWMutex
	groups    map[int64]map[int64]schema.MemoryGroup // clientID -> groupID -> group
	observers []Observer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[int64]map[int64]schema.MemoryGroup)}
}

// Subscribe registers an Observer for future UpdateGroup calls. It does
// not replay past changes.
func (r *Registry) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// UpdateGroup replaces clientID's copy of group and notifies every
// subscribed Observer. This is the only place a MemoryGroup definition
// changes once a client is running.
func (r *Registry) UpdateGroup(clientID int64, group schema.MemoryGroup) {
	r.mu.Lock()
	byGroup, ok := r.groups[clientID]
	if !ok {
		byGroup = make(map[int64]schema.MemoryGroup)
		r.groups[clientID] = byGroup
	}
	byGroup[group.ID] = group
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	event := GroupChangedEvent{ClientID: clientID, Group: group}
	for _, o := range observers {
		o.OnMemoryGroupChanged(event)
	}
}

// Group returns the current definition of clientID's groupID, or false
// if UpdateGroup was never called for it.
func (r *Registry) Group(clientID, groupID int64) (schema.MemoryGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byGroup, ok := r.groups[clientID]
	if !ok {
		return schema.MemoryGroup{}, false
	}
	g, ok := byGroup[groupID]
	return g, ok
}
