// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

type recordingObserver struct {
	events []GroupChangedEvent
}

func (o *recordingObserver) OnMemoryGroupChanged(event GroupChangedEvent) {
	o.events = append(o.events, event)
}

func TestRegistryUpdateGroupNotifiesObservers(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.Subscribe(obs)

	r.UpdateGroup(1, schema.MemoryGroup{ID: 10, Name: "io", SizeByte: 16})
	require.Len(t, obs.events, 1)
	assert.Equal(t, int64(1), obs.events[0].ClientID)
	assert.Equal(t, int64(10), obs.events[0].Group.ID)

	got, ok := r.Group(1, 10)
	require.True(t, ok)
	assert.Equal(t, "io", got.Name)
}

func TestRegistryGroupMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Group(99, 1)
	assert.False(t, ok)
}

func TestRegistryUpdateGroupReplacesPriorDefinition(t *testing.T) {
	r := NewRegistry()
	r.UpdateGroup(1, schema.MemoryGroup{ID: 10, SizeByte: 16})
	r.UpdateGroup(1, schema.MemoryGroup{ID: 10, SizeByte: 32})

	got, ok := r.Group(1, 10)
	require.True(t, ok)
	assert.Equal(t, 32, got.SizeByte)
}
