// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package kvcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.SetClientVar(1, 42, 12.3, schema.ValueFloat)
	s, ok := c.Get(schema.Key(1, 42))
	require.True(t, ok)
	require.Equal(t, 12.3, s.Value)
	require.Equal(t, schema.ValueFloat, s.Type)
}

func TestGetMissing(t *testing.T) {
	c := New()
	_, ok := c.Get("9:9")
	require.False(t, ok)
}

func TestScanAll(t *testing.T) {
	c := New()
	c.SetClientVar(1, 1, 1.0, schema.ValueFloat)
	c.SetClientVar(1, 2, 2.0, schema.ValueFloat)
	c.SetClientVar(2, 1, 3.0, schema.ValueFloat)
	require.Len(t, c.Scan("*:*"), 3)
}

func TestScanClientVarSkipsUnparsable(t *testing.T) {
	c := New()
	c.Set("not-an-int:key", "x", schema.ValueStr)
	c.SetClientVar(1, 1, 1.0, schema.ValueFloat)
	got := c.ScanClientVar("*:*")
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].ClientID)
}

// Concurrent writers + a scanning reader must not race or deadlock:
// multi-writer, multi-reader, per-key atomic replace.
func TestConcurrentWriteScan(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.SetClientVar(int64(i), int64(j), float64(j), schema.ValueFloat)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.Scan("*:*")
		}
	}()
	wg.Wait()
	require.LessOrEqual(t, c.Len(), 1000)
}
