// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

func TestFromConfigCronDefaultsMissingFieldsToStar(t *testing.T) {
	cronExpr, interval, err := FromConfig(schema.CronTrigger{
		"cron": {"minute": "*/5", "hour": "9"},
	})
	require.NoError(t, err)
	assert.Equal(t, "*/5 9 * * *", cronExpr)
	assert.Zero(t, interval)
}

func TestFromConfigIntervalSumsFields(t *testing.T) {
	cronExpr, interval, err := FromConfig(schema.CronTrigger{
		"interval": {"minutes": 2, "seconds": 30},
	})
	require.NoError(t, err)
	assert.Empty(t, cronExpr)
	assert.Equal(t, 2*time.Minute+30*time.Second, interval)
}

func TestFromConfigRejectsZeroDurationInterval(t *testing.T) {
	_, _, err := FromConfig(schema.CronTrigger{"interval": {}})
	assert.Error(t, err)
}

func TestFromConfigRejectsUnknownTriggerKey(t *testing.T) {
	_, _, err := FromConfig(schema.CronTrigger{"weekly": {}})
	assert.Error(t, err)
}
