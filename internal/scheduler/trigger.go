// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"fmt"
	"time"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

// cronField looks up one field of a cron trigger spec, defaulting to
// "*" (fire on every tick of that field) when absent.
func cronField(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok {
		return "*"
	}
	return fmt.Sprintf("%v", v)
}

// FromConfig turns one client's CronTrigger
// (`{"cron": {...}}` or `{"interval": {...}}`) into either a standard
// 5-field cron expression or a time.Duration, matching the JobSpec
// fields scheduler.Register expects.
func FromConfig(t schema.CronTrigger) (cronExpr string, interval time.Duration, err error) {
	if fields, ok := t["cron"]; ok {
		minute := cronField(fields, "minute")
		hour := cronField(fields, "hour")
		day := cronField(fields, "day")
		month := cronField(fields, "month")
		dow := cronField(fields, "day_of_week")
		return fmt.Sprintf("%s %s %s %s %s", minute, hour, day, month, dow), 0, nil
	}
	if fields, ok := t["interval"]; ok {
		var d time.Duration
		if v, ok := fields["hours"]; ok {
			d += time.Duration(toFloat(v)) * time.Hour
		}
		if v, ok := fields["minutes"]; ok {
			d += time.Duration(toFloat(v)) * time.Minute
		}
		if v, ok := fields["seconds"]; ok {
			d += time.Duration(toFloat(v)) * time.Second
		}
		if d <= 0 {
			return "", 0, fmt.Errorf("scheduler.FromConfig: interval trigger resolved to zero duration")
		}
		return "", d, nil
	}
	return "", 0, fmt.Errorf("scheduler.FromConfig: trigger has neither %q nor %q key", "cron", "interval")
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
