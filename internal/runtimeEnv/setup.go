// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtimeEnv holds small process-environment helpers shared by
// cmd/xgtcored: a systemd readiness notifier. There is no .env file
// convention and no privileged port to drop root for in this process,
// so a LoadEnv/DropPrivileges pair is not needed here.
package runtimeEnv

import (
	"fmt"
	"os"
	"os/exec"
)

// SystemdNotifiy tells systemd this process is ready (or shutting down)
// via the sd_notify protocol, a no-op when not started under systemd.
func SystemdNotifiy(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	cmd := exec.Command("systemd-notify", args...)
	_ = cmd.Run()
}
