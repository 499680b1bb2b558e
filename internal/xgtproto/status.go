// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package xgtproto

import "github.com/wontakkang/xgtcore/pkg/schema"

// cpuTypeNames decodes PLC_info bits 0-4.
var cpuTypeNames = map[uint16]string{
	0x01: "XGK/I/R-CPUH",
	0x02: "CPU S",
	0x03: "CPU A",
	0x04: "CPU E",
	0x05: "CPU U",
	0x11: "CPUHN/SN/UN",
}

// systemStatusNames decodes PLC_info bits 7-11.
var systemStatusNames = map[uint16]string{
	0x01: "RUN",
	0x02: "STOP",
	0x04: "ERROR",
	0x08: "DEBUG",
}

// cpuInfoNames decodes the CPU_info byte.
var cpuInfoNames = map[uint8]string{
	0xA0: "XGK",
	0xA4: "XGI",
	0xA8: "XGR",
	0xB0: "XGB(MK)",
	0xB4: "XGB(IEC)",
}

// DetailedStatus is an alias of schema.DetailedStatus kept local so the
// codec package has no import cycle concerns decoding it.
type DetailedStatus = schema.DetailedStatus

// DecodeDetailedStatus decodes PLC_info/CPU_info bit-fields per Table
// STATUS.
func DecodeDetailedStatus(plcInfo uint16, cpuInfo uint8) DetailedStatus {
	cpuType := cpuTypeNames[plcInfo&0x1F]
	composition := "single"
	if plcInfo&(1<<5) != 0 {
		composition = "redundant"
	}
	cpuStatus := "normal"
	if plcInfo&(1<<6) != 0 {
		cpuStatus = "error"
	}
	sysBits := (plcInfo >> 7) & 0x1F
	sysStatus := systemStatusNames[sysBits]

	errorCode := 0
	if cpuStatus == "error" {
		errorCode = int(sysBits)
	}

	return DetailedStatus{
		CPUType:      cpuType,
		Composition:  composition,
		CPUStatus:    cpuStatus,
		SystemStatus: sysStatus,
		ErrorCode:    errorCode,
	}
}

// CPUSeriesName decodes the CPU_info byte into the PLC series label
// (XGK/XGI/XGR/XGB...), independent of the PLC_info-derived CPU TYPE
// field. Used for diagnostics/logging, not part of DetailedStatus.
func CPUSeriesName(cpuInfo uint8) string {
	return cpuInfoNames[cpuInfo]
}
