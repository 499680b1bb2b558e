// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schema holds the shared data-model types for the acquisition
// core: memory maps, variables, endpoint configuration/status, KV
// samples, aggregate bucket rows and control-value records.
package schema

import "fmt"

// DataType enumerates the scalar encodings a Variable can carry.
type DataType string

const (
	Bool  DataType = "bool"
	Sint  DataType = "sint"
	Usint DataType = "usint"
	Int   DataType = "int"
	Uint  DataType = "uint"
	Dint  DataType = "dint"
	Udint DataType = "udint"
	Float DataType = "float"
)

// ByteWidth returns the on-wire size of the data type (1 for Bool, whose
// bit is read out of one byte), or 0 for an unknown data type.
func (d DataType) ByteWidth() int {
	switch d {
	case Bool, Sint, Usint:
		return 1
	case Int, Uint:
		return 2
	case Dint, Udint, Float:
		return 4
	default:
		return 0
	}
}

// Unit names the PLC memory unit a Variable's address is expressed in.
type Unit string

const (
	UnitBit   Unit = "bit"
	UnitByte  Unit = "byte"
	UnitWord  Unit = "word"
	UnitDWord Unit = "dword"
	UnitLWord Unit = "lword"
)

// ByteSize returns the number of bytes one unit of addressing spans.
func (u Unit) ByteSize() int {
	switch u {
	case UnitBit, UnitByte:
		return 1
	case UnitWord:
		return 2
	case UnitDWord:
		return 4
	case UnitLWord:
		return 8
	default:
		return 1
	}
}

// VariableAttribute is one of the flags a Variable can carry: monitor,
// control, record, alarm.
type VariableAttribute string

const (
	AttrMonitor VariableAttribute = "monitor"
	AttrControl VariableAttribute = "control"
	AttrRecord  VariableAttribute = "record"
	AttrAlarm   VariableAttribute = "alarm"
)

// Variable is the semantic description of one scalar inside a read block.
type Variable struct {
	ID       int64    `json:"id" db:"id"`
	GroupID  int64    `json:"group_id" db:"group_id"`
	Name     string   `json:"name" db:"name"`
	Device   string   `json:"device" db:"device"` // e.g. "%MB"
	Address  float64  `json:"address" db:"address"`
	DataType DataType `json:"data_type" db:"data_type"`
	Unit     Unit     `json:"unit" db:"unit"`
	Scale    float64  `json:"scale" db:"scale"`
	Offset   string   `json:"offset" db:"offset"`
	Min      float64  `json:"min" db:"min_value"`
	Max      float64  `json:"max" db:"max_value"`

	Attributes          []VariableAttribute `json:"attributes" db:"-"`
	UseGroupBaseAddress bool                `json:"use_group_base_address" db:"use_group_base_address"`
}

// HasAttribute reports whether the variable carries the given attribute.
func (v *Variable) HasAttribute(a VariableAttribute) bool {
	for _, have := range v.Attributes {
		if have == a {
			return true
		}
	}
	return false
}

// AddressParts splits the float address encoding into byte offset and
// bit index (bit index is only meaningful for Bool variables).
func (v *Variable) AddressParts() (byteOffset int, bitIndex int) {
	whole := int(v.Address)
	frac := v.Address - float64(whole)
	// fractional part encodes bit 0-7, e.g. 10.3 -> byte 10, bit 3.
	bit := int(frac*10 + 0.5)
	return whole, bit
}

// Validate checks that a bool variable's fractional address part names
// bit 0-7 and that any other variable has a known data type.
func (v *Variable) Validate() error {
	_, bit := v.AddressParts()
	if v.DataType == Bool {
		if bit < 0 || bit > 7 {
			return fmt.Errorf("variable %q: bit index %d out of range [0,7]", v.Name, bit)
		}
	}
	if v.DataType != Bool && v.DataType.ByteWidth() == 0 {
		return fmt.Errorf("variable %q: unknown data type %q", v.Name, v.DataType)
	}
	return nil
}

// MemoryGroup is a named, ordered collection of Variables belonging to a
// logical device.
type MemoryGroup struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	SizeByte     int     `json:"size_byte" db:"size_byte"`
	StartAddress float64 `json:"start_address" db:"start_address"`
	DeviceID     *int64  `json:"device_id,omitempty" db:"device_id"`
	AdapterID    *int64  `json:"adapter_id,omitempty" db:"adapter_id"`

	Variables []*Variable `json:"variables" db:"-"`
}

// Validate checks size_byte >= max variable offset + variable byte width.
func (g *MemoryGroup) Validate() error {
	for _, v := range g.Variables {
		off, _ := v.AddressParts()
		width := v.DataType.ByteWidth()
		if width == 0 {
			width = 1
		}
		if off+width > g.SizeByte {
			return fmt.Errorf("memory group %q: variable %q exceeds size_byte (%d+%d > %d)",
				g.Name, v.Name, off, width, g.SizeByte)
		}
	}
	return nil
}

// ReadBlock is one ordered read descriptor inside a SocketClientConfig.
type ReadBlock struct {
	Memory   string `json:"memory"`   // e.g. "%MB"
	Address  int    `json:"address"`
	Count    int    `json:"count"`
	FuncName string `json:"func_name"`
}

// CronTrigger is the scheduler trigger spec attached to a client:
// {"cron": {...}} or {"interval": {...}}.
type CronTrigger map[string]map[string]any

// SocketClientConfig describes one PLC endpoint.
type SocketClientConfig struct {
	ID           int64         `json:"id" db:"id"`
	Host         string        `json:"host" db:"host"`
	Port         int           `json:"port" db:"port"`
	Blocks       []ReadBlock   `json:"blocks" db:"-"`
	Cron         CronTrigger   `json:"cron" db:"-"`
	MemoryGroups []MemoryGroup `json:"memory_groups" db:"-"`
	IsUsed       bool          `json:"is_used" db:"is_used"`
}

// DetailedStatus is the decoded view of a PLC's 0xEF system-status response.
type DetailedStatus struct {
	CPUType      string `json:"CPU TYPE"`
	Composition  string `json:"COMPOSITION"`
	CPUStatus    string `json:"CPU STATUS"`
	SystemStatus string `json:"SYSTEM STATUS"`
	ErrorCode    int    `json:"ERROR CODE"`
}

// SocketClientStatus is the last known decoded status of a client endpoint.
type SocketClientStatus struct {
	ClientID       int64          `json:"client_id" db:"client_id"`
	DetailedStatus DetailedStatus `json:"detailed_status" db:"-"`
	UpdatedAt      int64          `json:"updated_at" db:"updated_at"` // unix seconds
}

// SocketClientLog is an append-only status transition record.
type SocketClientLog struct {
	ID        int64  `json:"id" db:"id"`
	ClientID  int64  `json:"client_id" db:"client_id"`
	Message   string `json:"message" db:"message"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
