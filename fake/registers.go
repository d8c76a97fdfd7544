// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-nic/api"
)

// RegWrite is one observed register write.
type RegWrite struct {
	Name  string
	Value uint32
}

// Registers records every write in order. It satisfies both queue register contracts.
type Registers struct {
	mu     sync.Mutex
	writes []RegWrite
	last   map[string]uint32
}

// NewRegisters creates an empty recorder.
func NewRegisters() *Registers {
	return &Registers{last: make(map[string]uint32)}
}

func (r *Registers) record(name string, v uint32) {
	r.mu.Lock()
	r.writes = append(r.writes, RegWrite{Name: name, Value: v})
	r.last[name] = v
	r.mu.Unlock()
}

func (r *Registers) SetRDBAL(v uint32) { r.record("RDBAL", v) }
func (r *Registers) SetRDBAH(v uint32) { r.record("RDBAH", v) }
func (r *Registers) SetRDLEN(v uint32) { r.record("RDLEN", v) }
func (r *Registers) SetRDH(v uint32)   { r.record("RDH", v) }
func (r *Registers) SetRDT(v uint32)   { r.record("RDT", v) }

func (r *Registers) SetTDBAL(v uint32) { r.record("TDBAL", v) }
func (r *Registers) SetTDBAH(v uint32) { r.record("TDBAH", v) }
func (r *Registers) SetTDLEN(v uint32) { r.record("TDLEN", v) }
func (r *Registers) SetTDH(v uint32)   { r.record("TDH", v) }
func (r *Registers) SetTDT(v uint32)   { r.record("TDT", v) }

// Writes returns a copy of the write log.
func (r *Registers) Writes() []RegWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RegWrite(nil), r.writes...)
}

// Get returns the last value written to name.
func (r *Registers) Get(name string) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.last[name]
	return v, ok
}

var (
	_ api.RxQueueRegisters = (*Registers)(nil)
	_ api.TxQueueRegisters = (*Registers)(nil)
)
