// File: intel/registers.go
// Package intel
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Queue register blocks over a memory-mapped BAR0 window. RDBAL/TDBAL must hold a
// 128-byte aligned address; RDLEN/TDLEN must be a multiple of 128 bytes.

package intel

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/hioload-nic/api"
)

// RegisterWindowSize is the BAR0 size used by the e1000 and 82599 register maps.
const RegisterWindowSize = 0x20000

// Offsets inside a queue block, identical for rx and tx.
const (
	regBAL = 0x00
	regBAH = 0x04
	regLEN = 0x08
	regH   = 0x10
	regT   = 0x18
)

// Queue block bases.
const (
	e1000RxBase     = 0x02800
	e1000TxBase     = 0x03800
	ixgbeRxBaseLow  = 0x01000 // queues 0..63
	ixgbeRxBaseHigh = 0x0D000 // queues 64..127
	ixgbeTxBase     = 0x06000
	ixgbeQueueStep  = 0x40

	// IXGBEMaxQueues is the number of rx and tx queues on an 82599.
	IXGBEMaxQueues = 128
)

// RegisterSpace performs 32-bit device register accesses on an MMIO window.
type RegisterSpace struct {
	window []byte
}

// NewRegisterSpace wraps a mapped register window (typically a device-flag region).
func NewRegisterSpace(window []byte) *RegisterSpace {
	return &RegisterSpace{window: window}
}

func (s *RegisterSpace) reg(offset uint32) *uint32 {
	if int(offset)+4 > len(s.window) || offset&3 != 0 {
		panic(fmt.Sprintf("intel: register offset %#x outside %#x-byte window", offset, len(s.window)))
	}
	return (*uint32)(unsafe.Pointer(&s.window[offset]))
}

// Write32 stores v at offset.
func (s *RegisterSpace) Write32(offset, v uint32) { atomic.StoreUint32(s.reg(offset), v) }

// Read32 loads the register at offset.
func (s *RegisterSpace) Read32(offset uint32) uint32 { return atomic.LoadUint32(s.reg(offset)) }

// RxQueueRegs is the register block of one receive queue.
type RxQueueRegs struct {
	space *RegisterSpace
	base  uint32
}

func (r *RxQueueRegs) SetRDBAL(v uint32) { r.space.Write32(r.base+regBAL, v) }
func (r *RxQueueRegs) SetRDBAH(v uint32) { r.space.Write32(r.base+regBAH, v) }
func (r *RxQueueRegs) SetRDLEN(v uint32) { r.space.Write32(r.base+regLEN, v) }
func (r *RxQueueRegs) SetRDH(v uint32)   { r.space.Write32(r.base+regH, v) }
func (r *RxQueueRegs) SetRDT(v uint32)   { r.space.Write32(r.base+regT, v) }

// Head and Tail read back the indices; used by the maintenance loop, never by ring setup.
func (r *RxQueueRegs) Head() uint32 { return r.space.Read32(r.base + regH) }
func (r *RxQueueRegs) Tail() uint32 { return r.space.Read32(r.base + regT) }

// Base returns the offset of the queue block in the window.
func (r *RxQueueRegs) Base() uint32 { return r.base }

// TxQueueRegs is the register block of one transmit queue.
type TxQueueRegs struct {
	space *RegisterSpace
	base  uint32
}

func (r *TxQueueRegs) SetTDBAL(v uint32) { r.space.Write32(r.base+regBAL, v) }
func (r *TxQueueRegs) SetTDBAH(v uint32) { r.space.Write32(r.base+regBAH, v) }
func (r *TxQueueRegs) SetTDLEN(v uint32) { r.space.Write32(r.base+regLEN, v) }
func (r *TxQueueRegs) SetTDH(v uint32)   { r.space.Write32(r.base+regH, v) }
func (r *TxQueueRegs) SetTDT(v uint32)   { r.space.Write32(r.base+regT, v) }

func (r *TxQueueRegs) Head() uint32 { return r.space.Read32(r.base + regH) }
func (r *TxQueueRegs) Tail() uint32 { return r.space.Read32(r.base + regT) }
func (r *TxQueueRegs) Base() uint32 { return r.base }

// E1000RxQueue returns the single e1000 receive queue.
func E1000RxQueue(s *RegisterSpace) *RxQueueRegs {
	return &RxQueueRegs{space: s, base: e1000RxBase}
}

// E1000TxQueue returns the single e1000 transmit queue.
func E1000TxQueue(s *RegisterSpace) *TxQueueRegs {
	return &TxQueueRegs{space: s, base: e1000TxBase}
}

// IXGBERxQueue returns receive queue n of an 82599.
func IXGBERxQueue(s *RegisterSpace, n int) (*RxQueueRegs, error) {
	switch {
	case n >= 0 && n < 64:
		return &RxQueueRegs{space: s, base: ixgbeRxBaseLow + uint32(n)*ixgbeQueueStep}, nil
	case n >= 64 && n < IXGBEMaxQueues:
		return &RxQueueRegs{space: s, base: ixgbeRxBaseHigh + uint32(n-64)*ixgbeQueueStep}, nil
	}
	return nil, fmt.Errorf("%w: ixgbe rx queue %d", api.ErrInvalidArgument, n)
}

// IXGBETxQueue returns transmit queue n of an 82599.
func IXGBETxQueue(s *RegisterSpace, n int) (*TxQueueRegs, error) {
	if n < 0 || n >= IXGBEMaxQueues {
		return nil, fmt.Errorf("%w: ixgbe tx queue %d", api.ErrInvalidArgument, n)
	}
	return &TxQueueRegs{space: s, base: ixgbeTxBase + uint32(n)*ixgbeQueueStep}, nil
}

var (
	_ api.RxQueueRegisters = (*RxQueueRegs)(nil)
	_ api.TxQueueRegisters = (*TxQueueRegs)(nil)
)
