// File: intel/descriptors.go
// Package intel
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Receive and transmit descriptor records of the Intel e1000/82599 family.
// Layouts are byte-exact with the datasheets; every record is 16 bytes.

package intel

import (
	"sync/atomic"
	"unsafe"

	"github.com/momentics/hioload-nic/api"
)

// Legacy rx status bits.
const (
	RxStatusDD  = 1 << 0 // descriptor done
	RxStatusEOP = 1 << 1 // end of packet
)

// Legacy tx command and status bits.
const (
	TxCmdEOP   = 1 << 0
	TxCmdIFCS  = 1 << 1
	TxCmdRS    = 1 << 3
	TxStatusDD = 1 << 0
)

// Advanced (82599) tx CMD_TYPE_LEN fields.
const (
	AdvTxDtypData    = 0x3 << 20
	AdvTxDcmdEOP     = 1 << 24
	AdvTxDcmdIFCS    = 1 << 25
	AdvTxDcmdRS      = 1 << 27
	AdvTxDcmdDEXT    = 1 << 29
	AdvTxPaylenShift = 14
	AdvTxStatusDD    = 1 << 0
)

// LegacyRxDescriptor is the e1000 receive descriptor.
type LegacyRxDescriptor struct {
	PhysAddr uint64
	Length   uint16
	Checksum uint16
	Status   uint8
	Errors   uint8
	VlanTag  uint16
}

// Init points the descriptor at a buffer and clears the write-back fields.
func (d *LegacyRxDescriptor) Init(bufferAddr api.PhysicalAddress) {
	d.PhysAddr = bufferAddr.Value()
	atomic.StoreUint64(d.writeback(), 0)
}

// writeback is the second quadword, updated by the device.
func (d *LegacyRxDescriptor) writeback() *uint64 {
	return (*uint64)(unsafe.Pointer(&d.Length))
}

// DescriptorDone reports whether the device has filled the buffer.
func (d *LegacyRxDescriptor) DescriptorDone() bool {
	return atomic.LoadUint64(d.writeback())>>32&RxStatusDD != 0
}

// EndOfPacket reports whether the buffer holds the last fragment of a packet.
func (d *LegacyRxDescriptor) EndOfPacket() bool {
	return atomic.LoadUint64(d.writeback())>>32&RxStatusEOP != 0
}

// PacketLength returns the number of bytes the device wrote.
func (d *LegacyRxDescriptor) PacketLength() int {
	return int(atomic.LoadUint64(d.writeback()) & 0xffff)
}

// AdvancedRxDescriptor is the 82599 advanced receive descriptor (read format).
// The device overwrites it with the write-back format on completion.
type AdvancedRxDescriptor struct {
	PacketBufferAddress uint64
	HeaderBufferAddress uint64
}

func (d *AdvancedRxDescriptor) Init(bufferAddr api.PhysicalAddress) {
	d.PacketBufferAddress = bufferAddr.Value()
	atomic.StoreUint64(&d.HeaderBufferAddress, 0)
}

// DescriptorDone reads STATUS.DD from the write-back format.
func (d *AdvancedRxDescriptor) DescriptorDone() bool {
	return atomic.LoadUint64(&d.HeaderBufferAddress)&RxStatusDD != 0
}

func (d *AdvancedRxDescriptor) EndOfPacket() bool {
	return atomic.LoadUint64(&d.HeaderBufferAddress)&RxStatusEOP != 0
}

// PacketLength reads PKT_LEN from the write-back format.
func (d *AdvancedRxDescriptor) PacketLength() int {
	return int(atomic.LoadUint64(&d.HeaderBufferAddress)>>32&0xffff)
}

// LegacyTxDescriptor is the e1000 transmit descriptor.
type LegacyTxDescriptor struct {
	PhysAddr uint64
	Length   uint16
	CSO      uint8
	Cmd      uint8
	Status   uint8
	CSS      uint8
	Special  uint16
}

// Init leaves the descriptor idle: no buffer, no command.
func (d *LegacyTxDescriptor) Init() {
	d.PhysAddr = 0
	atomic.StoreUint64(d.word1(), 0)
}

func (d *LegacyTxDescriptor) word1() *uint64 {
	return (*uint64)(unsafe.Pointer(&d.Length))
}

// Prepare attaches one single-fragment packet for transmission.
func (d *LegacyTxDescriptor) Prepare(bufferAddr api.PhysicalAddress, length uint16) {
	d.PhysAddr = bufferAddr.Value()
	atomic.StoreUint64(d.word1(), uint64(length)|uint64(TxCmdEOP|TxCmdIFCS|TxCmdRS)<<24)
}

// DescriptorDone reports whether the device has sent the packet.
func (d *LegacyTxDescriptor) DescriptorDone() bool {
	return atomic.LoadUint64(d.word1())>>32&TxStatusDD != 0
}

// AdvancedTxDescriptor is the 82599 advanced data descriptor.
type AdvancedTxDescriptor struct {
	BufferAddress uint64
	CmdTypeLen    uint32
	OlInfoStatus  uint32
}

func (d *AdvancedTxDescriptor) Init() {
	d.BufferAddress = 0
	d.CmdTypeLen = 0
	atomic.StoreUint32(&d.OlInfoStatus, 0)
}

func (d *AdvancedTxDescriptor) Prepare(bufferAddr api.PhysicalAddress, length uint16) {
	d.BufferAddress = bufferAddr.Value()
	d.CmdTypeLen = AdvTxDtypData | AdvTxDcmdDEXT | AdvTxDcmdEOP | AdvTxDcmdIFCS | AdvTxDcmdRS | uint32(length)
	atomic.StoreUint32(&d.OlInfoStatus, uint32(length)<<AdvTxPaylenShift)
}

func (d *AdvancedTxDescriptor) DescriptorDone() bool {
	return atomic.LoadUint32(&d.OlInfoStatus)&AdvTxStatusDD != 0
}

var (
	_ api.RxDescriptor = (*LegacyRxDescriptor)(nil)
	_ api.RxDescriptor = (*AdvancedRxDescriptor)(nil)
	_ api.TxDescriptor = (*LegacyTxDescriptor)(nil)
	_ api.TxDescriptor = (*AdvancedTxDescriptor)(nil)
)
