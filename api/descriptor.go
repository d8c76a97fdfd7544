// Package api
// Author: momentics <momentics@gmail.com>
//
// Capability contracts that a hardware family implements so the generic ring
// initializers can drive it. Record layouts are dictated by the hardware.

package api

// DescriptorAlignment is the minimum alignment of a descriptor ring base address
// for the supported hardware family.
const DescriptorAlignment = 128

// RxDescriptor is a hardware receive descriptor record.
type RxDescriptor interface {
	// Init points the descriptor at a receive buffer and clears its status.
	Init(bufferAddr PhysicalAddress)
}

// TxDescriptor is a hardware transmit descriptor record.
type TxDescriptor interface {
	// Init puts the descriptor into its idle state with no buffer attached.
	Init()
}

// RxQueueRegisters are the write-only registers needed to set up a receive queue.
type RxQueueRegisters interface {
	SetRDBAL(value uint32) // descriptor base address, low 32 bits
	SetRDBAH(value uint32) // descriptor base address, high 32 bits
	SetRDLEN(value uint32) // ring length in bytes
	SetRDH(value uint32)   // head index
	SetRDT(value uint32)   // tail index
}

// TxQueueRegisters are the write-only registers needed to set up a transmit queue.
type TxQueueRegisters interface {
	SetTDBAL(value uint32)
	SetTDBAH(value uint32)
	SetTDLEN(value uint32)
	SetTDH(value uint32)
	SetTDT(value uint32)
}
