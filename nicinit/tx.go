// File: nicinit/tx.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package nicinit

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-nic/api"
	"github.com/momentics/hioload-nic/memory"
)

// TxDescriptorOf constrains P to be a pointer to a transmit descriptor record T.
type TxDescriptorOf[T any] interface {
	*T
	api.TxDescriptor
}

// InitTxQueue creates and initializes a transmit descriptor queue of numDesc idle
// records. Buffers are attached later, per packet, by the driver.
func InitTxQueue[T any, P TxDescriptorOf[T]](env Env, numDesc int, regs api.TxQueueRegisters) (*memory.BorrowedSlice[T], error) {
	ringBytes, err := ringSize[T](numDesc)
	if err != nil {
		return nil, err
	}

	// Tx descriptors must be 128 byte-aligned, which is satisfied because the mapping
	// starts on a page boundary.
	region, err := env.Mapper.CreateContiguousMapping(ringBytes, api.MMIOFlags)
	if err != nil {
		return nil, err
	}
	if err := checkAligned(region); err != nil {
		return nil, err
	}

	descs, err := memory.Borrow[T](region, 0, numDesc)
	if err != nil {
		return nil, err
	}

	items := descs.Items()
	for i := range items {
		P(&items[i]).Init()
	}

	phys := descs.PhysAddr()
	regs.SetTDBAL(phys.Low())
	regs.SetTDBAH(phys.High())
	regs.SetTDLEN(uint32(ringBytes))

	// head and tail both 0: no transmit requests yet
	regs.SetTDH(0)
	regs.SetTDT(0)

	env.log().WithFields(logrus.Fields{
		"descriptors": numDesc,
		"phys":        phys,
		"bytes":       ringBytes,
	}).Debug("tx queue initialized")
	return descs, nil
}
