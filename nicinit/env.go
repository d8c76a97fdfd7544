// File: nicinit/env.go
// Package nicinit
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functions used in a NIC initialization procedure: filling the receive buffer pool
// and setting up receive and transmit descriptor queues. The procedures are generic
// over the descriptor record type and the queue register block, so one
// implementation drives every compliant hardware family.
//
// Register programming always happens last, after every descriptor is valid; a
// failed call leaves the registers untouched.

package nicinit

import (
	"io"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-nic/api"
)

// Env carries the collaborators of the initialization procedures.
type Env struct {
	// Mapper provides physically-contiguous device memory. Required.
	Mapper api.Mapper

	// Log receives diagnostics. Nil discards them.
	Log logrus.FieldLogger

	// Metrics receives initialization counters. Nil disables them.
	Metrics metrics.Registry
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}()

func (e Env) log() logrus.FieldLogger {
	if e.Log == nil {
		return discard
	}
	return e.Log
}

func (e Env) counter(name string) metrics.Counter {
	if e.Metrics == nil {
		return metrics.NilCounter{}
	}
	return metrics.GetOrRegisterCounter(name, e.Metrics)
}
