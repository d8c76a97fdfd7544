// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for internal inspection.

package control

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/momentics/hioload-nic/api"
	"github.com/momentics/hioload-nic/pool"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// ServeHTTP writes DumpState as JSON.
func (dp *DebugProbes) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dp.DumpState()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterPoolProbe exposes the pool counters as "pool.<name>".
func RegisterPoolProbe(dp *DebugProbes, p *pool.BufferPool) {
	dp.RegisterProbe("pool."+p.Name(), func() any { return p.Stats() })
}

// RingState describes one initialized descriptor ring.
type RingState struct {
	Descriptors int    `json:"descriptors"`
	PhysAddr    string `json:"phys_addr"`
	Bytes       int    `json:"bytes"`
}

// RegisterRingProbe exposes a ring as "<name>". The ring layout does not change after
// initialization, so the state is captured once.
func RegisterRingProbe(dp *DebugProbes, name string, descriptors int, phys api.PhysicalAddress, bytes int) {
	st := RingState{Descriptors: descriptors, PhysAddr: phys.String(), Bytes: bytes}
	dp.RegisterProbe(name, func() any { return st })
}
