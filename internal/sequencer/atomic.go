package sequencer

import "sync/atomic"

// atomicCounter is a thin wrapper over atomic.Uint64, kept as a named
// type so Schedule's iteration counter field documents its own access
// discipline at the call site (Load/store) rather than reading like a
// plain integer that anyone might increment directly.
type atomicCounter struct {
	v atomic.Uint64
}

func (c *atomicCounter) Load() uint64    { return c.v.Load() }
func (c *atomicCounter) Store(n uint64)  { c.v.Store(n) }
func (c *atomicCounter) Add(delta uint64) uint64 { return c.v.Add(delta) }
