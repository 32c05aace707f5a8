// Package telemetry counts terrain-distribution events per window and
// optionally exports them as CSV. The collector is an explicit value
// threaded through each goroutine (server tick loop, gaia worker,
// monitor goroutine) rather than a hidden process-wide singleton, so
// it can be read on thread exit and swapped out in tests.
package telemetry

import "sync"

// WindowStats is one flushed window's counters: load/unload traffic,
// stale discards, and the Gaia backlog depth sampled at flush time.
type WindowStats struct {
	WindowSeconds      float64 `csv:"window_seconds"`
	Loads              int64   `csv:"loads"`
	Unloads            int64   `csv:"unloads"`
	Generated          int64   `csv:"generated"`
	BrushedCells       int64   `csv:"brushed_cells"`
	StaleDiscards      int64   `csv:"stale_discards"`
	GaiaBacklog        int64   `csv:"gaia_backlog"`
	PlaceholderRegions int64   `csv:"placeholder_regions"`
	FullRegions        int64   `csv:"full_regions"`
}

// Collector accumulates counters between flushes. All methods are
// safe for concurrent use; the server's three threads and the Gaia
// worker each hold a reference to the same Collector.
type Collector struct {
	mu sync.Mutex
	WindowStats
}

// NewCollector returns a zeroed Collector.
func NewCollector() *Collector { return &Collector{} }

func (c *Collector) AddLoad()             { c.mu.Lock(); c.Loads++; c.mu.Unlock() }
func (c *Collector) AddUnload()           { c.mu.Lock(); c.Unloads++; c.mu.Unlock() }
func (c *Collector) AddGenerated(n int64) { c.mu.Lock(); c.Generated += n; c.mu.Unlock() }
func (c *Collector) AddBrushedCells(n int64) {
	c.mu.Lock()
	c.BrushedCells += n
	c.mu.Unlock()
}
func (c *Collector) AddStaleDiscard() { c.mu.Lock(); c.StaleDiscards++; c.mu.Unlock() }

// SetGaiaBacklog records the Gaia FIFO's outstanding message count, as
// sampled by the monitor goroutine once a second.
func (c *Collector) SetGaiaBacklog(n int64) { c.mu.Lock(); c.GaiaBacklog = n; c.mu.Unlock() }

// SetRegionCounts records how many regions are currently Placeholder
// vs Full, as sampled from the terrain loader.
func (c *Collector) SetRegionCounts(placeholder, full int64) {
	c.mu.Lock()
	c.PlaceholderRegions, c.FullRegions = placeholder, full
	c.mu.Unlock()
}

// Flush returns the accumulated counters for the elapsed window and
// resets the flow counters (backlog/region counts are gauges, not
// reset, since they describe current state rather than accumulation
// over the window).
func (c *Collector) Flush(windowSeconds float64) WindowStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.WindowStats
	snap.WindowSeconds = windowSeconds
	c.Loads, c.Unloads, c.Generated, c.BrushedCells, c.StaleDiscards = 0, 0, 0, 0, 0
	return snap
}
