package coordinator

// NodeStats is a read-only snapshot of one worker's accounting.
type NodeStats struct {
	NodeID        int32
	BlocksPerNode int64
	BlocksFree    int64
	Dead          bool
}

// Stats is a read-only snapshot of the whole cluster, taken under the same
// lock as every mutating operation so it never observes a half-applied
// allocation or rollback.
type Stats struct {
	TotalBlocks int64
	FreeBlocks  int64
	NumFiles    int
	Nodes       []NodeStats
}

// Stats returns a point-in-time snapshot of cluster-wide accounting.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes := make([]NodeStats, len(c.workers))
	for i, h := range c.workers {
		nodes[i] = NodeStats{
			NodeID:        h.id,
			BlocksPerNode: h.blocksPerNode,
			BlocksFree:    h.blocksFree,
			Dead:          h.dead,
		}
	}

	numFiles := 0
	for _, f := range c.files {
		if f != nil {
			numFiles++
		}
	}

	return Stats{
		TotalBlocks: c.totalBlocks,
		FreeBlocks:  c.freeBlocks,
		NumFiles:    numFiles,
		Nodes:       nodes,
	}
}
