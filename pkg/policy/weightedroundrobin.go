package policy

func init() {
	Register("weightedroundrobin", func() Policy { return &weightedRoundRobinPolicy{last: -1} })
}

// weightedRoundRobinPolicy computes a per-worker weight of
// blocks_free/max_blocks_per_node and picks the highest-weighted worker,
// starting the search one index past the last chosen worker so that ties
// rotate fairly instead of always favoring the lowest index.
type weightedRoundRobinPolicy struct {
	view View
	last int
}

func (p *weightedRoundRobinPolicy) Init(view View) error {
	p.view = view
	return nil
}

func (p *weightedRoundRobinPolicy) Allocate(Context) (int, error) {
	n := p.view.NumNodes()
	free := p.view.BlocksFree()
	capacity := p.view.BlocksPerNode()

	var maxBlocksPerNode int64
	for _, c := range capacity {
		if c > maxBlocksPerNode {
			maxBlocksPerNode = c
		}
	}
	if maxBlocksPerNode == 0 {
		return 0, ErrNoCapacity
	}

	best, bestWeight := -1, 0.0
	for step := 0; step < n; step++ {
		i := (p.last + 1 + step) % n
		if capacity[i] == 0 {
			continue
		}
		weight := float64(free[i]) / float64(maxBlocksPerNode)
		if weight > bestWeight {
			best, bestWeight = i, weight
		}
	}
	if best < 0 || bestWeight == 0 {
		return 0, ErrNoCapacity
	}
	p.last = best
	return best, nil
}

func (p *weightedRoundRobinPolicy) Destroy() {}
