package policy

func init() {
	Register("leastloaded", func() Policy { return &leastLoadedPolicy{} })
}

// leastLoadedPolicy always picks the worker with the greatest blocks_free,
// skipping any worker with zero. Ties break on the first (lowest) index.
type leastLoadedPolicy struct {
	view View
}

func (p *leastLoadedPolicy) Init(view View) error {
	p.view = view
	return nil
}

func (p *leastLoadedPolicy) Allocate(Context) (int, error) {
	free := p.view.BlocksFree()

	best, bestFree := -1, int64(0)
	for i, f := range free {
		if f > 0 && f > bestFree {
			best, bestFree = i, f
		}
	}
	if best < 0 {
		return 0, ErrNoCapacity
	}
	return best, nil
}

func (p *leastLoadedPolicy) Destroy() {}
