package policy

func init() {
	Register("roundrobin", func() Policy { return &roundRobinPolicy{last: -1} })
}

// roundRobinPolicy advances a cursor on every call, wrapping modulo N. A
// full worker is skipped by continuing to advance; if the scan completes a
// full circle without finding capacity, it fails. The cursor starts at -1
// so the first allocation lands on worker 0.
type roundRobinPolicy struct {
	view View
	last int
}

func (p *roundRobinPolicy) Init(view View) error {
	p.view = view
	return nil
}

func (p *roundRobinPolicy) Allocate(Context) (int, error) {
	n := p.view.NumNodes()
	free := p.view.BlocksFree()

	for i := 0; i < n; i++ {
		p.last = (p.last + 1) % n
		if free[p.last] > 0 {
			return p.last, nil
		}
	}
	return 0, ErrNoCapacity
}

func (p *roundRobinPolicy) Destroy() {}
