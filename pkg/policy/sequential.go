package policy

func init() {
	Register("sequential", func() Policy { return &sequentialPolicy{} })
}

// sequentialPolicy fills worker 0 completely before moving to worker 1,
// and so on. The advance threshold is "blocks_free <= 1", not "== 0": this
// is the source's observed behavior, preserved as-is rather than fixed. It
// strands one block on every worker, the last one included, because the
// cursor advances past a worker as soon as one block remains free on it and
// never returns; once it passes the last worker, Allocate fails.
type sequentialPolicy struct {
	view    View
	current int
}

func (p *sequentialPolicy) Init(view View) error {
	p.view = view
	return nil
}

func (p *sequentialPolicy) Allocate(Context) (int, error) {
	n := p.view.NumNodes()
	free := p.view.BlocksFree()

	for p.current < n && free[p.current] <= 1 {
		p.current++
	}
	if p.current >= n {
		return 0, ErrNoCapacity
	}
	return p.current, nil
}

func (p *sequentialPolicy) Destroy() {}
