package policy

import (
	"math/rand"
	"time"
)

func init() {
	Register("rand", func() Policy { return &randPolicy{} })
}

// randPolicy uniformly picks a worker, retrying up to NumNodes times on a
// full worker before falling back to a linear scan for any worker with
// capacity. The linear-scan fallback guarantees success iff any worker has
// free space.
type randPolicy struct {
	view View
	rng  *rand.Rand
}

func (p *randPolicy) Init(view View) error {
	p.view = view
	p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	return nil
}

func (p *randPolicy) Allocate(Context) (int, error) {
	n := p.view.NumNodes()
	free := p.view.BlocksFree()

	for attempt := 0; attempt < n; attempt++ {
		w := p.rng.Intn(n)
		if free[w] > 0 {
			return w, nil
		}
	}

	for w := 0; w < n; w++ {
		if free[w] > 0 {
			return w, nil
		}
	}
	return 0, ErrNoCapacity
}

func (p *randPolicy) Destroy() {}
