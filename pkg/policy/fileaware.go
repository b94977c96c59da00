package policy

func init() {
	Register("fileaware", func() Policy { return &fileAwarePolicy{threshold: DefaultFileAwareThreshold} })
}

// DefaultFileAwareThreshold is the "small file" cutoff used by fileaware
// when no override is configured at build/init time.
const DefaultFileAwareThreshold = 4

// fileAwarePolicy dispatches to rand for files expected to need few blocks
// ("small", by default <= 4) and to leastloaded otherwise, on the theory
// that spreading small files randomly avoids hotspotting a single worker
// while large files should balance load deterministically.
type fileAwarePolicy struct {
	threshold int64
	small     Policy
	large     Policy
}

// NewFileAware constructs a fileaware policy with a custom threshold,
// bypassing the registry default. Used by callers (and tests) that need a
// non-default threshold.
func NewFileAware(threshold int64) Policy {
	return &fileAwarePolicy{threshold: threshold}
}

func (p *fileAwarePolicy) Init(view View) error {
	p.small = &randPolicy{}
	p.large = &leastLoadedPolicy{}
	if err := p.small.Init(view); err != nil {
		return err
	}
	return p.large.Init(view)
}

func (p *fileAwarePolicy) Allocate(ctx Context) (int, error) {
	if ctx.ExpectedBlocks <= p.threshold {
		return p.small.Allocate(ctx)
	}
	return p.large.Allocate(ctx)
}

func (p *fileAwarePolicy) Destroy() {
	p.small.Destroy()
	p.large.Destroy()
}
