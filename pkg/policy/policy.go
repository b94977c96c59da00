// Package policy implements the pluggable block-placement policies the
// coordinator consults on every lazy allocation.
//
// Dispatch mirrors the registry-of-named-constructors pattern used
// elsewhere in this codebase to let independent subsystems register
// themselves without an import cycle back to the coordinator: each policy
// registers a constructor under its name in an init() function, and the
// coordinator looks policies up by name at cluster-init time.
package policy

import "fmt"

// View is the stable accessor a policy uses to read coordinator state. It
// never exposes mutable access: policies decide, they do not act.
type View interface {
	// NumNodes returns the number of workers in the cluster.
	NumNodes() int

	// BlocksFree returns the current free-block count for every worker,
	// indexed by worker ID.
	BlocksFree() []int64

	// BlocksPerNode returns each worker's total block capacity, indexed by
	// worker ID. Used by policies (e.g. weightedroundrobin) that need a
	// capacity baseline rather than just the live free count.
	BlocksPerNode() []int64
}

// Context carries the per-call information a policy needs that must not be
// closed over, because the coordinator calls the policy from many
// different file contexts.
type Context struct {
	// ExpectedBlocks is the requesting file's expected block count (its
	// logical length L at the time of the call), used by policies such as
	// fileaware to pick a sub-strategy.
	ExpectedBlocks int64
}

// Policy is the allocation-policy plug-in interface.
type Policy interface {
	// Init binds the policy to a coordinator view. Called once before any
	// Allocate call.
	Init(view View) error

	// Allocate returns a worker index with BlocksFree()[index] > 0, or an
	// error if no worker has capacity.
	Allocate(ctx Context) (int, error)

	// Destroy releases any resources held by the policy.
	Destroy()
}

// ErrNoCapacity is returned by Allocate when every worker is full.
var ErrNoCapacity = errNoCapacity{}

type errNoCapacity struct{}

func (errNoCapacity) Error() string { return "policy: no worker has free capacity" }

// Factory constructs a fresh Policy instance.
type Factory func() Policy

var registry = map[string]Factory{}

// Register adds a named policy constructor to the registry. Called from
// each policy implementation's init().
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New looks up a policy by name and constructs a fresh instance.
func New(name string) (Policy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("policy: unknown policy %q", name)
	}
	return factory(), nil
}

// Names returns every registered policy name, for diagnostics and the CLI.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
