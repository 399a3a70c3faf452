// Package registry holds the catalog of registered test cases and composes
// runnable suites from YAML plan files.
package registry

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/device-infra/app-acceptor/types"
)

// Registry is the catalog of test cases known to the service. Test bodies
// are code, so they are registered programmatically; plan files only select
// and annotate registered cases.
type Registry struct {
	log log.Logger

	mu    sync.RWMutex
	cases map[string]types.TestCase
	order []string // registration order
}

// Config holds configuration for creating a new registry
type Config struct {
	Log log.Logger
}

// NewRegistry creates a new empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Registry{
		log:   cfg.Log,
		cases: make(map[string]types.TestCase),
	}
}

// Register adds a test case to the catalog. IDs must be unique.
func (r *Registry) Register(tc types.TestCase) error {
	if tc.ID == "" {
		return fmt.Errorf("test case must have an ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cases[tc.ID]; exists {
		return fmt.Errorf("test case %q already registered", tc.ID)
	}
	r.cases[tc.ID] = tc
	r.order = append(r.order, tc.ID)
	r.log.Debug("Registered test case", "id", tc.ID, "name", tc.GetName())
	return nil
}

// MustRegister is Register for program-startup registration, where a
// duplicate ID is a programming error.
func (r *Registry) MustRegister(tc types.TestCase) {
	if err := r.Register(tc); err != nil {
		panic(err)
	}
}

// Get returns the registered test case with the given ID
func (r *Registry) Get(id string) (types.TestCase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tc, ok := r.cases[id]
	return tc, ok
}

// TestCases returns all registered test cases in registration order
func (r *Registry) TestCases() []types.TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cases := make([]types.TestCase, 0, len(r.order))
	for _, id := range r.order {
		cases = append(cases, r.cases[id])
	}
	return cases
}

// BuildSuite composes a suite from every registered test case, in
// registration order.
func (r *Registry) BuildSuite(name string) types.TestSuite {
	return types.TestSuite{
		Name:  name,
		Cases: r.TestCases(),
	}
}

// LoadPlan reads a YAML plan file and composes the suite and configuration
// it describes. Cases listed in the plan must be registered; their plan
// entries may override timeout, retry limit, dependencies, tags, priority
// and the disabled flag. A plan without a case list selects every
// registered test case.
func (r *Registry) LoadPlan(path string) (types.TestSuite, types.SuiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.TestSuite{}, types.SuiteConfig{}, fmt.Errorf("failed to read plan file: %w", err)
	}
	return r.parsePlan(data, path)
}

func (r *Registry) parsePlan(data []byte, path string) (types.TestSuite, types.SuiteConfig, error) {
	var plan planFile
	if err := unmarshalStrict(data, &plan); err != nil {
		return types.TestSuite{}, types.SuiteConfig{}, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}

	cfg := plan.Config.apply(types.DefaultSuiteConfig())

	suite := types.TestSuite{Name: plan.Suite}
	if len(plan.Cases) == 0 {
		suite.Cases = r.TestCases()
	} else {
		for _, pc := range plan.Cases {
			tc, ok := r.Get(pc.ID)
			if !ok {
				return types.TestSuite{}, types.SuiteConfig{},
					fmt.Errorf("%w: plan references unregistered test case %q", types.ErrInvalidConfig, pc.ID)
			}
			suite.Cases = append(suite.Cases, pc.apply(tc))
		}
	}

	if err := suite.Validate(); err != nil {
		return types.TestSuite{}, types.SuiteConfig{}, err
	}

	r.log.Info("Loaded test plan", "path", path, "suite", suite.Name, "cases", len(suite.Cases))
	return suite, cfg, nil
}
