package jobs

import (
	"context"
	"fmt"
	"time"
)

// JobBody is the work of one job kind
type JobBody interface {
	// Normalize coerces raw parameters into the bounded set the job runs with
	Normalize(raw Params) Params
	// Execute runs the job and returns the summary message stored on the run
	Execute(ctx context.Context, params Params, runID int64) (string, error)
}

// JobSpec is a statically declared job
type JobSpec struct {
	ID            string
	Name          string
	Description   string
	CronExpr      string
	Timezone      string
	DefaultParams Params
	// MisfireGrace overrides the scheduler default when non-zero
	MisfireGrace  time.Duration
	Body          JobBody
}

// Catalog is the fixed table of executable jobs
type Catalog struct {
	specs []JobSpec
	byID  map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate ids
func NewCatalog(specs ...JobSpec) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(specs))}
	for _, spec := range specs {
		if spec.ID == "" || spec.Body == nil {
			return nil, fmt.Errorf("invalid job spec %q", spec.ID)
		}
		if _, dup := c.byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate job spec %q", spec.ID)
		}
		c.byID[spec.ID] = len(c.specs)
		c.specs = append(c.specs, spec)
	}
	return c, nil
}

// Get looks up a spec by id
func (c *Catalog) Get(jobID string) (JobSpec, bool) {
	i, ok := c.byID[jobID]
	if !ok {
		return JobSpec{}, false
	}
	return c.specs[i], true
}

// Has reports whether jobID is executable
func (c *Catalog) Has(jobID string) bool {
	_, ok := c.byID[jobID]
	return ok
}

// IDs returns job ids in declaration order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.specs))
	for i, s := range c.specs {
		ids[i] = s.ID
	}
	return ids
}

// Specs returns the specs in declaration order
func (c *Catalog) Specs() []JobSpec {
	out := make([]JobSpec, len(c.specs))
	copy(out, c.specs)
	return out
}
