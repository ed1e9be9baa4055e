// Package probe performs reachability checks against provider health
// endpoints. It only measures; recording and aggregation belong to the
// monitor package.
package probe

import (
	"context"
	"time"
)

// Target is one endpoint to sweep. Name must match the provider's
// registry handle for the result to be attributed.
type Target struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Result is the outcome of one check against one target.
type Result struct {
	Target    string
	Status    string
	LatencyMS int64
	Detail    string
	// StatusCode is the HTTP status observed, 0 when the request never
	// completed.
	StatusCode int
	CheckedAt  time.Time
}

// TargetSource supplies the target set for a sweep. Sources are consulted
// at sweep time so directory changes take effect without a restart.
type TargetSource interface {
	ListTargets(ctx context.Context) ([]Target, error)
}

// SourceFunc adapts a function to the TargetSource interface.
type SourceFunc func(ctx context.Context) ([]Target, error)

func (f SourceFunc) ListTargets(ctx context.Context) ([]Target, error) {
	return f(ctx)
}

// Static returns a TargetSource over a fixed target list.
func Static(targets []Target) TargetSource {
	return SourceFunc(func(context.Context) ([]Target, error) {
		return targets, nil
	})
}
