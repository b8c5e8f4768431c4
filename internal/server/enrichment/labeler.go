// Package enrichment generates display labels for dimensions outside the
// request path: a Trigger enqueues jobs, a Worker runs them in two
// retryable steps (ask the Labeler, then store the labels in one
// transaction).
package enrichment

import "context"

// Labeler maps each dimension name to a short label. The result may miss
// names the backend could not label.
type Labeler interface {
	Name() string
	Labels(ctx context.Context, names []string) (map[string]string, error)
}
