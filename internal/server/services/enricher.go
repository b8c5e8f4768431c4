package services

import "context"

// Enricher schedules label generation for dimensions. Scheduling never
// blocks on the generation itself and never fails the caller.
type Enricher interface {
	Trigger(ctx context.Context, names []string)
}

// NopEnricher drops every request.
type NopEnricher struct{}

func (NopEnricher) Trigger(context.Context, []string) {}
