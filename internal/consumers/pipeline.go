package consumers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

// Pipeline runs a set of consumers with independent lifecycles: a backlog on
// one topic never blocks another, and only a fatal startup failure (broker
// unreachable past the retry budget) tears the group down.
type Pipeline struct {
	log       *logger.Logger
	consumers []*Consumer
}

func NewPipeline(log *logger.Logger, cs ...*Consumer) *Pipeline {
	return &Pipeline{log: log.With("component", "Pipeline"), consumers: cs}
}

// Run blocks until ctx is cancelled or a consumer fails fatally. In-flight
// handlers complete before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range p.consumers {
		c := c
		g.Go(func() error { return c.Run(ctx) })
	}
	return g.Wait()
}

// States reports consumer state by name, for readiness probes.
func (p *Pipeline) States() map[string]State {
	out := make(map[string]State, len(p.consumers))
	for _, c := range p.consumers {
		out[c.Name()] = c.State()
	}
	return out
}
