package tuya

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/models"
)

// Poller serializes status queries through a small pool of dedicated
// workers. The snapshot builder blocks on each result, but the query itself
// runs off the builder's goroutine so a slow device cannot stall the
// scheduler's timer path. It is a blocking dependency, not fire-and-forget.
type Poller struct {
	provider StatusProvider
	requests chan statusRequest
	logger   *logrus.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

type statusRequest struct {
	ctx   context.Context
	reply chan statusReply
}

type statusReply struct {
	status models.TuyaStatus
	err    error
}

// NewPoller starts workers goroutines servicing status requests.
func NewPoller(provider StatusProvider, workers int, logger *logrus.Logger) *Poller {
	if workers < 1 {
		workers = 1
	}
	p := &Poller{
		provider: provider,
		requests: make(chan statusRequest),
		logger:   logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Poller) worker() {
	defer p.wg.Done()
	for req := range p.requests {
		status, err := p.provider.Status(req.ctx)
		if err != nil {
			p.logger.WithError(err).Warn("local status query failed")
		}
		req.reply <- statusReply{status: status, err: err}
	}
}

// Status dispatches one query to the pool and waits for its result.
func (p *Poller) Status(ctx context.Context) (models.TuyaStatus, error) {
	req := statusRequest{ctx: ctx, reply: make(chan statusReply, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.status, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the workers. In-flight queries finish first.
func (p *Poller) Close() {
	p.closeOnce.Do(func() { close(p.requests) })
	p.wg.Wait()
}

var _ StatusProvider = (*Poller)(nil)
