package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/roasbeef/quiver/internal/indexing/campaign"
)

// SourceIndexingConfig is one source's periodic indexing configuration, per
// spec.md §4.7: every IndexingPeriod, a new campaign request is enqueued for
// SourceID against IndexID.
type SourceIndexingConfig struct {
	SourceID       string
	IndexID        string
	IndexingPeriod time.Duration
}

// CampaignRequest is one tick's worth of "go run a campaign for this source"
// work, as delivered out of the UniqueQueue to the drain loop.
type CampaignRequest struct {
	SourceID string
	IndexID  string
}

// ConfigBuilder resolves a CampaignRequest into a fully-formed
// campaign.Config (wiring in the concrete DocSource, schema, storage, and
// metastore for that source). The scheduler has no domain knowledge of any
// of this itself, matching how cmd/quiverd assembles per-source dependencies
// at startup.
type ConfigBuilder func(ctx context.Context, req CampaignRequest) (campaign.Config, error)

// Scheduler runs one ticker per configured source and a single drain worker
// that launches campaigns off the resulting UniqueQueue, one at a time per
// source. A source whose campaign is still running when the next tick fires
// never backs up: the UniqueQueue collapses the burst to the one request
// already pending.
type Scheduler struct {
	queue *UniqueQueue[string, CampaignRequest]
	build ConfigBuilder

	mu     sync.Mutex
	active map[string]*campaign.Campaign

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs a Scheduler. build is called once per dispatched campaign
// request, on the drain goroutine.
func New(build ConfigBuilder) *Scheduler {
	return &Scheduler{
		queue:  NewUniqueQueue[string, CampaignRequest](),
		build:  build,
		active: make(map[string]*campaign.Campaign),
		stopCh: make(chan struct{}),
	}
}

// Start launches one ticker goroutine per entry in configs plus the single
// drain worker that consumes the unique queue. Start returns immediately;
// call Stop to tear everything down.
func (s *Scheduler) Start(ctx context.Context, configs []SourceIndexingConfig) {
	for _, cfg := range configs {
		cfg := cfg
		s.wg.Add(1)
		go s.tick(ctx, cfg)
	}

	s.wg.Add(1)
	go s.drain(ctx)
}

// tick enqueues a CampaignRequest for cfg.SourceID every cfg.IndexingPeriod
// until ctx is cancelled or the scheduler is stopped.
func (s *Scheduler) tick(ctx context.Context, cfg SourceIndexingConfig) {
	defer s.wg.Done()

	ticker := time.NewTicker(cfg.IndexingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			req := CampaignRequest{SourceID: cfg.SourceID, IndexID: cfg.IndexID}
			if !s.queue.Send(cfg.SourceID, req) {
				log.Debugf("skipping tick for source=%v, prior campaign "+
					"still queued or running", cfg.SourceID)
			}

		case <-ctx.Done():
			return

		case <-s.stopCh:
			return
		}
	}
}

// drain pulls CampaignRequests off the unique queue and runs them serially.
// Running one campaign at a time (rather than fanning every request out
// concurrently) is deliberate: it's what makes the UniqueQueue's dedup rule
// meaningful in the first place, since a source's next tick is only ever a
// no-op while its own prior request is still sitting un-drained here.
func (s *Scheduler) drain(ctx context.Context) {
	defer s.wg.Done()

	for {
		req, ok := s.queue.Recv(ctx)
		if !ok {
			return
		}
		s.runCampaign(ctx, req)
	}
}

func (s *Scheduler) runCampaign(ctx context.Context, req CampaignRequest) {
	cfg, err := s.build(ctx, req)
	if err != nil {
		log.Errorf("unable to build campaign config for source=%v: %v",
			req.SourceID, err)
		return
	}

	c := campaign.Start(cfg)

	s.mu.Lock()
	s.active[req.SourceID] = c
	s.mu.Unlock()

	select {
	case <-c.Done():
	case <-ctx.Done():
		c.Stop()
		<-c.Done()
	}

	s.mu.Lock()
	delete(s.active, req.SourceID)
	s.mu.Unlock()

	if c.Failed() {
		log.Errorf("campaign failed for source=%v index=%v", req.SourceID,
			req.IndexID)
		return
	}
	log.Infof("campaign completed for source=%v index=%v", req.SourceID,
		req.IndexID)
}

// Active reports the source IDs with a campaign currently running.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// Stop signals every ticker and the drain worker to exit, closes the unique
// queue, and blocks until all scheduler goroutines have returned. It does
// not itself stop any campaign already running; callers that want a hard
// stop should cancel the ctx passed to Start instead.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.queue.Close()
	})
	s.wg.Wait()
}
