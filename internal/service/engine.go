package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	snapshotBuffer   = 256
	persistAttempts  = 3
	persistBackoff   = 100 * time.Millisecond
	persistOpTimeout = 5 * time.Second
)

// Engine owns one Pipeline per agent and the shared capabilities they
// draw on. Belief snapshots flow through a buffered channel to a
// background persistence worker so pipeline steps never block on
// storage.
type Engine struct {
	cfg      domain.PipelineConfig
	sim      domain.Similarity
	embedder domain.EmbeddingClient
	hook     domain.PersistenceHook
	node     *snowflake.Node
	logger   *zap.Logger

	normalizer   *Normalizer
	clusterer    *ClusterBuilder
	consolidator *Consolidator
	evolver      *Evolver
	networkSvc   *NetworkService
	projector    *Projector

	stepInterval time.Duration

	mu        sync.Mutex
	pipelines map[uuid.UUID]*Pipeline

	snapCh chan domain.BeliefSnapshot
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// EngineOption tunes engine construction.
type EngineOption func(*Engine)

// WithEmbedder attaches an embedding client used to vectorize newly
// consolidated beliefs.
func WithEmbedder(embedder domain.EmbeddingClient) EngineOption {
	return func(e *Engine) { e.embedder = embedder }
}

// WithStepInterval enables the background scheduler that steps every
// pipeline at the given cadence. Zero leaves stepping caller-driven.
func WithStepInterval(interval time.Duration) EngineOption {
	return func(e *Engine) { e.stepInterval = interval }
}

func NewEngine(cfg domain.PipelineConfig, sim domain.Similarity, hook domain.PersistenceHook, logger *zap.Logger, opts ...EngineOption) (*Engine, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create id node: %w", err)
	}

	evolver := NewEvolver(cfg, logger)
	e := &Engine{
		cfg:          cfg,
		sim:          sim,
		hook:         hook,
		node:         node,
		logger:       logger,
		normalizer:   NewNormalizer(cfg, node, logger),
		clusterer:    NewClusterBuilder(cfg, sim, logger),
		consolidator: NewConsolidator(cfg, logger),
		evolver:      evolver,
		networkSvc:   NewNetworkService(cfg, NewSignatureRelationDiscoverer(sim), logger),
		projector:    NewProjector(cfg, evolver, logger),
		pipelines:    make(map[uuid.UUID]*Pipeline),
		snapCh:       make(chan domain.BeliefSnapshot, snapshotBuffer),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Pipeline returns the agent's pipeline, creating it on first use.
func (e *Engine) Pipeline(agentID uuid.UUID) *Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.pipelines[agentID]; ok {
		return p
	}

	p := &Pipeline{
		agentID:      agentID,
		cfg:          e.cfg,
		normalizer:   e.normalizer,
		clusterer:    e.clusterer,
		consolidator: e.consolidator,
		evolver:      e.evolver,
		networkSvc:   e.networkSvc,
		projector:    e.projector,
		sim:          e.sim,
		embedder:     e.embedder,
		emit:         e.enqueue,
		logger:       e.logger,
		feelings:     make(map[int64]*domain.Feeling),
		network:      domain.NewBeliefNetwork(),
		state:        domain.NewPersonalityState(agentID),
	}
	e.pipelines[agentID] = p
	e.logger.Info("pipeline created", zap.String("agent_id", agentID.String()))
	return p
}

// StepAll runs one pass over every pipeline. Per-agent failures are
// logged and do not stop the sweep.
func (e *Engine) StepAll(ctx context.Context, now time.Time) map[uuid.UUID]StepResult {
	e.mu.Lock()
	agents := make([]uuid.UUID, 0, len(e.pipelines))
	for id := range e.pipelines {
		agents = append(agents, id)
	}
	e.mu.Unlock()

	results := make(map[uuid.UUID]StepResult, len(agents))
	for _, id := range agents {
		res, err := e.Pipeline(id).Step(ctx, now)
		if err != nil {
			e.logger.Error("pipeline step failed",
				zap.String("agent_id", id.String()),
				zap.Error(err))
			continue
		}
		results[id] = res
	}
	return results
}

// Start launches the persistence worker and, when configured, the step
// scheduler.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.persistLoop()

	if e.stepInterval > 0 {
		e.wg.Add(1)
		go e.stepLoop()
	}
	e.logger.Info("engine started",
		zap.Duration("step_interval", e.stepInterval))
}

// Stop drains pending snapshots and waits for workers to exit.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

func (e *Engine) enqueue(snap domain.BeliefSnapshot) {
	select {
	case e.snapCh <- snap:
	default:
		// Persistence is advisory; dropping beats blocking the step.
		e.logger.Warn("snapshot queue full, dropping",
			zap.String("belief_id", snap.BeliefID.String()),
			zap.Int("version", snap.Version))
	}
}

func (e *Engine) persistLoop() {
	defer e.wg.Done()
	for {
		select {
		case snap := <-e.snapCh:
			e.persist(snap)
		case <-e.stopCh:
			for {
				select {
				case snap := <-e.snapCh:
					e.persist(snap)
				default:
					return
				}
			}
		}
	}
}

// persist retries transient failures; the hook is idempotent on
// (belief id, version) so redelivery is harmless.
func (e *Engine) persist(snap domain.BeliefSnapshot) {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), persistOpTimeout)
		err = e.hook.Persist(ctx, snap)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(persistBackoff * time.Duration(attempt))
	}
	e.logger.Error("snapshot persistence failed",
		zap.String("belief_id", snap.BeliefID.String()),
		zap.Int("version", snap.Version),
		zap.Error(err))
}

func (e *Engine) stepLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.stepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			e.StepAll(context.Background(), now.UTC())
		case <-e.stopCh:
			return
		}
	}
}
