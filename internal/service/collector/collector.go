package collector

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/logging"
	"ai-script-adherence-service/internal/observability/metrics"
)

// Flush reasons, used as log fields and drop metric labels.
const (
	ReasonEnded        = "ended"
	ReasonIdle         = "idle"
	ReasonMaxFragments = "max_fragments"

	dropEmpty    = "empty"
	dropPipeline = "pipeline_error"
)

// FlushFunc evaluates the collected fragments of one interaction.
type FlushFunc func(ctx context.Context, interactionID, tenantID string, fragments models.RawTranscriptSet) error

// Config holds collector configuration.
type Config struct {
	IdleTimeout  time.Duration
	MaxFragments int
	Retention    time.Duration
}

type fragment struct {
	text      string
	timestamp int64
	seq       int
}

type interaction struct {
	lifecycle *Lifecycle
	tenantID  string
	fragments []fragment
	timer     *time.Timer
}

// Collector groups transcript events by interaction.
type Collector struct {
	cfg     Config
	flush   FlushFunc
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	interactions map[string]*interaction
	closed       bool
}

// New creates a collector. A nil metrics instance falls back to the default registry.
func New(cfg Config, flush FlushFunc, m *metrics.Metrics) *Collector {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Collector{
		cfg:          cfg,
		flush:        flush,
		metrics:      m,
		ctx:          ctx,
		cancel:       cancel,
		interactions: make(map[string]*interaction),
	}
}

// Add appends a final transcript fragment to its interaction. Fragments for
// interactions that already left COLLECTING are ignored.
func (c *Collector) Add(ev models.TranscriptFinal) {
	if ev.InteractionID == "" || strings.TrimSpace(ev.Text) == "" {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	it, ok := c.interactions[ev.InteractionID]
	if !ok {
		it = &interaction{
			lifecycle: NewLifecycle(ev.InteractionID),
			tenantID:  ev.TenantID,
		}
		c.interactions[ev.InteractionID] = it
		c.metrics.RecordInteractionOpened()
	}

	if err := it.lifecycle.Collect(); err != nil {
		c.mu.Unlock()
		logger := logging.WithInteraction(ev.InteractionID, ev.TenantID)
		logger.Warn().
			Err(err).
			Str("segmentId", ev.SegmentID).
			Msg("Ignoring late transcript fragment")
		return
	}

	it.fragments = append(it.fragments, fragment{
		text:      ev.Text,
		timestamp: ev.Timestamp,
		seq:       len(it.fragments),
	})

	full := c.cfg.MaxFragments > 0 && len(it.fragments) >= c.cfg.MaxFragments
	if !full && c.cfg.IdleTimeout > 0 {
		c.resetTimerLocked(ev.InteractionID, it)
	}
	c.mu.Unlock()

	if full {
		c.flushInteraction(ev.InteractionID, ReasonMaxFragments)
	}
}

// End flushes an interaction immediately.
func (c *Collector) End(ev models.InteractionEnded) {
	c.flushInteraction(ev.InteractionID, ReasonEnded)
}

// Active returns the number of interactions still collecting.
func (c *Collector) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.interactions {
		if it.lifecycle.CanCollect() {
			n++
		}
	}
	return n
}

// State returns the lifecycle state of a tracked interaction.
func (c *Collector) State(interactionID string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.interactions[interactionID]
	if !ok {
		return 0, false
	}
	return it.lifecycle.State(), true
}

// Close stops all timers, cancels in-flight flushes and waits for them to return.
// Interactions still collecting are dropped.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, it := range c.interactions {
		if it.timer != nil {
			it.timer.Stop()
		}
		if it.lifecycle.CanCollect() && it.lifecycle.Drop() {
			c.metrics.InteractionsActive.Dec()
			c.metrics.RecordInteractionDropped("shutdown")
			log.Warn().Str("interactionId", id).Int("fragments", len(it.fragments)).Msg("Dropping interaction on shutdown")
		}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Collector) resetTimerLocked(id string, it *interaction) {
	if it.timer != nil {
		it.timer.Stop()
	}
	it.timer = time.AfterFunc(c.cfg.IdleTimeout, func() {
		c.flushInteraction(id, ReasonIdle)
	})
}

func (c *Collector) flushInteraction(id, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	it, ok := c.interactions[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	if err := it.lifecycle.BeginEvaluation(); err != nil {
		c.mu.Unlock()
		return
	}
	if it.timer != nil {
		it.timer.Stop()
		it.timer = nil
	}
	fragments := ordered(it.fragments)
	it.fragments = nil
	tenantID := it.tenantID
	c.wg.Add(1)
	c.mu.Unlock()

	c.metrics.RecordInteractionFlushed()

	go func() {
		defer c.wg.Done()
		c.evaluate(id, tenantID, it.lifecycle, fragments, reason)
		c.forgetAfter(id, c.cfg.Retention)
	}()
}

func (c *Collector) evaluate(id, tenantID string, lc *Lifecycle, fragments models.RawTranscriptSet, reason string) {
	logger := logging.WithInteraction(id, tenantID)

	if len(fragments) == 0 {
		lc.Drop()
		c.metrics.RecordInteractionDropped(dropEmpty)
		logger.Warn().Str("reason", reason).Msg("Interaction ended without transcript fragments")
		return
	}

	logger.Info().
		Str("reason", reason).
		Int("fragments", len(fragments)).
		Msg("Flushing interaction to pipeline")

	if err := c.flush(c.ctx, id, tenantID, fragments); err != nil {
		lc.Drop()
		c.metrics.RecordInteractionDropped(dropPipeline)
		logger.Error().Err(err).Str("kind", models.KindOf(err)).Msg("Interaction dropped, no report published")
		return
	}

	if err := lc.Complete(); err != nil {
		logger.Warn().Err(err).Msg("Unexpected lifecycle transition")
	}
}

// forgetAfter keeps a finished interaction around so late fragments are rejected
// instead of opening a new interaction under the same id.
func (c *Collector) forgetAfter(id string, d time.Duration) {
	time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if it, ok := c.interactions[id]; ok && it.lifecycle.State().IsTerminal() {
			delete(c.interactions, id)
		}
	})
}

// ordered sorts fragments by event timestamp, then arrival.
func ordered(fragments []fragment) models.RawTranscriptSet {
	sorted := make([]fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].timestamp != sorted[j].timestamp {
			return sorted[i].timestamp < sorted[j].timestamp
		}
		return sorted[i].seq < sorted[j].seq
	})

	out := make(models.RawTranscriptSet, len(sorted))
	for i, f := range sorted {
		out[i] = f.text
	}
	return out
}
