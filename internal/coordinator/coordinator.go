// Package coordinator translates untranslated items in the background.
//
// A single run loop owns the pass state machine:
//
//	Idle --change--> Collecting --timer--> InFlight --done--> Idle
//
// Every change restarts the debounce timer. A timer that fires while a batch
// is in flight is a no-op, so at most one batch is ever dispatched at a time.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"correctionloop/internal/store"
)

// Defaults for Config
const (
	DefaultBatchSize = 100
	DefaultDebounce  = 2 * time.Second
)

// State of the pass state machine
type State int

const (
	Idle State = iota
	Collecting
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case InFlight:
		return "in_flight"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store is the part of the item store the coordinator works on
type Store interface {
	ClaimBatch(categoryID string, max int) []store.Claim
	ApplyBatch(claims []store.Claim, translations map[string]string) int
	ClaimOne(id string) (*store.Claim, error)
	ApplyOne(id, translation string)
}

// Translator is the translation contract used by the coordinator
type Translator interface {
	TranslateOne(ctx context.Context, text string) (string, error)
	TranslateMany(ctx context.Context, texts []string) map[string]string
}

// Config tunes batching
type Config struct {
	CategoryID string
	BatchSize  int
	Debounce   time.Duration
}

type eventKind int

const (
	evChange eventKind = iota
	evTimer
	evDone
)

type event struct {
	kind   eventKind
	gen    uint64
	claims []store.Claim
	result map[string]string
}

// Coordinator runs batch passes over one category
type Coordinator struct {
	store      Store
	translator Translator
	cfg        Config
	logger     *zap.Logger

	events chan event

	// owned by the run loop
	timer   *time.Timer
	gen     uint64
	pending bool

	mu    sync.RWMutex
	state State
}

// New creates a coordinator. Call Run to start processing.
func New(s Store, translator Translator, cfg Config, logger *zap.Logger) *Coordinator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Coordinator{
		store:      s,
		translator: translator,
		cfg:        cfg,
		logger:     logger,
		events:     make(chan event, 64),
	}
}

// CategoryID is the category whose items are translated
func (c *Coordinator) CategoryID() string {
	return c.cfg.CategoryID
}

// State returns the current pass state
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != s {
		c.logger.Debug("Coordinator state change",
			zap.Stringer("from", c.state),
			zap.Stringer("to", s),
		)
	}
	c.state = s
}

// Notify reports a change to the item collection. It never blocks; when the
// queue is full a change is already pending and will schedule the pass.
func (c *Coordinator) Notify() {
	select {
	case c.events <- event{kind: evChange}:
	default:
	}
}

// Run processes events until ctx is cancelled. Results of a batch still in
// flight at cancellation are discarded.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("Translation coordinator started",
		zap.String("category_id", c.cfg.CategoryID),
		zap.Int("batch_size", c.cfg.BatchSize),
		zap.Duration("debounce", c.cfg.Debounce),
	)
	for {
		select {
		case <-ctx.Done():
			if c.timer != nil {
				c.timer.Stop()
			}
			c.logger.Info("Translation coordinator stopped")
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Coordinator) send(ctx context.Context, ev event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func (c *Coordinator) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evChange:
		c.schedule(ctx)
	case evTimer:
		if ev.gen != c.gen {
			return // superseded by a later change
		}
		c.pending = false
		c.pass(ctx)
	case evDone:
		c.reconcile(ev)
	}
}

func (c *Coordinator) schedule(ctx context.Context) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.pending = true
	c.timer = time.AfterFunc(c.cfg.Debounce, func() {
		c.send(ctx, event{kind: evTimer, gen: gen})
	})

	if c.State() == Idle {
		c.setState(Collecting)
	}
}

func (c *Coordinator) pass(ctx context.Context) {
	if c.State() == InFlight {
		c.logger.Debug("Batch already in flight, skipping pass")
		return
	}

	claims := c.store.ClaimBatch(c.cfg.CategoryID, c.cfg.BatchSize)
	if len(claims) == 0 {
		c.setState(Idle)
		return
	}

	c.setState(InFlight)
	c.logger.Info("Dispatching translation batch", zap.Int("batch_size", len(claims)))
	go c.dispatch(ctx, claims)
}

func (c *Coordinator) dispatch(ctx context.Context, claims []store.Claim) {
	texts := make([]string, len(claims))
	for i, claim := range claims {
		texts[i] = claim.Content
	}

	result := c.translateMany(ctx, texts)
	c.send(ctx, event{kind: evDone, claims: claims, result: result})
}

func (c *Coordinator) translateMany(ctx context.Context, texts []string) (result map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Translator panicked during batch", zap.Any("panic", r))
			result = map[string]string{}
		}
	}()

	result = c.translator.TranslateMany(ctx, texts)
	if result == nil {
		result = map[string]string{}
	}
	return result
}

func (c *Coordinator) reconcile(ev event) {
	applied := c.store.ApplyBatch(ev.claims, ev.result)
	c.logger.Info("Translation batch reconciled",
		zap.Int("batch_size", len(ev.claims)),
		zap.Int("translated", applied),
		zap.Int("missing", len(ev.claims)-applied),
	)

	if c.pending {
		c.setState(Collecting)
	} else {
		c.setState(Idle)
	}
}

// Drain runs passes back to back until no candidates remain or a pass
// translates nothing. It must not be used while Run is processing events.
func (c *Coordinator) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		claims := c.store.ClaimBatch(c.cfg.CategoryID, c.cfg.BatchSize)
		if len(claims) == 0 {
			return total, nil
		}

		texts := make([]string, len(claims))
		for i, claim := range claims {
			texts[i] = claim.Content
		}
		applied := c.store.ApplyBatch(claims, c.translateMany(ctx, texts))
		total += applied
		c.logger.Info("Drain pass finished",
			zap.Int("batch_size", len(claims)),
			zap.Int("translated", applied),
		)
		if applied == 0 {
			return total, nil
		}
	}
}

// FetchOne translates a single item outside the batch cycle. Items that are
// already translated or being translated by any path are left alone.
func (c *Coordinator) FetchOne(ctx context.Context, itemID string) error {
	claim, err := c.store.ClaimOne(itemID)
	if err != nil {
		return err
	}
	if claim == nil {
		return nil
	}
	c.Fetch(ctx, *claim)
	return nil
}

// Fetch settles a claim the caller already holds
func (c *Coordinator) Fetch(ctx context.Context, claim store.Claim) {
	translation, err := c.translateOne(ctx, claim.Content)
	if err != nil {
		c.logger.Warn("Single-item translation failed",
			zap.String("item_id", claim.ID),
			zap.Error(err),
		)
		translation = ""
	}
	c.store.ApplyOne(claim.ID, translation)
}

func (c *Coordinator) translateOne(ctx context.Context, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translator panicked: %v", r)
		}
	}()
	return c.translator.TranslateOne(ctx, text)
}
