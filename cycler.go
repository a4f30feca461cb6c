package trafficlight

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

var ErrAlreadyActive = errors.New("phase cycler is already active")

const (
	cyclerIdle int32 = iota
	cyclerRunning
	cyclerStopped
)

// PhaseCycler flips a traffic light between red and green on a randomized
// period and hands every new phase to callers blocked in Await.
type PhaseCycler struct {
	minCycle time.Duration
	maxCycle time.Duration
	poll     time.Duration
	rng      *rand.Rand

	queue     *TransferQueue[Phase]
	phase     atomic.Value // Phase
	state     atomic.Int32
	seq       uint64
	notifiers []Notifier

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPhaseCycler returns a red light that is not cycling yet.
func NewPhaseCycler(cfg *LightConfig, notifiers ...Notifier) (*PhaseCycler, error) {
	if cfg == nil {
		cfg = DefaultLightConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c := &PhaseCycler{
		minCycle:  cfg.MinCycle,
		maxCycle:  cfg.MaxCycle,
		poll:      cfg.PollInterval,
		rng:       rand.New(rand.NewSource(seed)),
		queue:     NewTransferQueue[Phase](),
		notifiers: notifiers,
		done:      make(chan struct{}),
	}
	c.phase.Store(PhaseRed)
	return c, nil
}

// CurrentPhase returns the latest phase without blocking.
func (c *PhaseCycler) CurrentPhase() Phase {
	return c.phase.Load().(Phase)
}

// Activate starts the timer loop. It runs until ctx is cancelled or Stop is
// called. Only the first call starts a loop; later calls return
// ErrAlreadyActive.
func (c *PhaseCycler) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CompareAndSwap(cyclerIdle, cyclerRunning) {
		return ErrAlreadyActive
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	logger.Info("traffic light activated",
		slog.String("phase", c.CurrentPhase().String()),
		slog.Duration("min_cycle", c.minCycle),
		slog.Duration("max_cycle", c.maxCycle),
	)
	go c.cycleThroughPhases(ctx)
	return nil
}

// Stop cancels the timer loop and waits for it and any running notifiers to
// return. It is a no-op when the cycler was never activated.
func (c *PhaseCycler) Stop() {
	c.mu.Lock()
	if c.state.CompareAndSwap(cyclerIdle, cyclerStopped) {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-c.done
	c.wg.Wait()
}

// Await blocks until a phase equal to target is received. Values taken from
// the queue are consumed; concurrent callers compete for them.
func (c *PhaseCycler) Await(target Phase) {
	for {
		if p := c.queue.Receive(); p == target {
			return
		}
	}
}

// AwaitContext is Await with cancellation.
func (c *PhaseCycler) AwaitContext(ctx context.Context, target Phase) error {
	for {
		p, err := c.queue.ReceiveContext(ctx)
		if err != nil {
			return err
		}
		if p == target {
			return nil
		}
	}
}

// WaitForGreen is Await(PhaseGreen).
func (c *PhaseCycler) WaitForGreen() {
	c.Await(PhaseGreen)
}

func (c *PhaseCycler) cycleThroughPhases(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		cycle := c.drawCycle()
		start := time.Now()
		logger.Debug("cycle started", slog.Duration("cycle", cycle))
		for time.Since(start) <= cycle {
			select {
			case <-ctx.Done():
				logger.Info("traffic light stopped", slog.String("phase", c.CurrentPhase().String()))
				return
			case <-ticker.C:
			}
		}
		c.toggle(ctx, cycle)
	}
}

func (c *PhaseCycler) toggle(ctx context.Context, cycle time.Duration) {
	next := c.CurrentPhase().Next()
	c.phase.Store(next)
	c.queue.Send(next)
	c.seq++
	t := Transition{
		Phase: next,
		At:    time.Now(),
		Cycle: cycle,
		Seq:   c.seq,
	}
	logger.Info("phase changed", slog.String("phase", next.String()), slog.Duration("cycle", cycle), slog.Uint64("seq", t.Seq))
	c.notify(withTransition(ctx, t), t)
}

// drawCycle returns a uniformly random duration in [minCycle, maxCycle].
func (c *PhaseCycler) drawCycle() time.Duration {
	span := int64(c.maxCycle - c.minCycle)
	return c.minCycle + time.Duration(c.rng.Int63n(span+1))
}
