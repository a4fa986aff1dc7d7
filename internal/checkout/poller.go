package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"tokocheckout/internal/models"
	"tokocheckout/pkg/logger"
	"tokocheckout/pkg/observable"

	"go.uber.org/zap"
)

// DefaultPollInterval is the delay between two status checks.
const DefaultPollInterval = 5 * time.Second

// PollerState is the lifecycle state of a Poller.
type PollerState string

const (
	PollerIdle     PollerState = "IDLE"
	PollerPolling  PollerState = "POLLING"
	PollerTerminal PollerState = "TERMINAL"
	PollerStopped  PollerState = "STOPPED"
)

// StatusChecker asks the backend for the current state of a payment.
type StatusChecker interface {
	CheckStatus(ctx context.Context, paymentID string) (*models.Payment, error)
}

// PollUpdate is published after start, after every check and on stop.
type PollUpdate struct {
	State     PollerState
	Payment   models.Payment
	Remaining time.Duration
	// ExpiredLocally is set once the countdown reaches zero. The payment is
	// only final once the server reports it.
	ExpiredLocally bool
	Checks         int
	Err            error
}

// Poller follows one payment until it reaches a terminal status or is stopped.
type Poller struct {
	checker  StatusChecker
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	updates  *observable.Value[PollUpdate]

	mu     sync.Mutex
	pubMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   PollUpdate
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// NewPoller creates an idle poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(checker StatusChecker, interval time.Duration, log *zap.Logger, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{
		checker:  checker,
		interval: interval,
		now:      time.Now,
		logger:   logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.last = PollUpdate{State: PollerIdle}
	p.updates = observable.New(p.last)
	closed := make(chan struct{})
	close(closed)
	p.done = closed
	return p
}

// Start begins following payment. A running loop is stopped first. A payment
// that is already terminal moves the poller straight to Terminal without any
// status check. Starting again with the id of a stopped payment is allowed and
// resumes following it.
func (p *Poller) Start(ctx context.Context, payment models.Payment) error {
	if payment.ID == "" {
		return models.ValidationError("start polling", "payment id is required")
	}
	if !payment.Status.IsValid() {
		return models.ValidationError("start polling", "payment %s has unknown status %q", payment.ID, payment.Status)
	}

	p.Stop()

	p.mu.Lock()
	if payment.Status.IsTerminal() {
		p.publishAndUnlock(p.updateFor(PollerTerminal, payment, 0, nil))
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.publishAndUnlock(p.updateFor(PollerPolling, payment, 0, nil))

	p.logger.Info("payment polling started",
		zap.String("payment_id", payment.ID),
		zap.Duration("interval", p.interval))

	go p.run(loopCtx, cancel, payment, done)
	return nil
}

// Stop cancels polling and waits for the loop to exit. Once Stop returns no
// further status checks are issued. Stop on an idle or finished poller is a no-op.
// It must not be called from a subscriber running on the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current poller state.
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last.State
}

// Last returns the most recent update.
func (p *Poller) Last() PollUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Done is closed when the current loop exits, for any reason. By then the
// poller is Terminal or Stopped.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Subscribe calls fn with the latest update and with every later one.
// Updates from the polling loop are delivered on its goroutine; a subscriber
// that wants to stop the poller must do so from another goroutine.
func (p *Poller) Subscribe(fn func(PollUpdate)) (unsubscribe func()) {
	return p.updates.Subscribe(fn)
}

func (p *Poller) run(ctx context.Context, cancel context.CancelFunc, payment models.Payment, done chan struct{}) {
	defer close(done)
	defer cancel()

	defer p.stopped(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	checks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// A tick and a cancellation can be ready together; cancellation wins.
		if ctx.Err() != nil {
			return
		}

		checks++
		latest, err := p.checker.CheckStatus(ctx, payment.ID)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			p.logger.Warn("payment status check failed, retrying next tick",
				zap.String("payment_id", payment.ID),
				zap.Int("check", checks),
				zap.String("kind", models.KindOf(err).String()),
				zap.Error(err))
			p.publish(PollerPolling, payment, checks, err)
			continue
		}

		if latest.ID != "" && latest.ID != payment.ID {
			err := models.NewError(models.KindServer, "check status", "status response for another payment "+latest.ID, nil)
			p.logger.Warn("ignoring mismatched status response", zap.String("payment_id", payment.ID), zap.Error(err))
			p.publish(PollerPolling, payment, checks, err)
			continue
		}

		if err := payment.TransitionTo(latest.Status); err != nil {
			p.logger.Warn("ignoring invalid status transition", zap.String("payment_id", payment.ID), zap.Error(err))
			p.publish(PollerPolling, payment, checks, err)
			continue
		}
		mergePayment(&payment, latest)

		if payment.Status.IsTerminal() {
			p.logger.Info("payment reached final status",
				zap.String("payment_id", payment.ID),
				zap.String("status", payment.Status.String()),
				zap.Int("checks", checks))
			p.mu.Lock()
			p.cancel = nil
			p.publishAndUnlock(p.updateFor(PollerTerminal, payment, checks, nil))
			return
		}
		p.publish(PollerPolling, payment, checks, nil)
	}
}

// stopped moves a loop that ended without a final status to Stopped, whether
// Stop or the caller's context ended it. Updates of a newer loop are left alone.
func (p *Poller) stopped(done chan struct{}) {
	p.mu.Lock()
	if p.done != done || p.last.State != PollerPolling {
		p.mu.Unlock()
		return
	}
	p.cancel = nil
	p.logger.Info("payment polling stopped", zap.String("payment_id", p.last.Payment.ID), zap.Int("checks", p.last.Checks))
	p.publishAndUnlock(p.updateFor(PollerStopped, p.last.Payment, p.last.Checks, nil))
}

func (p *Poller) publish(state PollerState, payment models.Payment, checks int, err error) {
	p.mu.Lock()
	p.publishAndUnlock(p.updateFor(state, payment, checks, err))
}

// publishAndUnlock records u, releases mu and notifies subscribers, keeping
// updates in the order they were recorded.
func (p *Poller) publishAndUnlock(u PollUpdate) {
	p.last = u
	p.pubMu.Lock()
	p.mu.Unlock()
	defer p.pubMu.Unlock()
	p.updates.Set(u)
}

func (p *Poller) updateFor(state PollerState, payment models.Payment, checks int, err error) PollUpdate {
	remaining := payment.Remaining(p.now())
	return PollUpdate{
		State:          state,
		Payment:        payment,
		Remaining:      remaining,
		ExpiredLocally: !payment.ExpiresAt.IsZero() && remaining == 0,
		Checks:         checks,
		Err:            err,
	}
}

// mergePayment takes the server's view of the mutable fields.
func mergePayment(dst *models.Payment, src *models.Payment) {
	if !src.ExpiresAt.IsZero() {
		dst.ExpiresAt = src.ExpiresAt
	}
	if !src.UpdatedAt.IsZero() {
		dst.UpdatedAt = src.UpdatedAt
	}
	if src.VirtualAccountNumber != "" {
		dst.VirtualAccountNumber = src.VirtualAccountNumber
	}
	if src.QRCodeURL != "" {
		dst.QRCodeURL = src.QRCodeURL
	}
}

// IsSessionExpired reports whether an update carries a session-expired error,
// in which case the owner should stop polling and ask the user to log in again.
func (u PollUpdate) IsSessionExpired() bool {
	return u.Err != nil && errors.Is(u.Err, models.ErrSessionExpired)
}
