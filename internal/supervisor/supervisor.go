// Package supervisor runs one polling loop per tenant and keeps them alive.
// A tenant that fails, whether from a getUpdates conflict, a network outage,
// or anything else, is restarted after a fixed backoff. Tenants never affect
// each other; session state survives restarts of the same tenant.
package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/premiumbot/core/config"
	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/dispatch"
	"github.com/m3rciful/premiumbot/internal/engine"
	"github.com/m3rciful/premiumbot/internal/payment"
	"github.com/m3rciful/premiumbot/internal/session"
	"github.com/m3rciful/premiumbot/internal/store"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"github.com/m3rciful/premiumbot/internal/transport"
	"log/slog"
)

// Supervisor owns the full set of tenant bots.
type Supervisor struct {
	cfg      *config.Config
	configs  *store.Config
	payments *store.Payments
	sessions map[string]*session.Store

	// run is swapped out in tests to exercise the restart loop without a
	// live Telegram connection.
	run func(ctx context.Context, t tenant.Tenant) error
}

func New(cfg *config.Config, db *sqlx.DB) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		configs:  store.NewConfig(db),
		payments: store.NewPayments(db),
		sessions: make(map[string]*session.Store, len(cfg.Tenants)),
	}
	for _, tc := range cfg.Tenants {
		s.sessions[tc.ID] = session.NewStore()
	}
	s.run = s.runOnce
	return s
}

// Run starts every tenant and blocks until the context is cancelled and all
// tenant loops have exited.
func (s *Supervisor) Run(ctx context.Context) error {
	logger.SUP.Info("starting tenants",
		slog.String("event", "start"),
		slog.Int("count", len(s.cfg.Tenants)),
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		mErr *multierror.Error
	)
	for _, tc := range s.cfg.Tenants {
		t := tenant.Tenant{
			ID:          tc.ID,
			Token:       tc.Token,
			DisplayName: tc.DisplayName,
			AdminID:     tc.AdminID,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.runTenant(ctx, t); err != nil {
				mu.Lock()
				mErr = multierror.Append(mErr, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	logger.SUP.Info("all tenants stopped",
		slog.String("event", "stop"),
	)
	return mErr.ErrorOrNil()
}

// runTenant keeps one tenant alive until shutdown. Every exit of a run,
// whatever the cause, is followed by the same fixed backoff before the next
// attempt.
func (s *Supervisor) runTenant(ctx context.Context, t tenant.Tenant) error {
	backoff := time.Duration(s.cfg.Telegram.RestartBackoffSeconds) * time.Second
	if backoff <= 0 {
		backoff = 15 * time.Second
	}
	return s.runTenantWithBackoff(ctx, t, backoff)
}

func (s *Supervisor) runTenantWithBackoff(ctx context.Context, t tenant.Tenant, backoff time.Duration) error {
	for {
		start := time.Now()
		err := s.run(ctx, t)
		if ctx.Err() != nil {
			logger.SUP.Info("tenant stopped",
				slog.String("event", "tenant.stop"),
				slog.String("tenant", t.ID),
			)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}

		attrs := []slog.Attr{
			slog.String("event", "tenant.restart"),
			slog.String("tenant", t.ID),
			slog.String("cause", transport.ClassifyPollError(err)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
			slog.Int64("backoff_ms", backoff.Milliseconds()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
		}
		logger.SUP.LogAttrs(ctx, slog.LevelWarn, "tenant run ended", attrs...)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

// runOnce performs a single polling run: build the bot, drop stale updates,
// wire the engine behind per-chat dispatch lanes, and poll until the run
// dies or the context ends. All resources are released on every exit path.
func (s *Supervisor) runOnce(ctx context.Context, t tenant.Tenant) error {
	bot, err := transport.NewBot(t, s.botOptions())
	if err != nil {
		return err
	}

	// Stale updates from the downtime window would replay half-finished
	// conversations against fresh sessions.
	if err := bot.DropPendingUpdates(ctx); err != nil {
		logger.SUP.Warn("drop pending updates failed",
			slog.String("event", "tenant.cleanup"),
			slog.String("tenant", t.ID),
			slog.String("err", err.Error()),
		)
	}

	mgr := payment.NewManager(t, s.payments, s.configs, bot)
	eng := engine.New(t, s.sessions[t.ID], s.configs, mgr, bot)
	disp := dispatch.New(dispatch.Options{})
	defer disp.Close()

	bot.Listen(func(ev transport.Event) {
		evCtx := logger.WithRID(ctx, logger.BuildRID(ev.UpdateID, ev.ChatID, ev.UserID))
		evCtx = logger.WithTenant(evCtx, t.ID)
		evCtx = logger.WithUpdateMeta(evCtx, ev.UpdateID, ev.UserID, ev.ChatID)
		if err := disp.Enqueue(ev.ChatID, func() { eng.Handle(evCtx, ev) }); err != nil {
			logger.SUP.Warn("update dropped",
				slog.String("event", "tenant.enqueue"),
				slog.String("tenant", t.ID),
				slog.Int64("chat_id", ev.ChatID),
				slog.String("err", err.Error()),
			)
		}
	})

	logger.SUP.Info("tenant polling",
		slog.String("event", "tenant.start"),
		slog.String("tenant", t.ID),
		slog.String("name", t.DisplayName),
	)

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		return ctx.Err()
	case err := <-bot.Fatal():
		bot.Stop()
		<-runDone
		return err
	case <-runDone:
		return errors.New("poller stopped unexpectedly")
	}
}

func (s *Supervisor) botOptions() transport.Options {
	opts := transport.Options{
		LongPollTimeoutSeconds: s.cfg.Telegram.LongPollTimeoutSeconds,
	}
	if s.cfg.RateLimit.IntervalMS > 0 {
		opts.RateLimitInterval = time.Duration(s.cfg.RateLimit.IntervalMS) * time.Millisecond
		opts.RateLimitExclude = make(map[string]struct{}, len(s.cfg.RateLimit.ExcludeUpdates))
		for _, kind := range s.cfg.RateLimit.ExcludeUpdates {
			opts.RateLimitExclude[strings.ToLower(kind)] = struct{}{}
		}
	}
	return opts
}
