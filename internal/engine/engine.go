// Package engine implements the conversation logic for one tenant: the
// buyer purchase flow and the admin panel. The engine is transport-agnostic;
// it consumes normalized events and talks back through transport.Outbound.
// Callers must deliver events for one chat sequentially.
package engine

import (
	"context"

	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/action"
	"github.com/m3rciful/premiumbot/internal/payment"
	"github.com/m3rciful/premiumbot/internal/session"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"github.com/m3rciful/premiumbot/internal/transport"
	"log/slog"
)

// ConfigStore reads and writes per-tenant configuration.
type ConfigStore interface {
	Get(ctx context.Context, tenant, key, def string) string
	Set(ctx context.Context, tenant, key, value string) error
}

// Payments is the slice of the payment manager the engine drives.
type Payments interface {
	Submit(ctx context.Context, userID int64, username string, typ payment.Type, screenshotRef string) (int64, error)
	Decide(ctx context.Context, id int64, approve bool, actorID int64, card *transport.MessageRef) (payment.Request, error)
	Broadcast(ctx context.Context, text string) (sent, failed int, err error)
	Pending(ctx context.Context, limit int) ([]payment.Request, error)
	ConfirmedUsers(ctx context.Context, limit int) ([]payment.Request, error)
	Stats(ctx context.Context) (payment.Stats, error)
	UserIDByUsername(ctx context.Context, username string) (int64, error)
}

// Engine routes events for one tenant.
type Engine struct {
	tenant   tenant.Tenant
	sessions *session.Store
	cfg      ConfigStore
	payments Payments
	out      transport.Outbound
	be       transport.BestEffort
}

func New(t tenant.Tenant, sessions *session.Store, cfg ConfigStore, payments Payments, out transport.Outbound) *Engine {
	return &Engine{
		tenant:   t,
		sessions: sessions,
		cfg:      cfg,
		payments: payments,
		out:      out,
		be:       transport.BestEffort{Out: out},
	}
}

// Handle processes one event to completion.
func (e *Engine) Handle(ctx context.Context, ev transport.Event) {
	key := session.Key{Tenant: e.tenant.ID, ChatID: ev.ChatID}

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "engine", "event",
			slog.String("kind", ev.Kind.String()),
			slog.String("state", string(e.sessions.State(key))),
		)
	}

	switch ev.Kind {
	case transport.EventCommand:
		e.handleCommand(ctx, key, ev)
	case transport.EventAction:
		e.handleAction(ctx, key, ev)
	case transport.EventText, transport.EventMedia:
		e.handleInput(ctx, key, ev)
	}
}

func (e *Engine) handleCommand(ctx context.Context, key session.Key, ev transport.Event) {
	ctx = logger.WithHandler(ctx, "cmd."+ev.Command)
	switch ev.Command {
	case "start":
		// /start always restarts the purchase flow, even mid-conversation.
		e.sessions.Reset(key)
		e.showWelcome(ctx, key, ev.ChatID, transport.MessageRef{})
	case "manage":
		e.handleManage(ctx, key, ev)
	case "cancel":
		e.sessions.Reset(key)
		e.be.SendText(ctx, ev.ChatID, textCancelled, nil)
	}
}

func (e *Engine) handleManage(ctx context.Context, key session.Key, ev transport.Event) {
	if !e.tenant.IsAdmin(ctx, e.cfg, ev.UserID) {
		logger.Warn(ctx, "engine", "manage.denied",
			slog.Int64("user_id", ev.UserID),
		)
		e.be.SendText(ctx, ev.ChatID, textNotAuthorized, nil)
		return
	}
	// Re-entry lands on a fresh main menu regardless of prior state.
	e.sessions.Reset(key)
	e.sessions.SetState(key, session.StateAdminMenu)
	e.be.SendText(ctx, ev.ChatID, adminMenuText, adminMenuKeyboard())
}

func (e *Engine) handleAction(ctx context.Context, key session.Key, ev transport.Event) {
	act := ev.Action
	ctx = logger.WithHandler(ctx, "cb."+string(act.Kind))

	if act.RequiresAdmin() {
		if !e.tenant.IsAdmin(ctx, e.cfg, ev.UserID) {
			logger.Warn(ctx, "engine", "action.denied",
				slog.String("action", string(act.Kind)),
				slog.Int64("user_id", ev.UserID),
			)
			e.be.AnswerCallback(ctx, ev.CallbackID, textNotAuthorized)
			return
		}
		e.handleAdminAction(ctx, key, ev)
		return
	}

	prior := transport.MessageRef{ChatID: ev.ChatID, MessageID: ev.MessageID}
	switch act.Kind {
	case action.GetPremium:
		e.showPremium(ctx, key, ev.ChatID, prior)
	case action.BackHome:
		e.showWelcome(ctx, key, ev.ChatID, prior)
	case action.PayUPI:
		e.showPayMethod(ctx, key, ev.ChatID, prior, payment.TypeUPI)
	case action.PayCrypto:
		e.showPayMethod(ctx, key, ev.ChatID, prior, payment.TypeCrypto)
	case action.PaidUPI:
		e.promptScreenshot(ctx, key, ev.ChatID, prior, payment.TypeUPI)
	case action.PaidCrypto:
		e.promptScreenshot(ctx, key, ev.ChatID, prior, payment.TypeCrypto)
	}
	e.be.AnswerCallback(ctx, ev.CallbackID, "")
}

func (e *Engine) handleInput(ctx context.Context, key session.Key, ev transport.Event) {
	state := e.sessions.State(key)
	switch {
	case state.AwaitsScreenshot():
		e.handleScreenshot(ctx, key, ev, state)
	case state.AwaitsInput():
		if !e.tenant.IsAdmin(ctx, e.cfg, ev.UserID) {
			return
		}
		e.handleAdminInput(ctx, key, ev, state)
	default:
		// Free-form messages outside a flow are ignored.
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "engine", "input.ignored",
				slog.String("state", string(state)),
			)
		}
	}
}
