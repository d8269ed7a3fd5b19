package engine

import (
	"context"

	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/payment"
	"github.com/m3rciful/premiumbot/internal/session"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"github.com/m3rciful/premiumbot/internal/transport"
	"log/slog"
)

const scratchPaymentType = "payment_type"

// showView replaces the previous flow message with a fresh one. Views are
// re-sent rather than edited because they may switch between photo and
// plain-text messages, which Telegram cannot edit across.
func (e *Engine) showView(ctx context.Context, chatID int64, prior transport.MessageRef, photo, text string, kb *transport.Keyboard) {
	e.be.Delete(ctx, prior)
	if photo != "" {
		if ref := e.be.SendPhoto(ctx, chatID, photo, text, kb); !ref.IsZero() {
			return
		}
		// Bad stored media must not kill the flow; fall back to text.
	}
	e.be.SendText(ctx, chatID, text, kb)
}

func (e *Engine) showWelcome(ctx context.Context, key session.Key, chatID int64, prior transport.MessageRef) {
	text := e.cfg.Get(ctx, e.tenant.ID, tenant.KeyWelcomeText, defaultWelcomeText)
	photo := e.cfg.Get(ctx, e.tenant.ID, tenant.KeyWelcomePhoto, "")
	demo := e.cfg.Get(ctx, e.tenant.ID, tenant.KeyDemoURL, "")
	howto := e.cfg.Get(ctx, e.tenant.ID, tenant.KeyHowToURL, "")
	e.showView(ctx, chatID, prior, photo, text, welcomeKeyboard(demo, howto))
	e.sessions.SetState(key, session.StateWelcome)
}

func (e *Engine) showPremium(ctx context.Context, key session.Key, chatID int64, prior transport.MessageRef) {
	text := e.cfg.Get(ctx, e.tenant.ID, tenant.KeyPremiumText, defaultPremiumText)
	photo := e.cfg.Get(ctx, e.tenant.ID, tenant.KeyPremiumPhoto, "")
	e.showView(ctx, chatID, prior, photo, text, premiumKeyboard())
	e.sessions.SetState(key, session.StatePremium)
}

func (e *Engine) showPayMethod(ctx context.Context, key session.Key, chatID int64, prior transport.MessageRef, typ payment.Type) {
	var (
		text  string
		photo string
		next  session.State
	)
	if typ == payment.TypeUPI {
		text = e.cfg.Get(ctx, e.tenant.ID, tenant.KeyUPIMessage, defaultUPIMessage)
		photo = e.cfg.Get(ctx, e.tenant.ID, tenant.KeyUPIQR, "")
		next = session.StatePayUPI
	} else {
		text = e.cfg.Get(ctx, e.tenant.ID, tenant.KeyCryptoMessage, defaultCryptoMessage)
		photo = e.cfg.Get(ctx, e.tenant.ID, tenant.KeyCryptoQR, "")
		next = session.StatePayCrypto
	}
	e.showView(ctx, chatID, prior, photo, text, payKeyboard(typ))
	e.sessions.SetState(key, next)
}

func (e *Engine) promptScreenshot(ctx context.Context, key session.Key, chatID int64, prior transport.MessageRef, typ payment.Type) {
	e.be.Delete(ctx, prior)
	e.be.SendText(ctx, chatID, textSendScreenshot, nil)
	if typ == payment.TypeUPI {
		e.sessions.SetState(key, session.StateAwaitShotUPI)
	} else {
		e.sessions.SetState(key, session.StateAwaitShotCrypto)
	}
	e.sessions.Put(key, scratchPaymentType, string(typ))
}

func (e *Engine) handleScreenshot(ctx context.Context, key session.Key, ev transport.Event, state session.State) {
	if ev.Kind != transport.EventMedia ||
		(ev.Media != transport.MediaPhoto && ev.Media != transport.MediaImageDocument) {
		e.be.SendText(ctx, ev.ChatID, textScreenshotRequired, nil)
		return
	}

	typ := payment.Type(e.sessions.Get(key, scratchPaymentType))
	if !typ.Valid() {
		// Scratch lost means the session is stale; recover via the state.
		typ = payment.TypeUPI
		if state == session.StateAwaitShotCrypto {
			typ = payment.TypeCrypto
		}
	}

	id, err := e.payments.Submit(ctx, ev.UserID, ev.Username, typ, ev.MediaRef)
	e.sessions.Reset(key)
	if err != nil {
		logger.Error(ctx, "engine", "screenshot.submit",
			slog.String("status", logger.Status(err)),
			slog.String("payment_type", string(typ)),
			slog.String("err", err.Error()),
		)
		e.be.SendText(ctx, ev.ChatID, textSubmitFailed, nil)
		return
	}
	logger.Info(ctx, "engine", "screenshot.submit",
		slog.String("status", "ok"),
		slog.Int64("payment_id", id),
		slog.String("payment_type", string(typ)),
	)
	e.be.SendText(ctx, ev.ChatID, textScreenshotReceived, nil)
}
