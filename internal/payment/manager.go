package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/action"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"github.com/m3rciful/premiumbot/internal/transport"
	"log/slog"
)

// Store persists payment requests. Implementations must make
// UpdateStatusIfPending atomic: of N concurrent calls for the same pending
// request exactly one may return true.
type Store interface {
	Insert(ctx context.Context, req *Request) (int64, error)
	Get(ctx context.Context, tenantID string, id int64) (Request, error)
	UpdateStatusIfPending(ctx context.Context, tenantID string, id int64, next Status) (bool, error)
	ListByStatus(ctx context.Context, tenantID string, status Status, limit int) ([]Request, error)
	// LatestConfirmed returns at most one confirmed request per user,
	// newest first.
	LatestConfirmed(ctx context.Context, tenantID string, limit int) ([]Request, error)
	ConfirmedUserIDs(ctx context.Context, tenantID string) ([]int64, error)
	CountByStatus(ctx context.Context, tenantID string) (Stats, error)
	// FindUserIDByUsername resolves a username seen in past submissions.
	FindUserIDByUsername(ctx context.Context, tenantID, username string) (int64, error)
}

// ConfigStore reads tenant configuration values.
type ConfigStore interface {
	Get(ctx context.Context, tenant, key, def string) string
}

const defaultConfirmedMsg = "✅ Your payment has been confirmed. Welcome to premium!"

// Manager drives the payment workflow for one tenant.
type Manager struct {
	tenant tenant.Tenant
	store  Store
	cfg    ConfigStore
	out    transport.Outbound
	be     transport.BestEffort
}

func NewManager(t tenant.Tenant, store Store, cfg ConfigStore, out transport.Outbound) *Manager {
	return &Manager{
		tenant: t,
		store:  store,
		cfg:    cfg,
		out:    out,
		be:     transport.BestEffort{Out: out},
	}
}

// Submit records a new pending request and fans the notification out to
// every admin. Fan-out failures are logged and never abort the submission;
// the request is persisted either way.
func (m *Manager) Submit(ctx context.Context, userID int64, username string, typ Type, screenshotRef string) (int64, error) {
	if !typ.Valid() {
		return 0, fmt.Errorf("payment: invalid type %q", typ)
	}
	req := &Request{
		TenantID:      m.tenant.ID,
		UserID:        userID,
		Username:      username,
		Type:          typ,
		ScreenshotRef: screenshotRef,
		Status:        StatusPending,
	}
	id, err := m.store.Insert(ctx, req)
	if err != nil {
		logger.Error(ctx, "payment", "submit.failed",
			slog.String("status", logger.Status(err)),
			slog.String("payment_type", string(typ)),
			slog.String("err", err.Error()),
		)
		return 0, fmt.Errorf("submit payment: %w", err)
	}
	req.ID = id

	admins := m.tenant.AdminSet(ctx, m.cfg)
	var fanErr *multierror.Error
	sent := 0
	for _, adminID := range admins {
		if err := m.notifyAdmin(ctx, adminID, req); err != nil {
			fanErr = multierror.Append(fanErr, fmt.Errorf("admin %d: %w", adminID, err))
			continue
		}
		sent++
	}
	attrs := []slog.Attr{
		slog.String("status", logger.Status(fanErr.ErrorOrNil())),
		slog.Int64("payment_id", id),
		slog.String("payment_type", string(typ)),
		slog.Int("admins", len(admins)),
		slog.Int("sent", sent),
		slog.Int("failed", len(admins)-sent),
	}
	if err := fanErr.ErrorOrNil(); err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.Warn(ctx, "payment", "submit.fanout", attrs...)
	} else {
		logger.Info(ctx, "payment", "submit.fanout", attrs...)
	}
	return id, nil
}

func (m *Manager) notifyAdmin(ctx context.Context, adminID int64, req *Request) error {
	kb := (&transport.Keyboard{}).Row(
		transport.DoArg("✅ Approve", action.Approve, req.ID),
		transport.DoArg("❌ Reject", action.Reject, req.ID),
	)
	caption := requestCard(req)
	if req.ScreenshotRef != "" {
		_, err := m.out.SendPhoto(ctx, adminID, req.ScreenshotRef, caption, kb)
		return err
	}
	_, err := m.out.SendText(ctx, adminID, caption, kb)
	return err
}

// Decide resolves a pending request. Exactly one of N racing decisions wins;
// the rest get ErrAlreadyDecided. The buyer notification and the card edit
// are best effort and never undo the decision.
func (m *Manager) Decide(ctx context.Context, id int64, approve bool, actorID int64, card *transport.MessageRef) (Request, error) {
	next := StatusRejected
	if approve {
		next = StatusConfirmed
	}

	won, err := m.store.UpdateStatusIfPending(ctx, m.tenant.ID, id, next)
	if err != nil {
		return Request{}, fmt.Errorf("decide payment %d: %w", id, err)
	}
	if !won {
		if _, getErr := m.store.Get(ctx, m.tenant.ID, id); errors.Is(getErr, ErrNotFound) {
			return Request{}, ErrNotFound
		}
		logger.Info(ctx, "payment", "decide.lost",
			slog.Int64("payment_id", id),
			slog.String("decision", string(next)),
			slog.Int64("actor_id", actorID),
		)
		return Request{}, ErrAlreadyDecided
	}

	req, err := m.store.Get(ctx, m.tenant.ID, id)
	if err != nil {
		return Request{}, fmt.Errorf("reload payment %d: %w", id, err)
	}

	logger.Info(ctx, "payment", "decide",
		slog.String("status", "ok"),
		slog.Int64("payment_id", id),
		slog.String("decision", string(next)),
		slog.Int64("actor_id", actorID),
	)

	m.notifyBuyer(ctx, req)
	if card != nil && !card.IsZero() {
		m.be.EditCaption(ctx, *card, decidedCard(&req, actorID), nil)
	}
	return req, nil
}

func (m *Manager) notifyBuyer(ctx context.Context, req Request) {
	var text string
	if req.Status == StatusConfirmed {
		text = m.cfg.Get(ctx, m.tenant.ID, tenant.KeyConfirmedMsg, defaultConfirmedMsg)
	} else {
		text = "❌ Your payment could not be verified. Contact support if you believe this is a mistake."
	}
	m.be.SendText(ctx, req.UserID, text, nil)
}

// Broadcast sends text to every user with a confirmed payment. Send failures
// are counted, logged, and do not stop the loop.
func (m *Manager) Broadcast(ctx context.Context, text string) (sent, failed int, err error) {
	ids, err := m.store.ConfirmedUserIDs(ctx, m.tenant.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("broadcast recipients: %w", err)
	}

	start := time.Now()
	var sendErr *multierror.Error
	for _, userID := range ids {
		if _, err := m.out.SendText(ctx, userID, text, nil); err != nil {
			sendErr = multierror.Append(sendErr, fmt.Errorf("user %d: %w", userID, err))
			failed++
			continue
		}
		sent++
	}

	attrs := []slog.Attr{
		slog.String("status", logger.Status(sendErr.ErrorOrNil())),
		slog.Int("recipients", len(ids)),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err := sendErr.ErrorOrNil(); err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 512)))
		logger.Warn(ctx, "payment", "broadcast", attrs...)
	} else {
		logger.Info(ctx, "payment", "broadcast", attrs...)
	}
	return sent, failed, nil
}

// Pending lists requests still awaiting a decision, oldest first.
func (m *Manager) Pending(ctx context.Context, limit int) ([]Request, error) {
	return m.store.ListByStatus(ctx, m.tenant.ID, StatusPending, limit)
}

// ConfirmedUsers lists confirmed buyers, one entry per user.
func (m *Manager) ConfirmedUsers(ctx context.Context, limit int) ([]Request, error) {
	return m.store.LatestConfirmed(ctx, m.tenant.ID, limit)
}

// Stats returns per-status counts for the tenant.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	return m.store.CountByStatus(ctx, m.tenant.ID)
}

// UserIDByUsername resolves a username against past submissions. Only users
// who submitted at least once can be found this way.
func (m *Manager) UserIDByUsername(ctx context.Context, username string) (int64, error) {
	return m.store.FindUserIDByUsername(ctx, m.tenant.ID, username)
}

func requestCard(req *Request) string {
	user := req.Username
	if user == "" {
		user = "unknown"
	}
	return fmt.Sprintf(
		"🧾 <b>New payment</b> #%d\n👤 %s (<code>%d</code>)\n💳 Method: %s\n⏳ Status: pending",
		req.ID, user, req.UserID, req.Type,
	)
}

func decidedCard(req *Request, actorID int64) string {
	mark := "❌"
	if req.Status == StatusConfirmed {
		mark = "✅"
	}
	user := req.Username
	if user == "" {
		user = "unknown"
	}
	return fmt.Sprintf(
		"%s <b>Payment</b> #%d\n👤 %s (<code>%d</code>)\n💳 Method: %s\n📌 Status: %s (by <code>%d</code>)",
		mark, req.ID, user, req.UserID, req.Type, req.Status, actorID,
	)
}
