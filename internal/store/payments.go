package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/premiumbot/internal/payment"
)

// Payments persists payment requests. It implements payment.Store.
type Payments struct {
	db *sqlx.DB
}

func NewPayments(db *sqlx.DB) *Payments {
	return &Payments{db: db}
}

func (p *Payments) Insert(ctx context.Context, req *payment.Request) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id,
		`INSERT INTO payments (tenant_id, user_id, username, payment_type, screenshot_ref, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		req.TenantID, req.UserID, req.Username, req.Type, req.ScreenshotRef, payment.StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (p *Payments) Get(ctx context.Context, tenantID string, id int64) (payment.Request, error) {
	var req payment.Request
	err := p.db.GetContext(ctx, &req,
		`SELECT * FROM payments WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Request{}, payment.ErrNotFound
	}
	if err != nil {
		return payment.Request{}, fmt.Errorf("get payment %d: %w", id, err)
	}
	return req, nil
}

// UpdateStatusIfPending flips the status in a single guarded UPDATE. The
// status predicate makes the transition atomic: of N racing callers exactly
// one sees a row affected.
func (p *Payments) UpdateStatusIfPending(ctx context.Context, tenantID string, id int64, next payment.Status) (bool, error) {
	if !next.Valid() || next == payment.StatusPending {
		return false, fmt.Errorf("invalid transition to %q", next)
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE payments SET status = $3, updated_at = now()
		 WHERE tenant_id = $1 AND id = $2 AND status = $4`,
		tenantID, id, next, payment.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("update payment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update payment %d: %w", id, err)
	}
	return n == 1, nil
}

func (p *Payments) ListByStatus(ctx context.Context, tenantID string, status payment.Status, limit int) ([]payment.Request, error) {
	if limit <= 0 {
		limit = 100
	}
	var reqs []payment.Request
	err := p.db.SelectContext(ctx, &reqs,
		`SELECT * FROM payments
		 WHERE tenant_id = $1 AND status = $2
		 ORDER BY id
		 LIMIT $3`,
		tenantID, status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return reqs, nil
}

// LatestConfirmed returns the newest confirmed request per user.
func (p *Payments) LatestConfirmed(ctx context.Context, tenantID string, limit int) ([]payment.Request, error) {
	if limit <= 0 {
		limit = 50
	}
	var reqs []payment.Request
	err := p.db.SelectContext(ctx, &reqs,
		`SELECT * FROM (
		     SELECT DISTINCT ON (user_id) *
		     FROM payments
		     WHERE tenant_id = $1 AND status = $2
		     ORDER BY user_id, updated_at DESC
		 ) latest
		 ORDER BY updated_at DESC
		 LIMIT $3`,
		tenantID, payment.StatusConfirmed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("latest confirmed: %w", err)
	}
	return reqs, nil
}

func (p *Payments) ConfirmedUserIDs(ctx context.Context, tenantID string) ([]int64, error) {
	var ids []int64
	err := p.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT user_id FROM payments
		 WHERE tenant_id = $1 AND status = $2`,
		tenantID, payment.StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("confirmed users: %w", err)
	}
	return ids, nil
}

// FindUserIDByUsername resolves a username from past submissions, newest
// first. Usernames change on Telegram so the latest row wins.
func (p *Payments) FindUserIDByUsername(ctx context.Context, tenantID, username string) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id,
		`SELECT user_id FROM payments
		 WHERE tenant_id = $1 AND lower(username) = lower($2)
		 ORDER BY id DESC
		 LIMIT 1`,
		tenantID, username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, payment.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find user by username: %w", err)
	}
	return id, nil
}

func (p *Payments) CountByStatus(ctx context.Context, tenantID string) (payment.Stats, error) {
	rows := []struct {
		Status payment.Status `db:"status"`
		Count  int            `db:"count"`
	}{}
	err := p.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM payments
		 WHERE tenant_id = $1
		 GROUP BY status`,
		tenantID,
	)
	if err != nil {
		return payment.Stats{}, fmt.Errorf("count payments: %w", err)
	}
	var st payment.Stats
	for _, r := range rows {
		switch r.Status {
		case payment.StatusPending:
			st.Pending = r.Count
		case payment.StatusConfirmed:
			st.Confirmed = r.Count
		case payment.StatusRejected:
			st.Rejected = r.Count
		}
	}
	return st, nil
}
