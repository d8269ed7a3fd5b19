// Package payment owns the payment request lifecycle: submission by buyers,
// notification fan-out to admins, and the race-safe approve/reject decision.
package payment

import (
	"errors"
	"time"
)

// Status of a payment request. Pending is the only state a decision can
// start from; confirmed and rejected are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusRejected
}

// Type of payment method the buyer used.
type Type string

const (
	TypeUPI    Type = "upi"
	TypeCrypto Type = "crypto"
)

// Valid reports whether t is a known payment type.
func (t Type) Valid() bool { return t == TypeUPI || t == TypeCrypto }

// Request is one submitted payment awaiting or past moderation.
type Request struct {
	ID            int64     `db:"id"`
	TenantID      string    `db:"tenant_id"`
	UserID        int64     `db:"user_id"`
	Username      string    `db:"username"`
	Type          Type      `db:"payment_type"`
	ScreenshotRef string    `db:"screenshot_ref"`
	Status        Status    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Stats aggregates per-status counts for one tenant.
type Stats struct {
	Pending   int
	Confirmed int
	Rejected  int
}

// Total returns the overall request count.
func (s Stats) Total() int { return s.Pending + s.Confirmed + s.Rejected }

var (
	// ErrAlreadyDecided is returned when a decision races against an
	// earlier one; exactly one decision per request wins.
	ErrAlreadyDecided = errors.New("payment: already decided")
	// ErrNotFound is returned when the referenced request does not exist.
	ErrNotFound = errors.New("payment: not found")
)
