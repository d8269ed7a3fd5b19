// Package action models every inline-button callback the bots understand.
// Raw callback data is decoded exactly once at the transport edge; all
// downstream code switches on the typed Action.
package action

import (
	"errors"
	"strconv"
)

// Kind names a callback. The string values are the wire uniques embedded in
// inline keyboards, so they must stay stable across releases.
type Kind string

// Purchase flow callbacks.
const (
	GetPremium Kind = "get_premium"
	PayUPI     Kind = "pay_upi"
	PayCrypto  Kind = "pay_crypto"
	PaidUPI    Kind = "paid_upi"
	PaidCrypto Kind = "paid_crypto"
	BackHome   Kind = "back_home"
)

// Admin panel navigation callbacks.
const (
	MenuMain         Kind = "mgr_main"
	MenuWelcome      Kind = "mgr_welcome"
	MenuPremium      Kind = "mgr_premium"
	MenuUPI          Kind = "mgr_upi"
	MenuCrypto       Kind = "mgr_crypto"
	MenuButtons      Kind = "mgr_buttons"
	MenuPayments     Kind = "mgr_payments"
	MenuUsers        Kind = "mgr_users"
	MenuStats        Kind = "mgr_stats"
	MenuBroadcast    Kind = "mgr_broadcast"
	MenuConfirmedMsg Kind = "mgr_confirm_msg"
	MenuAdmins       Kind = "mgr_admins"
	MenuClose        Kind = "mgr_close"
)

// Admin panel edit callbacks. Set* switches the session into an await state,
// Del* clears a stored value immediately.
const (
	SetWelcomeText  Kind = "mgr_set_welcome_text"
	SetWelcomePhoto Kind = "mgr_set_welcome_photo"
	DelWelcomePhoto Kind = "mgr_del_welcome_photo"
	SetPremiumText  Kind = "mgr_set_premium_text"
	SetPremiumPhoto Kind = "mgr_set_premium_photo"
	DelPremiumPhoto Kind = "mgr_del_premium_photo"
	SetUPIQR        Kind = "mgr_set_upi_qr"
	SetUPIMsg       Kind = "mgr_set_upi_msg"
	DelUPIQR        Kind = "mgr_del_upi_qr"
	SetCryptoQR     Kind = "mgr_set_crypto_qr"
	SetCryptoMsg    Kind = "mgr_set_crypto_msg"
	DelCryptoQR     Kind = "mgr_del_crypto_qr"
	SetDemoURL      Kind = "mgr_set_demo_url"
	SetHowToURL     Kind = "mgr_set_howto_url"
	SetConfirmedMsg Kind = "mgr_set_confirm_msg"
	AddAdmin        Kind = "mgr_add_admin"
)

// Parameterized admin callbacks. The argument travels in the callback payload.
const (
	Approve     Kind = "mgr_approve" // Arg: payment id
	Reject      Kind = "mgr_reject"  // Arg: payment id
	RemoveAdmin Kind = "mgr_rmadmin" // Arg: admin user id
)

// Action is one decoded callback.
type Action struct {
	Kind Kind
	Arg  int64
}

// ErrUnknown is returned for callback data no keyboard of ours produces.
var ErrUnknown = errors.New("action: unknown callback")

// ErrBadArg is returned when a parameterized callback carries a payload that
// is not a positive integer.
var ErrBadArg = errors.New("action: bad callback argument")

var plain = map[Kind]struct{}{
	GetPremium: {}, PayUPI: {}, PayCrypto: {}, PaidUPI: {}, PaidCrypto: {}, BackHome: {},
	MenuMain: {}, MenuWelcome: {}, MenuPremium: {}, MenuUPI: {}, MenuCrypto: {},
	MenuButtons: {}, MenuPayments: {}, MenuUsers: {}, MenuStats: {},
	MenuBroadcast: {}, MenuConfirmedMsg: {}, MenuAdmins: {}, MenuClose: {},
	SetWelcomeText: {}, SetWelcomePhoto: {}, DelWelcomePhoto: {},
	SetPremiumText: {}, SetPremiumPhoto: {}, DelPremiumPhoto: {},
	SetUPIQR: {}, SetUPIMsg: {}, DelUPIQR: {},
	SetCryptoQR: {}, SetCryptoMsg: {}, DelCryptoQR: {},
	SetDemoURL: {}, SetHowToURL: {}, SetConfirmedMsg: {}, AddAdmin: {},
}

var parameterized = map[Kind]struct{}{
	Approve: {}, Reject: {}, RemoveAdmin: {},
}

// Decode turns a callback unique and payload into a typed Action.
func Decode(unique, payload string) (Action, error) {
	k := Kind(unique)
	if _, ok := plain[k]; ok {
		return Action{Kind: k}, nil
	}
	if _, ok := parameterized[k]; ok {
		arg, err := strconv.ParseInt(payload, 10, 64)
		if err != nil || arg <= 0 {
			return Action{}, ErrBadArg
		}
		return Action{Kind: k, Arg: arg}, nil
	}
	return Action{}, ErrUnknown
}

// Payload renders the argument for keyboard building, empty for plain kinds.
func (a Action) Payload() string {
	if _, ok := parameterized[a.Kind]; !ok {
		return ""
	}
	return strconv.FormatInt(a.Arg, 10)
}

// RequiresAdmin reports whether the action may only be taken by a tenant
// admin. Everything outside the purchase flow is admin-only.
func (a Action) RequiresAdmin() bool {
	switch a.Kind {
	case GetPremium, PayUPI, PayCrypto, PaidUPI, PaidCrypto, BackHome:
		return false
	}
	return true
}
