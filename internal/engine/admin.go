package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/action"
	"github.com/m3rciful/premiumbot/internal/payment"
	"github.com/m3rciful/premiumbot/internal/session"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"github.com/m3rciful/premiumbot/internal/transport"
	"log/slog"
)

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// prompts maps every Set* callback to the session state it opens and the
// instruction shown to the admin.
var prompts = map[action.Kind]struct {
	state session.State
	text  string
}{
	action.SetWelcomeText:  {session.StateAwaitWelcomeText, "✏️ Send the new welcome text."},
	action.SetWelcomePhoto: {session.StateAwaitWelcomePhoto, "🖼 Send the new welcome photo, or a link to one."},
	action.SetPremiumText:  {session.StateAwaitPremiumText, "✏️ Send the new premium text."},
	action.SetPremiumPhoto: {session.StateAwaitPremiumPhoto, "🖼 Send the new premium photo, or a link to one."},
	action.SetUPIQR:        {session.StateAwaitUPIQR, "🖼 Send the UPI QR photo, or a link to one."},
	action.SetUPIMsg:       {session.StateAwaitUPIMsg, "✏️ Send the new UPI payment message."},
	action.SetCryptoQR:     {session.StateAwaitCryptoQR, "🖼 Send the crypto QR photo, or a link to one."},
	action.SetCryptoMsg:    {session.StateAwaitCryptoMsg, "✏️ Send the new crypto payment message."},
	action.SetDemoURL:      {session.StateAwaitDemoURL, "🔗 Send the demo link (URL or @handle)."},
	action.SetHowToURL:     {session.StateAwaitHowToURL, "🔗 Send the how-to link (URL or @handle)."},
	action.SetConfirmedMsg: {session.StateAwaitConfirmedMsg, "✏️ Send the message buyers receive on confirmation."},
	action.AddAdmin:        {session.StateAwaitAddAdmin, "🔐 Send the numeric Telegram id of the new admin, or their @username if they bought before."},
	action.MenuBroadcast:   {session.StateAwaitBroadcast, "📣 Send the broadcast message for all confirmed buyers."},
}

// deletions maps every Del* callback to the config key it clears and the
// section re-rendered afterwards.
var deletions = map[action.Kind]struct {
	key  string
	back action.Kind
}{
	action.DelWelcomePhoto: {tenant.KeyWelcomePhoto, action.MenuWelcome},
	action.DelPremiumPhoto: {tenant.KeyPremiumPhoto, action.MenuPremium},
	action.DelUPIQR:        {tenant.KeyUPIQR, action.MenuUPI},
	action.DelCryptoQR:     {tenant.KeyCryptoQR, action.MenuCrypto},
}

func (e *Engine) handleAdminAction(ctx context.Context, key session.Key, ev transport.Event) {
	act := ev.Action
	ref := transport.MessageRef{ChatID: ev.ChatID, MessageID: ev.MessageID}

	if p, ok := prompts[act.Kind]; ok {
		e.sessions.SetState(key, p.state)
		e.be.EditOrSendText(ctx, ref, ev.ChatID, p.text, backKeyboard())
		e.be.AnswerCallback(ctx, ev.CallbackID, "")
		return
	}

	if d, ok := deletions[act.Kind]; ok {
		if err := e.cfg.Set(ctx, e.tenant.ID, d.key, ""); err != nil {
			logger.Error(ctx, "engine", "admin.delete",
				slog.String("status", logger.Status(err)),
				slog.String("key", d.key),
				slog.String("err", err.Error()),
			)
			e.be.AnswerCallback(ctx, ev.CallbackID, "Failed, try again")
			return
		}
		e.be.AnswerCallback(ctx, ev.CallbackID, "Removed")
		e.renderSection(ctx, key, ref, ev.ChatID, d.back)
		return
	}

	switch act.Kind {
	case action.Approve, action.Reject:
		e.handleDecision(ctx, ev)
	case action.RemoveAdmin:
		e.handleRemoveAdmin(ctx, key, ev, ref)
	case action.MenuClose:
		e.sessions.Reset(key)
		e.be.Delete(ctx, ref)
		e.be.AnswerCallback(ctx, ev.CallbackID, "Closed")
	default:
		e.sessions.SetState(key, session.StateAdminMenu)
		e.renderSection(ctx, key, ref, ev.ChatID, act.Kind)
		e.be.AnswerCallback(ctx, ev.CallbackID, "")
	}
}

func (e *Engine) renderSection(ctx context.Context, key session.Key, ref transport.MessageRef, chatID int64, kind action.Kind) {
	var (
		text string
		kb   *transport.Keyboard
	)
	switch kind {
	case action.MenuMain:
		e.sessions.SetState(key, session.StateAdminMenu)
		text, kb = adminMenuText, adminMenuKeyboard()
	case action.MenuWelcome:
		text = e.sectionText(ctx, "📝 Welcome",
			setting{"Text", tenant.KeyWelcomeText, defaultWelcomeText},
			setting{"Photo", tenant.KeyWelcomePhoto, ""},
		)
		kb = welcomeSectionKeyboard()
	case action.MenuPremium:
		text = e.sectionText(ctx, "💎 Premium",
			setting{"Text", tenant.KeyPremiumText, defaultPremiumText},
			setting{"Photo", tenant.KeyPremiumPhoto, ""},
		)
		kb = premiumSectionKeyboard()
	case action.MenuUPI:
		text = e.sectionText(ctx, "📲 UPI",
			setting{"Message", tenant.KeyUPIMessage, defaultUPIMessage},
			setting{"QR", tenant.KeyUPIQR, ""},
		)
		kb = upiSectionKeyboard()
	case action.MenuCrypto:
		text = e.sectionText(ctx, "🪙 Crypto",
			setting{"Message", tenant.KeyCryptoMessage, defaultCryptoMessage},
			setting{"QR", tenant.KeyCryptoQR, ""},
		)
		kb = cryptoSectionKeyboard()
	case action.MenuButtons:
		text = e.sectionText(ctx, "🔗 Buttons",
			setting{"Demo", tenant.KeyDemoURL, ""},
			setting{"How-to", tenant.KeyHowToURL, ""},
		)
		kb = buttonsSectionKeyboard()
	case action.MenuConfirmedMsg:
		text = e.sectionText(ctx, "💬 Confirmation message",
			setting{"Message", tenant.KeyConfirmedMsg, ""},
		)
		kb = confirmedMsgSectionKeyboard()
	case action.MenuPayments:
		text, kb = e.paymentsSection(ctx, chatID)
	case action.MenuUsers:
		text, kb = e.usersSection(ctx)
	case action.MenuStats:
		text, kb = e.statsSection(ctx)
	case action.MenuAdmins:
		text, kb = e.adminsSection(ctx)
	default:
		text, kb = adminMenuText, adminMenuKeyboard()
	}
	e.be.EditOrSendText(ctx, ref, chatID, text, kb)
}

type setting struct {
	label string
	key   string
	def   string
}

func (e *Engine) sectionText(ctx context.Context, title string, settings ...setting) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, s := range settings {
		value := e.cfg.Get(ctx, e.tenant.ID, s.key, s.def)
		if value == "" {
			b.WriteString(fmt.Sprintf("\n%s: <i>not set</i>", s.label))
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s: %s", s.label, logger.SanitizeLimit(value, 200)))
	}
	return b.String()
}

func (e *Engine) paymentsSection(ctx context.Context, chatID int64) (string, *transport.Keyboard) {
	pending, err := e.payments.Pending(ctx, 10)
	if err != nil {
		logger.Error(ctx, "engine", "admin.payments",
			slog.String("err", err.Error()),
		)
		return "⚠️ Could not load pending payments.", backKeyboard()
	}
	if len(pending) == 0 {
		return "🧾 No pending payments.", backKeyboard()
	}
	var b strings.Builder
	b.WriteString("🧾 <b>Pending payments</b>\n")
	for _, req := range pending {
		user := req.Username
		if user == "" {
			user = itoa(req.UserID)
		}
		b.WriteString(fmt.Sprintf("\n#%d · %s · %s", req.ID, user, req.Type))
		e.sendPendingCard(ctx, chatID, req)
	}
	return b.String(), paymentsSectionKeyboard(pending)
}

// sendPendingCard reposts the screenshot with approve/reject buttons so the
// admin can moderate from the panel without digging up the original fan-out.
func (e *Engine) sendPendingCard(ctx context.Context, chatID int64, req payment.Request) {
	if req.ScreenshotRef == "" {
		return
	}
	kb := (&transport.Keyboard{}).Row(
		transport.DoArg("✅ Approve", action.Approve, req.ID),
		transport.DoArg("❌ Reject", action.Reject, req.ID),
	)
	user := req.Username
	if user == "" {
		user = itoa(req.UserID)
	}
	caption := fmt.Sprintf("🧾 #%d · %s · %s", req.ID, user, req.Type)
	e.be.SendPhoto(ctx, chatID, req.ScreenshotRef, caption, kb)
}

func (e *Engine) usersSection(ctx context.Context) (string, *transport.Keyboard) {
	users, err := e.payments.ConfirmedUsers(ctx, 50)
	if err != nil {
		logger.Error(ctx, "engine", "admin.users",
			slog.String("err", err.Error()),
		)
		return "⚠️ Could not load users.", backKeyboard()
	}
	if len(users) == 0 {
		return "👥 No confirmed buyers yet.", backKeyboard()
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👥 <b>Confirmed buyers</b> (%d)\n", len(users)))
	for _, req := range users {
		user := req.Username
		if user == "" {
			user = "id " + itoa(req.UserID)
		}
		b.WriteString(fmt.Sprintf("\n%s · %s · %s", user, req.Type, req.UpdatedAt.Format("2006-01-02")))
	}
	return b.String(), backKeyboard()
}

func (e *Engine) statsSection(ctx context.Context) (string, *transport.Keyboard) {
	st, err := e.payments.Stats(ctx)
	if err != nil {
		logger.Error(ctx, "engine", "admin.stats",
			slog.String("err", err.Error()),
		)
		return "⚠️ Could not load stats.", backKeyboard()
	}
	text := fmt.Sprintf(
		"📊 <b>Stats</b>\n\n⏳ Pending: %d\n✅ Confirmed: %d\n❌ Rejected: %d\n∑ Total: %d",
		st.Pending, st.Confirmed, st.Rejected, st.Total(),
	)
	return text, backKeyboard()
}

func (e *Engine) adminsSection(ctx context.Context) (string, *transport.Keyboard) {
	extras := e.tenant.ExtraAdmins(ctx, e.cfg)
	var b strings.Builder
	b.WriteString("🔐 <b>Admins</b>\n")
	b.WriteString(fmt.Sprintf("\n👑 %d (primary)", e.tenant.AdminID))
	for _, id := range extras {
		b.WriteString(fmt.Sprintf("\n• %d", id))
	}
	return b.String(), adminsSectionKeyboard(extras)
}

func (e *Engine) handleDecision(ctx context.Context, ev transport.Event) {
	approve := ev.Action.Kind == action.Approve
	card := &transport.MessageRef{ChatID: ev.ChatID, MessageID: ev.MessageID}
	_, err := e.payments.Decide(ctx, ev.Action.Arg, approve, ev.UserID, card)
	switch {
	case err == nil:
		if approve {
			e.be.AnswerCallback(ctx, ev.CallbackID, "Confirmed ✅")
		} else {
			e.be.AnswerCallback(ctx, ev.CallbackID, "Rejected ❌")
		}
	case errors.Is(err, payment.ErrAlreadyDecided):
		e.be.AnswerCallback(ctx, ev.CallbackID, "Already handled")
	case errors.Is(err, payment.ErrNotFound):
		e.be.AnswerCallback(ctx, ev.CallbackID, "Payment not found")
	default:
		logger.Error(ctx, "engine", "admin.decide",
			slog.Int64("payment_id", ev.Action.Arg),
			slog.String("err", err.Error()),
		)
		e.be.AnswerCallback(ctx, ev.CallbackID, "Failed, try again")
	}
}

func (e *Engine) handleRemoveAdmin(ctx context.Context, key session.Key, ev transport.Event, ref transport.MessageRef) {
	target := ev.Action.Arg
	if target == e.tenant.AdminID {
		e.be.AnswerCallback(ctx, ev.CallbackID, "Cannot remove the primary admin")
		return
	}
	extras := e.tenant.ExtraAdmins(ctx, e.cfg)
	kept := extras[:0]
	for _, id := range extras {
		if id != target {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(extras) {
		e.be.AnswerCallback(ctx, ev.CallbackID, "Not an admin")
		return
	}
	if err := e.cfg.Set(ctx, e.tenant.ID, tenant.KeyExtraAdmins, tenant.JoinAdminList(kept)); err != nil {
		logger.Error(ctx, "engine", "admin.remove",
			slog.Int64("actor_id", ev.UserID),
			slog.String("err", err.Error()),
		)
		e.be.AnswerCallback(ctx, ev.CallbackID, "Failed, try again")
		return
	}
	logger.Info(ctx, "engine", "admin.remove",
		slog.String("status", "ok"),
		slog.Int64("actor_id", ev.UserID),
		slog.String("admins", tenant.JoinAdminList(kept)),
	)
	e.be.AnswerCallback(ctx, ev.CallbackID, "Removed")
	e.renderSection(ctx, key, ref, ev.ChatID, action.MenuAdmins)
}

func (e *Engine) handleAdminInput(ctx context.Context, key session.Key, ev transport.Event, state session.State) {
	switch state {
	case session.StateAwaitWelcomeText:
		e.saveTextSetting(ctx, key, ev, tenant.KeyWelcomeText, "✅ Welcome text updated.")
	case session.StateAwaitPremiumText:
		e.saveTextSetting(ctx, key, ev, tenant.KeyPremiumText, "✅ Premium text updated.")
	case session.StateAwaitUPIMsg:
		e.saveTextSetting(ctx, key, ev, tenant.KeyUPIMessage, "✅ UPI message updated.")
	case session.StateAwaitCryptoMsg:
		e.saveTextSetting(ctx, key, ev, tenant.KeyCryptoMessage, "✅ Crypto message updated.")
	case session.StateAwaitConfirmedMsg:
		e.saveTextSetting(ctx, key, ev, tenant.KeyConfirmedMsg, "✅ Confirmation message updated.")
	case session.StateAwaitDemoURL:
		e.saveURLSetting(ctx, key, ev, tenant.KeyDemoURL, "✅ Demo link updated.")
	case session.StateAwaitHowToURL:
		e.saveURLSetting(ctx, key, ev, tenant.KeyHowToURL, "✅ How-to link updated.")
	case session.StateAwaitWelcomePhoto:
		e.savePhotoSetting(ctx, key, ev, tenant.KeyWelcomePhoto, "✅ Welcome photo updated.")
	case session.StateAwaitPremiumPhoto:
		e.savePhotoSetting(ctx, key, ev, tenant.KeyPremiumPhoto, "✅ Premium photo updated.")
	case session.StateAwaitUPIQR:
		e.savePhotoSetting(ctx, key, ev, tenant.KeyUPIQR, "✅ UPI QR updated.")
	case session.StateAwaitCryptoQR:
		e.savePhotoSetting(ctx, key, ev, tenant.KeyCryptoQR, "✅ Crypto QR updated.")
	case session.StateAwaitBroadcast:
		e.runBroadcast(ctx, key, ev)
	case session.StateAwaitAddAdmin:
		e.addAdmin(ctx, key, ev)
	}
}

func (e *Engine) saveTextSetting(ctx context.Context, key session.Key, ev transport.Event, cfgKey, confirm string) {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != transport.EventText || text == "" {
		e.be.SendText(ctx, ev.ChatID, "❌ Please send plain text.", backKeyboard())
		return
	}
	e.saveSetting(ctx, key, ev.ChatID, cfgKey, text, confirm)
}

func (e *Engine) saveURLSetting(ctx context.Context, key session.Key, ev transport.Event, cfgKey, confirm string) {
	if ev.Kind != transport.EventText {
		e.be.SendText(ctx, ev.ChatID, "❌ Please send a link as text.", backKeyboard())
		return
	}
	e.saveSetting(ctx, key, ev.ChatID, cfgKey, NormalizeURL(ev.Text), confirm)
}

func (e *Engine) savePhotoSetting(ctx context.Context, key session.Key, ev transport.Event, cfgKey, confirm string) {
	var value string
	switch {
	case ev.Kind == transport.EventMedia &&
		(ev.Media == transport.MediaPhoto || ev.Media == transport.MediaImageDocument):
		value = ev.MediaRef
	case ev.Kind == transport.EventText && strings.TrimSpace(ev.Text) != "":
		value = NormalizeURL(ev.Text)
	default:
		e.be.SendText(ctx, ev.ChatID, "❌ Please send a photo, or a link to one.", backKeyboard())
		return
	}
	e.saveSetting(ctx, key, ev.ChatID, cfgKey, value, confirm)
}

func (e *Engine) saveSetting(ctx context.Context, key session.Key, chatID int64, cfgKey, value, confirm string) {
	if err := e.cfg.Set(ctx, e.tenant.ID, cfgKey, value); err != nil {
		logger.Error(ctx, "engine", "admin.save",
			slog.String("key", cfgKey),
			slog.String("err", err.Error()),
		)
		e.be.SendText(ctx, chatID, "⚠️ Could not save, please try again.", backKeyboard())
		return
	}
	logger.Info(ctx, "engine", "admin.save",
		slog.String("status", "ok"),
		slog.String("key", cfgKey),
	)
	e.sessions.SetState(key, session.StateAdminMenu)
	e.be.SendText(ctx, chatID, confirm+"\n\n"+adminMenuText, adminMenuKeyboard())
}

func (e *Engine) runBroadcast(ctx context.Context, key session.Key, ev transport.Event) {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != transport.EventText || text == "" {
		e.be.SendText(ctx, ev.ChatID, "❌ Please send the broadcast as plain text.", backKeyboard())
		return
	}
	e.sessions.SetState(key, session.StateAdminMenu)
	sent, failed, err := e.payments.Broadcast(ctx, text)
	if err != nil {
		logger.Error(ctx, "engine", "admin.broadcast",
			slog.String("err", err.Error()),
		)
		e.be.SendText(ctx, ev.ChatID, "⚠️ Broadcast failed, please try again.", adminMenuKeyboard())
		return
	}
	summary := fmt.Sprintf("📣 Broadcast done.\n\nSent: %d\nFailed: %d", sent, failed)
	e.be.SendText(ctx, ev.ChatID, summary+"\n\n"+adminMenuText, adminMenuKeyboard())
}

func (e *Engine) addAdmin(ctx context.Context, key session.Key, ev transport.Event) {
	raw := strings.TrimSpace(ev.Text)
	if ev.Kind != transport.EventText || raw == "" {
		e.be.SendText(ctx, ev.ChatID, "❌ Send a numeric Telegram user id, or a @username.", backKeyboard())
		return
	}

	var id int64
	if strings.HasPrefix(raw, "@") {
		resolved, err := e.payments.UserIDByUsername(ctx, strings.TrimPrefix(raw, "@"))
		if err != nil {
			if errors.Is(err, payment.ErrNotFound) {
				e.be.SendText(ctx, ev.ChatID, "❌ Unknown username. They must have submitted a payment at least once, or use the numeric id.", backKeyboard())
				return
			}
			logger.Error(ctx, "engine", "admin.add",
				slog.Int64("actor_id", ev.UserID),
				slog.String("err", err.Error()),
			)
			e.be.SendText(ctx, ev.ChatID, "⚠️ Could not resolve the username, please try again.", backKeyboard())
			return
		}
		id = resolved
	} else {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			e.be.SendText(ctx, ev.ChatID, "❌ Send a numeric Telegram user id, or a @username.", backKeyboard())
			return
		}
		id = parsed
	}
	if id == e.tenant.AdminID {
		e.be.SendText(ctx, ev.ChatID, "That user is already the primary admin.", backKeyboard())
		return
	}
	extras := e.tenant.ExtraAdmins(ctx, e.cfg)
	for _, existing := range extras {
		if existing == id {
			e.be.SendText(ctx, ev.ChatID, "That user is already an admin.", backKeyboard())
			return
		}
	}
	extras = append(extras, id)
	if err := e.cfg.Set(ctx, e.tenant.ID, tenant.KeyExtraAdmins, tenant.JoinAdminList(extras)); err != nil {
		logger.Error(ctx, "engine", "admin.add",
			slog.Int64("actor_id", ev.UserID),
			slog.String("err", err.Error()),
		)
		e.be.SendText(ctx, ev.ChatID, "⚠️ Could not save, please try again.", backKeyboard())
		return
	}
	logger.Info(ctx, "engine", "admin.add",
		slog.String("status", "ok"),
		slog.Int64("actor_id", ev.UserID),
		slog.String("admins", tenant.JoinAdminList(extras)),
	)
	e.sessions.SetState(key, session.StateAdminMenu)
	e.be.SendText(ctx, ev.ChatID, fmt.Sprintf("✅ Added admin %d.\n\n%s", id, adminMenuText), adminMenuKeyboard())
}
