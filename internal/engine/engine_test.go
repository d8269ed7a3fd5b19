package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/premiumbot/internal/action"
	"github.com/m3rciful/premiumbot/internal/payment"
	"github.com/m3rciful/premiumbot/internal/session"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"github.com/m3rciful/premiumbot/internal/transport"
)

const (
	adminID = int64(1000)
	buyerID = int64(55)
)

type fakeConfig struct {
	vals map[string]string
	err  error
}

func (c *fakeConfig) Get(_ context.Context, tenantID, key, def string) string {
	if v, ok := c.vals[tenantID+"/"+key]; ok && v != "" {
		return v
	}
	return def
}

func (c *fakeConfig) Set(_ context.Context, tenantID, key, value string) error {
	if c.err != nil {
		return c.err
	}
	c.vals[tenantID+"/"+key] = value
	return nil
}

type submitCall struct {
	UserID int64
	Type   payment.Type
	Ref    string
}

type decideCall struct {
	ID      int64
	Approve bool
	Actor   int64
}

type fakePayments struct {
	submits    []submitCall
	decides    []decideCall
	decideErr  error
	submitErr  error
	broadcasts []string
	pending    []payment.Request
	users      []payment.Request
	stats      payment.Stats
	byUsername map[string]int64
}

func (f *fakePayments) Submit(_ context.Context, userID int64, _ string, typ payment.Type, ref string) (int64, error) {
	if f.submitErr != nil {
		return 0, f.submitErr
	}
	f.submits = append(f.submits, submitCall{UserID: userID, Type: typ, Ref: ref})
	return int64(len(f.submits)), nil
}

func (f *fakePayments) Decide(_ context.Context, id int64, approve bool, actor int64, _ *transport.MessageRef) (payment.Request, error) {
	if f.decideErr != nil {
		return payment.Request{}, f.decideErr
	}
	f.decides = append(f.decides, decideCall{ID: id, Approve: approve, Actor: actor})
	status := payment.StatusRejected
	if approve {
		status = payment.StatusConfirmed
	}
	return payment.Request{ID: id, Status: status}, nil
}

func (f *fakePayments) Broadcast(_ context.Context, text string) (int, int, error) {
	f.broadcasts = append(f.broadcasts, text)
	return 3, 1, nil
}

func (f *fakePayments) Pending(context.Context, int) ([]payment.Request, error) {
	return f.pending, nil
}

func (f *fakePayments) ConfirmedUsers(context.Context, int) ([]payment.Request, error) {
	return f.users, nil
}

func (f *fakePayments) Stats(context.Context) (payment.Stats, error) { return f.stats, nil }

func (f *fakePayments) UserIDByUsername(_ context.Context, username string) (int64, error) {
	if id, ok := f.byUsername[username]; ok {
		return id, nil
	}
	return 0, payment.ErrNotFound
}

type outCall struct {
	Op     string
	ChatID int64
	Text   string
	Ref    string
	KB     *transport.Keyboard
}

type fakeOut struct {
	calls   []outCall
	answers []string
	nextID  int
}

func (f *fakeOut) SendText(_ context.Context, chatID int64, text string, kb *transport.Keyboard) (transport.MessageRef, error) {
	f.nextID++
	f.calls = append(f.calls, outCall{Op: "send_text", ChatID: chatID, Text: text, KB: kb})
	return transport.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeOut) SendPhoto(_ context.Context, chatID int64, ref, caption string, kb *transport.Keyboard) (transport.MessageRef, error) {
	f.nextID++
	f.calls = append(f.calls, outCall{Op: "send_photo", ChatID: chatID, Text: caption, Ref: ref, KB: kb})
	return transport.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeOut) EditText(_ context.Context, ref transport.MessageRef, text string, kb *transport.Keyboard) error {
	f.calls = append(f.calls, outCall{Op: "edit_text", ChatID: ref.ChatID, Text: text, KB: kb})
	return nil
}

func (f *fakeOut) EditCaption(_ context.Context, ref transport.MessageRef, caption string, kb *transport.Keyboard) error {
	f.calls = append(f.calls, outCall{Op: "edit_caption", ChatID: ref.ChatID, Text: caption, KB: kb})
	return nil
}

func (f *fakeOut) Delete(_ context.Context, ref transport.MessageRef) error {
	f.calls = append(f.calls, outCall{Op: "delete", ChatID: ref.ChatID})
	return nil
}

func (f *fakeOut) AnswerCallback(_ context.Context, _ string, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeOut) last() outCall {
	if len(f.calls) == 0 {
		return outCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeOut) lastText() string {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Op == "send_text" || f.calls[i].Op == "edit_text" {
			return f.calls[i].Text
		}
	}
	return ""
}

func newTestEngine() (*Engine, *session.Store, *fakeConfig, *fakePayments, *fakeOut) {
	t := tenant.Tenant{ID: "bot1", Token: "x", DisplayName: "Bot One", AdminID: adminID}
	sessions := session.NewStore()
	cfg := &fakeConfig{vals: map[string]string{}}
	pay := &fakePayments{}
	out := &fakeOut{}
	return New(t, sessions, cfg, pay, out), sessions, cfg, pay, out
}

func cmd(chatID, userID int64, name string) transport.Event {
	return transport.Event{Kind: transport.EventCommand, Command: name, ChatID: chatID, UserID: userID, Username: "user"}
}

func cb(chatID, userID int64, kind action.Kind, arg int64) transport.Event {
	return transport.Event{
		Kind:       transport.EventAction,
		Action:     action.Action{Kind: kind, Arg: arg},
		ChatID:     chatID,
		UserID:     userID,
		MessageID:  7,
		CallbackID: "cbq",
	}
}

func text(chatID, userID int64, s string) transport.Event {
	return transport.Event{Kind: transport.EventText, Text: s, ChatID: chatID, UserID: userID, Username: "user"}
}

func photo(chatID, userID int64, ref string) transport.Event {
	return transport.Event{Kind: transport.EventMedia, Media: transport.MediaPhoto, MediaRef: ref, ChatID: chatID, UserID: userID, Username: "user"}
}

func TestPurchaseFlowEndToEnd(t *testing.T) {
	e, sessions, _, pay, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: buyerID}

	e.Handle(ctx, cmd(buyerID, buyerID, "start"))
	if got := sessions.State(key); got != session.StateWelcome {
		t.Fatalf("state after /start = %s", got)
	}
	if out.last().Text != defaultWelcomeText {
		t.Fatalf("welcome text = %q", out.last().Text)
	}

	e.Handle(ctx, cb(buyerID, buyerID, action.GetPremium, 0))
	if got := sessions.State(key); got != session.StatePremium {
		t.Fatalf("state after get_premium = %s", got)
	}

	e.Handle(ctx, cb(buyerID, buyerID, action.PayUPI, 0))
	if got := sessions.State(key); got != session.StatePayUPI {
		t.Fatalf("state after pay_upi = %s", got)
	}

	e.Handle(ctx, cb(buyerID, buyerID, action.PaidUPI, 0))
	if got := sessions.State(key); got != session.StateAwaitShotUPI {
		t.Fatalf("state after paid_upi = %s", got)
	}
	if out.lastText() != textSendScreenshot {
		t.Fatalf("prompt = %q", out.lastText())
	}

	e.Handle(ctx, photo(buyerID, buyerID, "file-999"))
	if len(pay.submits) != 1 {
		t.Fatalf("submits = %d, want 1", len(pay.submits))
	}
	got := pay.submits[0]
	if got.UserID != buyerID || got.Type != payment.TypeUPI || got.Ref != "file-999" {
		t.Fatalf("submit call = %+v", got)
	}
	if sessions.State(key) != session.StateIdle {
		t.Fatalf("state after submit = %s", sessions.State(key))
	}
	if out.lastText() != textScreenshotReceived {
		t.Fatalf("ack = %q", out.lastText())
	}
}

func TestScreenshotStateRejectsText(t *testing.T) {
	e, sessions, _, pay, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: buyerID}

	e.Handle(ctx, cb(buyerID, buyerID, action.PaidCrypto, 0))
	e.Handle(ctx, text(buyerID, buyerID, "i paid, trust me"))

	if len(pay.submits) != 0 {
		t.Fatal("text input must not submit a payment")
	}
	if sessions.State(key) != session.StateAwaitShotCrypto {
		t.Fatalf("state = %s, want still awaiting", sessions.State(key))
	}
	if out.lastText() != textScreenshotRequired {
		t.Fatalf("reprompt = %q", out.lastText())
	}
}

func TestCryptoScreenshotSubmitsCryptoType(t *testing.T) {
	e, _, _, pay, _ := newTestEngine()
	ctx := context.Background()

	e.Handle(ctx, cb(buyerID, buyerID, action.PaidCrypto, 0))
	e.Handle(ctx, photo(buyerID, buyerID, "file-c"))

	if len(pay.submits) != 1 || pay.submits[0].Type != payment.TypeCrypto {
		t.Fatalf("submits = %+v", pay.submits)
	}
}

func TestSubmitFailureEndsConversation(t *testing.T) {
	e, sessions, _, pay, out := newTestEngine()
	pay.submitErr = context.DeadlineExceeded
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: buyerID}

	e.Handle(ctx, cb(buyerID, buyerID, action.PaidUPI, 0))
	e.Handle(ctx, photo(buyerID, buyerID, "file-x"))

	if sessions.State(key) != session.StateIdle {
		t.Fatalf("state = %s, want idle after failure", sessions.State(key))
	}
	if out.lastText() != textSubmitFailed {
		t.Fatalf("failure text = %q", out.lastText())
	}
}

func TestManageDeniedForNonAdmin(t *testing.T) {
	e, sessions, _, _, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: buyerID}

	e.Handle(ctx, cmd(buyerID, buyerID, "manage"))
	if sessions.State(key) != session.StateIdle {
		t.Fatal("denied /manage must not open a session")
	}
	if out.lastText() != textNotAuthorized {
		t.Fatalf("denial = %q", out.lastText())
	}
}

func TestManageOpensMenuAndResetsMidFlow(t *testing.T) {
	e, sessions, _, _, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: adminID}

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	if sessions.State(key) != session.StateAdminMenu {
		t.Fatalf("state = %s, want admin menu", sessions.State(key))
	}
	if !strings.Contains(out.lastText(), "Admin panel") {
		t.Fatalf("menu text = %q", out.lastText())
	}

	e.Handle(ctx, cb(adminID, adminID, action.SetWelcomeText, 0))
	if sessions.State(key) != session.StateAwaitWelcomeText {
		t.Fatalf("state = %s, want awaiting text", sessions.State(key))
	}

	// Re-entry mid-await lands back on the main menu.
	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	if sessions.State(key) != session.StateAdminMenu {
		t.Fatalf("state after re-entry = %s", sessions.State(key))
	}
}

func TestAdminCallbackDeniedForNonAdmin(t *testing.T) {
	e, _, cfg, pay, out := newTestEngine()
	ctx := context.Background()

	e.Handle(ctx, cb(buyerID, buyerID, action.Approve, 5))
	if len(pay.decides) != 0 {
		t.Fatal("non-admin approve must not reach the manager")
	}
	if len(out.answers) != 1 || out.answers[0] != textNotAuthorized {
		t.Fatalf("answers = %v", out.answers)
	}
	if len(cfg.vals) != 0 {
		t.Fatal("config must be untouched")
	}
}

func TestExtraAdminMayManage(t *testing.T) {
	e, sessions, cfg, _, _ := newTestEngine()
	cfg.vals["bot1/"+tenant.KeyExtraAdmins] = "2000"
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: 2000}

	e.Handle(ctx, cmd(2000, 2000, "manage"))
	if sessions.State(key) != session.StateAdminMenu {
		t.Fatalf("extra admin denied, state = %s", sessions.State(key))
	}
}

func TestEditWelcomeTextRoundTrip(t *testing.T) {
	e, sessions, cfg, _, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: adminID}

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.SetWelcomeText, 0))
	e.Handle(ctx, text(adminID, adminID, "Hello from the new bot!"))

	if got := cfg.vals["bot1/"+tenant.KeyWelcomeText]; got != "Hello from the new bot!" {
		t.Fatalf("stored welcome text = %q", got)
	}
	if sessions.State(key) != session.StateAdminMenu {
		t.Fatalf("state = %s, want back on menu", sessions.State(key))
	}
	if !strings.Contains(out.lastText(), "Welcome text updated") {
		t.Fatalf("confirm = %q", out.lastText())
	}
}

func TestDemoURLIsNormalized(t *testing.T) {
	e, _, cfg, _, _ := newTestEngine()
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.SetDemoURL, 0))
	e.Handle(ctx, text(adminID, adminID, "@demochannel"))

	if got := cfg.vals["bot1/"+tenant.KeyDemoURL]; got != "https://t.me/demochannel" {
		t.Fatalf("stored demo url = %q", got)
	}
}

func TestPhotoSettingAcceptsUploadAndURL(t *testing.T) {
	e, _, cfg, _, _ := newTestEngine()
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.SetUPIQR, 0))
	e.Handle(ctx, photo(adminID, adminID, "qr-file-id"))
	if got := cfg.vals["bot1/"+tenant.KeyUPIQR]; got != "qr-file-id" {
		t.Fatalf("stored qr = %q", got)
	}

	e.Handle(ctx, cb(adminID, adminID, action.SetCryptoQR, 0))
	e.Handle(ctx, text(adminID, adminID, "cdn.example.com/qr.png"))
	if got := cfg.vals["bot1/"+tenant.KeyCryptoQR]; got != "https://cdn.example.com/qr.png" {
		t.Fatalf("stored crypto qr = %q", got)
	}
}

func TestRemovePhotoClearsConfig(t *testing.T) {
	e, _, cfg, _, out := newTestEngine()
	cfg.vals["bot1/"+tenant.KeyWelcomePhoto] = "old-file"
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.DelWelcomePhoto, 0))

	if got := cfg.vals["bot1/"+tenant.KeyWelcomePhoto]; got != "" {
		t.Fatalf("photo not cleared: %q", got)
	}
	found := false
	for _, a := range out.answers {
		if a == "Removed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("answers = %v, want Removed", out.answers)
	}
}

func TestApproveCallsDecide(t *testing.T) {
	e, _, _, pay, out := newTestEngine()
	ctx := context.Background()

	e.Handle(ctx, cb(adminID, adminID, action.Approve, 41))
	if len(pay.decides) != 1 {
		t.Fatalf("decides = %d, want 1", len(pay.decides))
	}
	d := pay.decides[0]
	if d.ID != 41 || !d.Approve || d.Actor != adminID {
		t.Fatalf("decide call = %+v", d)
	}
	if out.answers[len(out.answers)-1] != "Confirmed ✅" {
		t.Fatalf("answer = %q", out.answers[len(out.answers)-1])
	}
}

func TestLosingDecisionGetsAlreadyHandled(t *testing.T) {
	e, _, _, pay, out := newTestEngine()
	pay.decideErr = payment.ErrAlreadyDecided
	ctx := context.Background()

	e.Handle(ctx, cb(adminID, adminID, action.Reject, 41))
	if out.answers[len(out.answers)-1] != "Already handled" {
		t.Fatalf("answer = %q", out.answers[len(out.answers)-1])
	}
}

func TestBroadcastReportsCounts(t *testing.T) {
	e, sessions, _, pay, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: adminID}

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.MenuBroadcast, 0))
	if sessions.State(key) != session.StateAwaitBroadcast {
		t.Fatalf("state = %s", sessions.State(key))
	}
	e.Handle(ctx, text(adminID, adminID, "new content is live"))

	if len(pay.broadcasts) != 1 || pay.broadcasts[0] != "new content is live" {
		t.Fatalf("broadcasts = %v", pay.broadcasts)
	}
	if !strings.Contains(out.lastText(), "Sent: 3") || !strings.Contains(out.lastText(), "Failed: 1") {
		t.Fatalf("summary = %q", out.lastText())
	}
	if sessions.State(key) != session.StateAdminMenu {
		t.Fatalf("state after broadcast = %s", sessions.State(key))
	}
}

func TestAddAndRemoveAdmin(t *testing.T) {
	e, _, cfg, _, out := newTestEngine()
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.AddAdmin, 0))
	e.Handle(ctx, text(adminID, adminID, "not-a-number"))
	if got := cfg.vals["bot1/"+tenant.KeyExtraAdmins]; got != "" {
		t.Fatalf("extras after bad input = %q", got)
	}

	e.Handle(ctx, text(adminID, adminID, "2000"))
	if got := cfg.vals["bot1/"+tenant.KeyExtraAdmins]; got != "2000" {
		t.Fatalf("extras = %q, want 2000", got)
	}

	e.Handle(ctx, cb(adminID, adminID, action.RemoveAdmin, 2000))
	if got := cfg.vals["bot1/"+tenant.KeyExtraAdmins]; got != "" {
		t.Fatalf("extras after removal = %q", got)
	}

	e.Handle(ctx, cb(adminID, adminID, action.RemoveAdmin, adminID))
	if out.answers[len(out.answers)-1] != "Cannot remove the primary admin" {
		t.Fatalf("answer = %q", out.answers[len(out.answers)-1])
	}
}

func TestAddAdminByUsername(t *testing.T) {
	e, _, cfg, pay, out := newTestEngine()
	pay.byUsername = map[string]int64{"buyer": 2000}
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.AddAdmin, 0))

	e.Handle(ctx, text(adminID, adminID, "@stranger"))
	if got := cfg.vals["bot1/"+tenant.KeyExtraAdmins]; got != "" {
		t.Fatalf("extras after unknown username = %q", got)
	}
	if !strings.Contains(out.lastText(), "Unknown username") {
		t.Fatalf("reply = %q", out.lastText())
	}

	e.Handle(ctx, text(adminID, adminID, "@buyer"))
	if got := cfg.vals["bot1/"+tenant.KeyExtraAdmins]; got != "2000" {
		t.Fatalf("extras = %q, want 2000", got)
	}
}

func TestCancelResetsAnyState(t *testing.T) {
	e, sessions, _, _, out := newTestEngine()
	ctx := context.Background()
	key := session.Key{Tenant: "bot1", ChatID: adminID}

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.SetPremiumText, 0))
	e.Handle(ctx, cmd(adminID, adminID, "cancel"))

	if sessions.State(key) != session.StateIdle {
		t.Fatalf("state after /cancel = %s", sessions.State(key))
	}
	if out.lastText() != textCancelled {
		t.Fatalf("cancel ack = %q", out.lastText())
	}
}

func TestStatsSectionRenders(t *testing.T) {
	e, _, _, pay, out := newTestEngine()
	pay.stats = payment.Stats{Pending: 2, Confirmed: 5, Rejected: 1}
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.MenuStats, 0))

	got := out.lastText()
	for _, want := range []string{"Pending: 2", "Confirmed: 5", "Rejected: 1", "Total: 8"} {
		if !strings.Contains(got, want) {
			t.Fatalf("stats text %q missing %q", got, want)
		}
	}
}

func TestPaymentsSectionListsPending(t *testing.T) {
	e, _, _, pay, out := newTestEngine()
	pay.pending = []payment.Request{
		{ID: 11, UserID: 501, Username: "alice", Type: payment.TypeUPI, Status: payment.StatusPending, ScreenshotRef: "shot-11"},
		{ID: 12, UserID: 502, Username: "bob", Type: payment.TypeCrypto, Status: payment.StatusPending},
	}
	ctx := context.Background()

	e.Handle(ctx, cmd(adminID, adminID, "manage"))
	e.Handle(ctx, cb(adminID, adminID, action.MenuPayments, 0))

	got := out.lastText()
	if !strings.Contains(got, "#11") || !strings.Contains(got, "alice") || !strings.Contains(got, "#12") {
		t.Fatalf("payments section = %q", got)
	}
	kb := out.last().KB
	if kb == nil || len(kb.Rows) != 3 {
		t.Fatalf("keyboard rows = %+v", kb)
	}

	var card *outCall
	for i := range out.calls {
		if out.calls[i].Op == "send_photo" && out.calls[i].Ref == "shot-11" {
			card = &out.calls[i]
		}
	}
	if card == nil {
		t.Fatal("no screenshot card sent for pending payment #11")
	}
	if card.KB == nil || !strings.Contains(card.Text, "#11") {
		t.Fatalf("card = %+v", *card)
	}
}
