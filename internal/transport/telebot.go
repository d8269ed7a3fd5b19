package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/action"
	"github.com/m3rciful/premiumbot/internal/tenant"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Options configures one tenant bot.
type Options struct {
	LongPollTimeoutSeconds int
	RateLimitInterval      time.Duration
	RateLimitExclude       map[string]struct{}
}

// Bot adapts one telebot instance to the Event/Outbound model. One Bot
// serves exactly one tenant and lives for one polling run.
type Bot struct {
	Tenant tenant.Tenant

	bot   *tele.Bot
	fatal chan error
}

// NewBot builds the telebot instance and installs the middleware chain.
// The constructor performs a getMe call, so network failures surface here.
func NewBot(t tenant.Tenant, opts Options) (*Bot, error) {
	b := &Bot{Tenant: t, fatal: make(chan error, 1)}

	timeoutSec := opts.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   t.Token,
		Poller:  &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second},
		Client:  BuildHTTPClient(),
		OnError: b.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("bot init: %w", err)
	}
	b.bot = bot

	bot.Use(RecoverMiddleware(t.ID))
	if opts.RateLimitInterval > 0 {
		bot.Use(RateLimitMiddleware(RateLimitOptions{
			TenantID: t.ID,
			Interval: opts.RateLimitInterval,
			Exclude:  opts.RateLimitExclude,
			OnLimited: func(c tele.Context) error {
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: "Slow down"})
				}
				return nil
			},
		}))
	}

	logger.TG.Info("polling mode",
		slog.String("event", "mode"),
		slog.String("tenant", t.ID),
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", timeoutSec),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	return b, nil
}

// onError is telebot's error sink. A nil context means the poller itself
// failed; that is handed to the supervisor so the run restarts with backoff.
func (b *Bot) onError(err error, c tele.Context) {
	if c != nil {
		logger.TG.Error("handler failed",
			slog.String("event", "tg.handler"),
			slog.String("tenant", b.Tenant.ID),
			slog.String("err", err.Error()),
		)
		return
	}
	select {
	case b.fatal <- err:
	default:
	}
}

// Fatal delivers the first poller-level failure of this run.
func (b *Bot) Fatal() <-chan error { return b.fatal }

// Start blocks polling updates until Stop is called.
func (b *Bot) Start() { b.bot.Start() }

// Stop terminates the poller.
func (b *Bot) Stop() { b.bot.Stop() }

// DropPendingUpdates removes any webhook registration and discards updates
// that accumulated while the tenant was down. Failure is not fatal; polling
// still works, stale updates just get replayed.
func (b *Bot) DropPendingUpdates(ctx context.Context) error {
	return deleteWebhook(ctx, b.Tenant.Token, true)
}

// Listen registers all update routes. Every route normalizes the update into
// an Event and hands it to handle; handle must not block.
func (b *Bot) Listen(handle func(Event)) {
	command := func(name string) tele.HandlerFunc {
		return func(c tele.Context) error {
			ev := b.baseEvent(c)
			ev.Kind = EventCommand
			ev.Command = name
			handle(ev)
			return nil
		}
	}
	b.bot.Handle("/start", command("start"))
	b.bot.Handle("/manage", command("manage"))
	b.bot.Handle("/cancel", command("cancel"))

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ev := b.baseEvent(c)
		ev.Kind = EventText
		ev.Text = c.Text()
		handle(ev)
		return nil
	})

	b.bot.Handle(tele.OnPhoto, func(c tele.Context) error {
		ev := b.baseEvent(c)
		ev.Kind = EventMedia
		ev.Media = MediaPhoto
		if msg := c.Message(); msg != nil && msg.Photo != nil {
			ev.MediaRef = msg.Photo.FileID
			ev.Text = msg.Caption
		}
		handle(ev)
		return nil
	})

	b.bot.Handle(tele.OnDocument, func(c tele.Context) error {
		ev := b.baseEvent(c)
		ev.Kind = EventMedia
		ev.Media = MediaOther
		if msg := c.Message(); msg != nil && msg.Document != nil {
			if strings.HasPrefix(msg.Document.MIME, "image/") {
				ev.Media = MediaImageDocument
			}
			ev.MediaRef = msg.Document.FileID
			ev.Text = msg.Caption
		}
		handle(ev)
		return nil
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		unique, payload := splitCallbackData(cb.Data)
		act, err := action.Decode(unique, payload)
		if err != nil {
			logger.TG.Warn("callback rejected",
				slog.String("event", "tg.callback"),
				slog.String("tenant", b.Tenant.ID),
				slog.String("cb_key", logger.SanitizeLimit(unique, 64)),
				slog.String("err", err.Error()),
			)
			return c.Respond(&tele.CallbackResponse{Text: "Unknown action"})
		}
		ev := b.baseEvent(c)
		ev.Kind = EventAction
		ev.Action = act
		ev.CallbackID = cb.ID
		if cb.Message != nil {
			ev.ChatID = cb.Message.Chat.ID
			ev.MessageID = cb.Message.ID
		}
		handle(ev)
		return nil
	})
}

func (b *Bot) baseEvent(c tele.Context) Event {
	ev := Event{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		ev.UserID = user.ID
		ev.Username = user.Username
		if ev.Username == "" {
			ev.Username = strings.TrimSpace(user.FirstName + " " + user.LastName)
		}
	}
	if msg := c.Message(); msg != nil {
		ev.MessageID = msg.ID
	}
	return ev
}

// splitCallbackData undoes telebot's "\f<unique>|<payload>" encoding.
func splitCallbackData(data string) (unique, payload string) {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}

// Outbound implementation.

func (b *Bot) SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) (MessageRef, error) {
	msg, err := b.bot.Send(tele.ChatID(chatID), text, sendOpts(kb))
	if err != nil {
		return MessageRef{}, fmt.Errorf("send text: %w", err)
	}
	return refOf(msg), nil
}

func (b *Bot) SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, kb *Keyboard) (MessageRef, error) {
	photo := &tele.Photo{File: fileFor(fileRef), Caption: caption}
	msg, err := b.bot.Send(tele.ChatID(chatID), photo, sendOpts(kb))
	if err != nil {
		return MessageRef{}, fmt.Errorf("send photo: %w", err)
	}
	return refOf(msg), nil
}

func (b *Bot) EditText(ctx context.Context, ref MessageRef, text string, kb *Keyboard) error {
	if _, err := b.bot.Edit(storedMsg(ref), text, sendOpts(kb)); err != nil {
		return fmt.Errorf("edit text: %w", err)
	}
	return nil
}

func (b *Bot) EditCaption(ctx context.Context, ref MessageRef, caption string, kb *Keyboard) error {
	if _, err := b.bot.EditCaption(storedMsg(ref), caption, sendOpts(kb)); err != nil {
		return fmt.Errorf("edit caption: %w", err)
	}
	return nil
}

func (b *Bot) Delete(ctx context.Context, ref MessageRef) error {
	if err := b.bot.Delete(storedMsg(ref)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	err := b.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	if err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func sendOpts(kb *Keyboard) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if kb != nil {
		opts.ReplyMarkup = markupFor(kb)
	}
	return opts
}

func markupFor(kb *Keyboard) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		btns := make([]tele.Btn, 0, len(row))
		for _, btn := range row {
			switch {
			case btn.URL != "":
				btns = append(btns, m.URL(btn.Label, btn.URL))
			case btn.Do.Payload() != "":
				btns = append(btns, m.Data(btn.Label, string(btn.Do.Kind), btn.Do.Payload()))
			default:
				btns = append(btns, m.Data(btn.Label, string(btn.Do.Kind)))
			}
		}
		rows = append(rows, m.Row(btns...))
	}
	m.Inline(rows...)
	return m
}

func fileFor(ref string) tele.File {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tele.FromURL(ref)
	}
	return tele.File{FileID: ref}
}

func storedMsg(ref MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

func refOf(msg *tele.Message) MessageRef {
	if msg == nil {
		return MessageRef{}
	}
	return MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

func deleteWebhook(ctx context.Context, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
