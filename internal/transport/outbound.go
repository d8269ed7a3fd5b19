package transport

import (
	"context"

	"github.com/m3rciful/premiumbot/core/logger"
	"log/slog"
)

// Outbound sends messages on behalf of one tenant. Implementations must be
// safe for concurrent use.
type Outbound interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, kb *Keyboard) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, kb *Keyboard) error
	EditCaption(ctx context.Context, ref MessageRef, caption string, kb *Keyboard) error
	Delete(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// BestEffort wraps an Outbound for cosmetic traffic: failures are logged at
// WARN and swallowed so they never abort the flow that triggered them.
type BestEffort struct {
	Out Outbound
}

func (b BestEffort) SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) MessageRef {
	ref, err := b.Out.SendText(ctx, chatID, text, kb)
	if err != nil {
		warnSend(ctx, "send_text", chatID, err)
	}
	return ref
}

func (b BestEffort) SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, kb *Keyboard) MessageRef {
	ref, err := b.Out.SendPhoto(ctx, chatID, fileRef, caption, kb)
	if err != nil {
		warnSend(ctx, "send_photo", chatID, err)
	}
	return ref
}

// EditOrSendText edits ref in place when possible and falls back to sending
// a fresh message. The returned ref points at whichever message now shows
// the text.
func (b BestEffort) EditOrSendText(ctx context.Context, ref MessageRef, chatID int64, text string, kb *Keyboard) MessageRef {
	if !ref.IsZero() {
		if err := b.Out.EditText(ctx, ref, text, kb); err == nil {
			return ref
		}
	}
	return b.SendText(ctx, chatID, text, kb)
}

func (b BestEffort) EditCaption(ctx context.Context, ref MessageRef, caption string, kb *Keyboard) {
	if err := b.Out.EditCaption(ctx, ref, caption, kb); err != nil {
		warnSend(ctx, "edit_caption", ref.ChatID, err)
	}
}

func (b BestEffort) Delete(ctx context.Context, ref MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := b.Out.Delete(ctx, ref); err != nil {
		warnSend(ctx, "delete", ref.ChatID, err)
	}
}

func (b BestEffort) AnswerCallback(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := b.Out.AnswerCallback(ctx, callbackID, text); err != nil {
		warnSend(ctx, "answer_callback", 0, err)
	}
}

func warnSend(ctx context.Context, op string, chatID int64, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("err", err.Error()),
	}
	if chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	logger.Warn(ctx, "tg", "tg."+op, attrs...)
}
