package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const cmdPost = "post"

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, arg, ok := ParseCallback(cb.Data)
	if !ok {
		return
	}

	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
		if !b.cfg.IsUserAllowed(userID) {
			return
		}
	}
	b.log.Info("callback", "action", action, "arg", arg, "chat_id", chatID, "user_id", userID)

	switch action {
	case cmdPost:
		b.handlePost(ctx, chatID, arg)
	}
}
