package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"memer/internal/delivery"
	"memer/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Memer!

I post the hottest memes from a list of subreddits.

Quick start:
1. /register — register this chat
2. /post — get a post
3. /groups — see the available groups

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Posts:
/post — random post from any group
/post <group> — random post from one group
/groups — list groups and their subreddits

Chat settings:
/register — register this chat (safe for work)
/register nsfw — register and allow NSFW posts
/register sfw — disallow NSFW posts

Admin:
/refresh — refresh all subreddits now (ADMIN_USERS only)
/ping — check the bot is alive`)
}

func (b *Bot) handleRegister(ctx context.Context, chat *tgbotapi.Chat, args string) {
	sensitive, err := ParseRegisterArgs(args)
	if err != nil {
		b.reply(chat.ID, err.Error())
		return
	}

	c := model.Channel{
		ID:        model.ChannelID(chat.ID),
		Name:      chatName(chat),
		Sensitive: sensitive,
		LastSeen:  b.now().UTC(),
	}
	if err := b.registry.Upsert(ctx, c); err != nil {
		b.log.Error("register channel", "chat_id", chat.ID, "error", err)
		b.reply(chat.ID, fmt.Sprintf("Failed to register: %v", err))
		return
	}

	mode := "NSFW posts are off"
	if sensitive {
		mode = "NSFW posts are on"
	}
	b.reply(chat.ID, fmt.Sprintf("Registered %q. %s.", c.Name, mode))
}

func (b *Bot) handlePost(ctx context.Context, chatID int64, args string) {
	group, err := ParsePostArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	res, err := b.deliverer.Deliver(ctx, model.ChannelID(chatID), group)
	switch {
	case errors.Is(err, delivery.ErrRateLimited):
		b.reply(chatID, FormatRetry(res.RetryAfter))
	case errors.Is(err, delivery.ErrUnknownGroup):
		b.reply(chatID, fmt.Sprintf("Unknown group %q. Use /groups to see the list.", group))
	case errors.Is(err, delivery.ErrNoItems):
		b.reply(chatID, "Nothing new to post right now. Try again later.")
	case err != nil:
		b.log.Error("deliver", "chat_id", chatID, "group", group, "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
	default:
		b.sendItem(chatID, res.Item, group)
	}
}

func (b *Bot) handleGroups(chatID int64) {
	b.reply(chatID, FormatGroups(b.deliverer.Sources()))
}

// handleRefresh starts a refresh in the background so the update loop keeps
// serving other chats. Only one manual refresh runs at a time.
func (b *Bot) handleRefresh(ctx context.Context, chatID, userID int64) {
	if !b.cfg.IsAdmin(userID) {
		b.reply(chatID, "This command is for admins only.")
		return
	}
	if !b.refreshing.CompareAndSwap(false, true) {
		b.reply(chatID, "A refresh is already running.")
		return
	}

	b.log.Info("manual refresh", "chat_id", chatID, "user_id", userID)
	b.reply(chatID, "Refreshing...")
	b.background.Add(1)
	go func() {
		defer b.background.Done()
		defer b.refreshing.Store(false)
		b.reply(chatID, FormatReport(b.refresher.Refresh(ctx)))
	}()
}

func chatName(chat *tgbotapi.Chat) string {
	switch {
	case chat.Title != "":
		return chat.Title
	case chat.UserName != "":
		return chat.UserName
	default:
		return chat.FirstName
	}
}
