package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"memer/internal/config"
	"memer/internal/delivery"
	"memer/internal/model"
	"memer/internal/postcache"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deliverer picks the next item for a chat.
type Deliverer interface {
	Deliver(ctx context.Context, id model.ChannelID, group string) (delivery.Result, error)
	Sources() config.Sources
}

// Registry records chat registrations.
type Registry interface {
	Upsert(ctx context.Context, c model.Channel) error
	Get(id model.ChannelID) (model.Channel, bool)
}

// Refresher runs a refresh cycle on demand.
type Refresher interface {
	Refresh(ctx context.Context) postcache.Report
}

// Bot is the Telegram bot that turns chat commands into deliveries.
type Bot struct {
	api       telegramAPI
	cfg       *config.Config
	deliverer Deliverer
	registry  Registry
	refresher Refresher
	log       *slog.Logger
	now       func() time.Time

	// background tracks work started by handlers that outlives the update.
	background sync.WaitGroup
	refreshing atomic.Bool
}

// New creates a Bot with the given Telegram token and collaborators.
func New(token string, cfg *config.Config, d Deliverer, reg Registry, r Refresher, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("logged in", "username", api.Self.UserName, "id", api.Self.ID)

	return &Bot{
		api:       api,
		cfg:       cfg,
		deliverer: d,
		registry:  reg,
		refresher: r,
		log:       log,
		now:       time.Now,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.background.Wait()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From != nil && !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// sendItem posts an item with link preview and an "another one" button.
func (b *Bot) sendItem(chatID int64, item model.Item, group string) {
	msg := tgbotapi.NewMessage(chatID, FormatItem(item))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Another one", cmdPost+":"+group),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send item", "chat_id", chatID, "permalink", item.Permalink, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "ping":
		b.reply(chatID, "Pong!")
	case "register":
		b.handleRegister(ctx, msg.Chat, args)
	case cmdPost:
		b.handlePost(ctx, chatID, args)
	case "groups":
		b.handleGroups(chatID)
	case "refresh":
		var userID int64
		if msg.From != nil {
			userID = msg.From.ID
		}
		b.handleRefresh(ctx, chatID, userID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
