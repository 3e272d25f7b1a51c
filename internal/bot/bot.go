// Package bot exposes operational commands over Telegram: an admin can
// trigger a restore, run a backup, or check database status from chat.
package bot

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"moodops/internal/ops"
)

// Sender is the slice of the Telegram client the handlers use. Keeping
// it narrow lets tests substitute a recording stub for *tgbot.Bot.
type Sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

var _ Sender = (*tgbot.Bot)(nil)

// Bot wires operational command handlers to a Telegram bot.
type Bot struct {
	handlers *Handlers
	client   *tgbot.Bot
	logger   ops.Logger
}

// New creates a Telegram bot with the operational command handlers
// registered. adminUserID is the single Telegram user allowed to issue
// commands; updates from anyone else are ignored.
func New(token string, adminUserID int64, service *ops.Service, logger ops.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if adminUserID == 0 {
		return nil, fmt.Errorf("admin user id is required")
	}

	handlers := NewHandlers(adminUserID, service, logger)

	client, err := tgbot.New(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}

	client.RegisterHandler(tgbot.HandlerTypeMessageText, "/restore_backup", tgbot.MatchTypePrefix,
		func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			handlers.RestoreBackup(ctx, b, update)
		})
	client.RegisterHandler(tgbot.HandlerTypeMessageText, "/backup", tgbot.MatchTypeExact,
		func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			handlers.Backup(ctx, b, update)
		})
	client.RegisterHandler(tgbot.HandlerTypeMessageText, "/status", tgbot.MatchTypeExact,
		func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			handlers.Status(ctx, b, update)
		})

	return &Bot{handlers: handlers, client: client, logger: logger}, nil
}

// Start runs the bot's long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("bot started")
	b.client.Start(ctx)
	b.logger.Info("bot stopped")
}
