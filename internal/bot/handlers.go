package bot

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"moodops/internal/ops"
)

// Handlers implements the operational Telegram commands. Each handler
// takes a Sender so tests can observe replies without a live client.
type Handlers struct {
	adminUserID int64
	service     *ops.Service
	logger      ops.Logger
}

func NewHandlers(adminUserID int64, service *ops.Service, logger ops.Logger) *Handlers {
	return &Handlers{adminUserID: adminUserID, service: service, logger: logger}
}

// authorized reports whether the update comes from the admin. Commands
// from anyone else are silently ignored so the bot does not reveal that
// operational commands exist.
func (h *Handlers) authorized(update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if update.Message.From.ID != h.adminUserID {
		h.logger.Warn("ignoring command from non-admin", "user_id", update.Message.From.ID)
		return false
	}
	return true
}

// RestoreBackup handles /restore_backup [SNAPSHOT_ID]. Without an
// argument it restores the most recent local snapshot.
func (h *Handlers) RestoreBackup(ctx context.Context, sender Sender, update *models.Update) {
	if !h.authorized(update) {
		return
	}
	chatID := update.Message.Chat.ID

	snapshotID := ""
	fields := strings.Fields(update.Message.Text)
	if len(fields) > 1 {
		snapshotID = fields[1]
	}
	if snapshotID == "" {
		latest, err := h.service.LatestSnapshotID()
		if err != nil {
			h.reply(ctx, sender, chatID, fmt.Sprintf("Restore failed: %v", err))
			return
		}
		snapshotID = latest
	}

	h.logger.Info("restore requested via bot", "snapshot_id", snapshotID)
	result, err := h.service.Restore(snapshotID)
	if err != nil {
		h.reply(ctx, sender, chatID, fmt.Sprintf("Restore of %s failed: %v", snapshotID, err))
		return
	}

	h.reply(ctx, sender, chatID, fmt.Sprintf(
		"Restored snapshot %s: %d users created (%d existing), %d logs created (%d duplicates skipped), %d settings created.",
		result.SnapshotID,
		result.UsersCreated, result.UsersSkipped,
		result.LogsCreated, result.LogsSkipped,
		result.SettingsCreated+result.DefaultsCreated))
}

// Backup handles /backup: runs an immediate snapshot.
func (h *Handlers) Backup(ctx context.Context, sender Sender, update *models.Update) {
	if !h.authorized(update) {
		return
	}
	chatID := update.Message.Chat.ID

	h.logger.Info("backup requested via bot")
	result, err := h.service.Backup()
	if err != nil {
		h.reply(ctx, sender, chatID, fmt.Sprintf("Backup failed: %v", err))
		return
	}

	text := fmt.Sprintf("Backup %s complete: %d users, %d logs, %d settings.",
		result.SnapshotID, result.Users, result.Logs, result.Settings)
	if result.Uploaded {
		text += " Uploaded to vault."
	}
	h.reply(ctx, sender, chatID, text)
}

// Status handles /status: reports database row counts and the latest
// snapshot.
func (h *Handlers) Status(ctx context.Context, sender Sender, update *models.Update) {
	if !h.authorized(update) {
		return
	}
	chatID := update.Message.Chat.ID

	status, err := h.service.Status()
	if err != nil {
		h.reply(ctx, sender, chatID, fmt.Sprintf("Status check failed: %v", err))
		return
	}

	text := fmt.Sprintf("Database: %d users, %d logs, %d settings.",
		status.Users, status.Logs, status.Settings)
	if latest, err := h.service.LatestSnapshotID(); err == nil {
		text += fmt.Sprintf(" Latest snapshot: %s.", latest)
	} else {
		text += " No snapshots yet."
	}
	h.reply(ctx, sender, chatID, text)
}

func (h *Handlers) reply(ctx context.Context, sender Sender, chatID int64, text string) {
	_, err := sender.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		h.logger.Error("sending reply", "chat_id", chatID, "error", err)
	}
}
