package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/infra/telegram"
)

// telegramRepo delivers into Telegram chats through the bot
type telegramRepo struct {
	client *telegram.Client
}

// NewTelegramRepo creates a Telegram transport
func NewTelegramRepo(client *telegram.Client) repo.TransportRepo {
	return &telegramRepo{client: client}
}

func parseMode(m domain.MessageMode) string {
	switch m {
	case domain.MessageModeMarkdown:
		return telego.ModeMarkdown
	case domain.MessageModeHTML:
		return telego.ModeHTML
	}
	return ""
}

func keyboard(rows [][]domain.Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &telego.InlineKeyboardMarkup{}
	for _, row := range rows {
		var buttons []telego.InlineKeyboardButton
		for _, b := range row {
			buttons = append(buttons, telego.InlineKeyboardButton{Text: b.Text, URL: b.URL})
		}
		if len(buttons) > 0 {
			markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
		}
	}
	if len(markup.InlineKeyboard) == 0 {
		return nil
	}
	return markup
}

// SendText sends a text message
func (r *telegramRepo) SendText(ctx context.Context, chatID, text string, opts repo.SendOptions) error {
	return r.client.SendText(ctx, chatID, text, parseMode(opts.Mode), opts.Preview, keyboard(opts.Buttons))
}

// SendSingleMedia sends one staged file
func (r *telegramRepo) SendSingleMedia(ctx context.Context, chatID, path, caption string, opts repo.SendOptions) error {
	return r.client.SendFile(ctx, chatID, path, caption, parseMode(opts.Mode), keyboard(opts.Buttons))
}

// SendMediaGroup sends staged files as one album.
// Albums cannot carry inline keyboards.
func (r *telegramRepo) SendMediaGroup(ctx context.Context, chatID string, paths []string, caption string, opts repo.SendOptions) error {
	return r.client.SendGroup(ctx, chatID, paths, caption, parseMode(opts.Mode))
}

// DownloadAttachment downloads an attachment under a unique name
func (r *telegramRepo) DownloadAttachment(ctx context.Context, att domain.Attachment, destDir string) (string, error) {
	return downloadAttachment(ctx, r.client, att, destDir)
}

// downloadAttachment stages a Telegram file in destDir.
// Names are random so concurrent downloads of the same file never collide.
func downloadAttachment(ctx context.Context, client *telegram.Client, att domain.Attachment, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	name := uuid.NewString()
	if ext := att.Extension(); ext != "" {
		name += "." + ext
	}
	path := filepath.Join(destDir, name)

	if err := client.Download(ctx, att.FileID, path); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", att.FileID, err)
	}
	return path, nil
}
