package data

import (
	"context"
	"strings"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
	"github.com/devricklin/chat-forwarder/internal/biz/repo"
	"github.com/devricklin/chat-forwarder/internal/infra/feishu"
	"github.com/devricklin/chat-forwarder/internal/infra/telegram"
)

// feishuRepo delivers into Feishu chats.
// Media still comes from Telegram, so downloads go through the bot.
type feishuRepo struct {
	client *feishu.Client
	source *telegram.Client
}

// NewFeishuRepo creates a Feishu transport
func NewFeishuRepo(client *feishu.Client, source *telegram.Client) repo.TransportRepo {
	return &feishuRepo{client: client, source: source}
}

// withButtons appends button links as plain lines, Feishu text has no inline keyboards
func withButtons(text string, rows [][]domain.Button) string {
	var lines []string
	for _, row := range rows {
		for _, b := range row {
			lines = append(lines, b.Text+": "+b.URL)
		}
	}
	if len(lines) == 0 {
		return text
	}
	if text == "" {
		return strings.Join(lines, "\n")
	}
	return text + "\n\n" + strings.Join(lines, "\n")
}

// SendText sends a text message
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string, opts repo.SendOptions) error {
	return r.client.SendText(ctx, chatID, withButtons(text, opts.Buttons))
}

// SendSingleMedia uploads the file and sends the caption after it
func (r *feishuRepo) SendSingleMedia(ctx context.Context, chatID, path, caption string, opts repo.SendOptions) error {
	return r.client.SendFiles(ctx, chatID, []string{path}, withButtons(caption, opts.Buttons))
}

// SendMediaGroup uploads every file and sends the caption once
func (r *feishuRepo) SendMediaGroup(ctx context.Context, chatID string, paths []string, caption string, opts repo.SendOptions) error {
	return r.client.SendFiles(ctx, chatID, paths, withButtons(caption, opts.Buttons))
}

// DownloadAttachment downloads from the Telegram source
func (r *feishuRepo) DownloadAttachment(ctx context.Context, att domain.Attachment, destDir string) (string, error) {
	return downloadAttachment(ctx, r.source, att, destDir)
}
