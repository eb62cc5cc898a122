package telegram

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// Client wraps a Telegram bot for both receiving and sending
type Client struct {
	bot  *telego.Bot
	http *http.Client
	log  *zap.Logger
}

// NewClient creates a bot client. apiURL is optional and points at a local Bot API server.
func NewClient(token, apiURL string, log *zap.Logger) (*Client, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if apiURL != "" {
		opts = append(opts, telego.WithAPIServer(apiURL))
	}

	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create bot")
	}

	return &Client{
		bot:  bot,
		http: http.DefaultClient,
		log:  log.Named("telegram"),
	}, nil
}

// Updates starts long polling for messages and channel posts.
// The channel is closed when ctx is done.
func (c *Client) Updates(ctx context.Context) (<-chan telego.Update, error) {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "channel_post"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "start long polling")
	}
	c.log.Info("long polling started")
	return updates, nil
}

// ParseChatID accepts a numeric id or an @username
func ParseChatID(s string) (telego.ChatID, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return tu.ID(id), nil
	}
	if strings.HasPrefix(s, "@") {
		return tu.Username(s), nil
	}
	return telego.ChatID{}, errors.Errorf("invalid chat id %q", s)
}

// SendText sends a text message
func (c *Client) SendText(ctx context.Context, chatID, text, parseMode string, preview bool, markup *telego.InlineKeyboardMarkup) error {
	id, err := ParseChatID(chatID)
	if err != nil {
		return err
	}

	params := &telego.SendMessageParams{
		ChatID:             id,
		Text:               text,
		ParseMode:          parseMode,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: !preview},
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// kindOf maps a local file onto the Telegram media method used to send it
func kindOf(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return telego.MediaTypeDocument
	}
	switch {
	case strings.HasPrefix(mt.String(), "image/") && !mt.Is("image/gif"):
		return telego.MediaTypePhoto
	case strings.HasPrefix(mt.String(), "video/"):
		return telego.MediaTypeVideo
	case strings.HasPrefix(mt.String(), "audio/"):
		return telego.MediaTypeAudio
	}
	return telego.MediaTypeDocument
}

// SendFile sends one local file with a caption
func (c *Client) SendFile(ctx context.Context, chatID, path, caption, parseMode string, markup *telego.InlineKeyboardMarkup) error {
	id, err := ParseChatID(chatID)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open file")
	}
	defer f.Close()

	var replyMarkup telego.ReplyMarkup
	if markup != nil {
		replyMarkup = markup
	}

	switch kindOf(path) {
	case telego.MediaTypePhoto:
		_, err = c.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID: id, Photo: tu.File(f), Caption: caption, ParseMode: parseMode, ReplyMarkup: replyMarkup,
		})
	case telego.MediaTypeVideo:
		_, err = c.bot.SendVideo(ctx, &telego.SendVideoParams{
			ChatID: id, Video: tu.File(f), Caption: caption, ParseMode: parseMode, ReplyMarkup: replyMarkup,
		})
	case telego.MediaTypeAudio:
		_, err = c.bot.SendAudio(ctx, &telego.SendAudioParams{
			ChatID: id, Audio: tu.File(f), Caption: caption, ParseMode: parseMode, ReplyMarkup: replyMarkup,
		})
	default:
		_, err = c.bot.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID: id, Document: tu.File(f), Caption: caption, ParseMode: parseMode, ReplyMarkup: replyMarkup,
		})
	}
	if err != nil {
		return errors.Wrap(err, "send file")
	}
	return nil
}

// groupKinds picks the media type of every file of an album.
// Telegram does not mix documents or audio with other types, those albums go out as documents.
func groupKinds(paths []string) []string {
	kinds := make([]string, len(paths))
	visual, other := false, map[string]bool{}
	for i, p := range paths {
		kinds[i] = kindOf(p)
		switch kinds[i] {
		case telego.MediaTypePhoto, telego.MediaTypeVideo:
			visual = true
		default:
			other[kinds[i]] = true
		}
	}
	if (visual && len(other) > 0) || len(other) > 1 {
		for i := range kinds {
			kinds[i] = telego.MediaTypeDocument
		}
	}
	return kinds
}

// SendGroup sends local files as one album, the caption is attached to the first item
func (c *Client) SendGroup(ctx context.Context, chatID string, paths []string, caption, parseMode string) error {
	id, err := ParseChatID(chatID)
	if err != nil {
		return err
	}

	kinds := groupKinds(paths)
	media := make([]telego.InputMedia, 0, len(paths))
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return errors.Wrap(err, "open file")
		}
		defer f.Close()

		itemCaption, itemMode := "", ""
		if i == 0 {
			itemCaption, itemMode = caption, parseMode
		}

		switch kinds[i] {
		case telego.MediaTypePhoto:
			m := tu.MediaPhoto(tu.File(f))
			m.Caption, m.ParseMode = itemCaption, itemMode
			media = append(media, m)
		case telego.MediaTypeVideo:
			m := tu.MediaVideo(tu.File(f))
			m.Caption, m.ParseMode = itemCaption, itemMode
			media = append(media, m)
		case telego.MediaTypeAudio:
			m := tu.MediaAudio(tu.File(f))
			m.Caption, m.ParseMode = itemCaption, itemMode
			media = append(media, m)
		default:
			m := tu.MediaDocument(tu.File(f))
			m.Caption, m.ParseMode = itemCaption, itemMode
			media = append(media, m)
		}
	}

	if _, err := c.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{ChatID: id, Media: media}); err != nil {
		return errors.Wrap(err, "send media group")
	}
	return nil
}

// Download fetches a file by id and writes it to destPath
func (c *Client) Download(ctx context.Context, fileID, destPath string) error {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return errors.Wrap(err, "get file")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bot.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "download")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download: unexpected status %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return errors.Wrap(err, "write file")
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return errors.Wrap(err, "close file")
	}
	return nil
}
