package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Client sends forwarded messages into Feishu chats.
// Feishu has no albums, so files are delivered one message each.
type Client struct {
	larkCli *lark.Client
	log     *zap.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, log *zap.Logger) *Client {
	return &Client{
		larkCli: lark.NewClient(appID, appSecret),
		log:     log.Named("feishu"),
	}
}

func (c *Client) create(ctx context.Context, chatID, msgType string, content any) error {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send %s message failed: %w", msgType, err)
	}
	if !resp.Success() {
		return fmt.Errorf("send %s message error: %s", msgType, resp.Msg)
	}
	return nil
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	if err := c.create(ctx, chatID, larkim.MsgTypeText, map[string]string{"text": text}); err != nil {
		return err
	}
	c.log.Debug("text sent", zap.String("chat_id", chatID))
	return nil
}

// SendFile uploads a local file and posts it, images as image messages
func (c *Client) SendFile(ctx context.Context, chatID, path string) error {
	if isImage(path) {
		key, err := c.uploadImage(ctx, path)
		if err != nil {
			return err
		}
		return c.create(ctx, chatID, larkim.MsgTypeImage, map[string]string{"image_key": key})
	}

	key, err := c.uploadFile(ctx, path)
	if err != nil {
		return err
	}
	return c.create(ctx, chatID, larkim.MsgTypeFile, map[string]string{"file_key": key})
}

// SendFiles posts every file and then the caption as its own text message
func (c *Client) SendFiles(ctx context.Context, chatID string, paths []string, caption string) error {
	for _, p := range paths {
		if err := c.SendFile(ctx, chatID, p); err != nil {
			return err
		}
	}
	if strings.TrimSpace(caption) == "" {
		return nil
	}
	return c.SendText(ctx, chatID, caption)
}

func isImage(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt.String(), "image/")
}

func (c *Client) uploadImage(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(larkim.ImageTypeMessage).
			Image(f).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload image error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return "", fmt.Errorf("upload image: empty image key")
	}
	return *resp.Data.ImageKey, nil
}

func (c *Client) uploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	req := larkim.NewCreateFileReqBuilder().
		Body(larkim.NewCreateFileReqBodyBuilder().
			FileType(larkim.FileTypeStream).
			FileName(filepath.Base(path)).
			File(f).
			Build()).
		Build()

	resp, err := c.larkCli.Im.File.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload file failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload file error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.FileKey == nil {
		return "", fmt.Errorf("upload file: empty file key")
	}
	return *resp.Data.FileKey, nil
}
