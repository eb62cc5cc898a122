package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

const seenTTL = 10 * time.Minute

// MessageHandler processes one complete inbound message
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *domain.InboundMessage) int
}

// UpdateSource yields Telegram updates until ctx is done
type UpdateSource interface {
	Updates(ctx context.Context) (<-chan telego.Update, error)
}

// TelegramServer turns Telegram updates into inbound messages
type TelegramServer struct {
	source  UpdateSource
	handler MessageHandler
	groups  *groupBuffer
	log     *zap.Logger

	ctx context.Context
	wg  sync.WaitGroup

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time
}

// NewTelegramServer creates a server; parts of a media group arriving within window are merged
func NewTelegramServer(source UpdateSource, handler MessageHandler, window time.Duration, log *zap.Logger) *TelegramServer {
	s := &TelegramServer{
		source:   source,
		handler:  handler,
		log:      log.Named("server"),
		ctx:      context.Background(),
		seenMsgs: make(map[string]time.Time),
	}
	s.groups = newGroupBuffer(window, s.dispatch)
	return s
}

// Run consumes updates until ctx is done, then drains in-flight messages
func (s *TelegramServer) Run(ctx context.Context) error {
	updates, err := s.source.Updates(ctx)
	if err != nil {
		return err
	}
	// buffered groups are flushed from timers and need a context of their own
	s.ctx = ctx

	cleanup := time.NewTicker(seenTTL)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			s.groups.FlushAll()
			s.wg.Wait()
			return nil
		case <-cleanup.C:
			s.cleanupSeen(time.Now())
		case update, ok := <-updates:
			if !ok {
				s.groups.FlushAll()
				s.wg.Wait()
				return nil
			}
			s.handleUpdate(update)
		}
	}
}

func (s *TelegramServer) handleUpdate(update telego.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		return
	}

	key := fmt.Sprintf("%d:%d", msg.Chat.ID, msg.MessageID)
	if !s.markSeen(key, time.Now()) {
		s.log.Debug("duplicate update ignored", zap.String("key", key))
		return
	}

	in := ConvertMessage(msg)
	if in.IsMediaGroup() {
		s.groups.Add(in)
		return
	}
	s.dispatch(in)
}

func (s *TelegramServer) dispatch(msg *domain.InboundMessage) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// delivery of an accepted message finishes even during shutdown
		ctx := context.WithoutCancel(s.ctx)
		n := s.handler.HandleMessage(ctx, msg)
		s.log.Debug("message handled",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int("message_id", msg.MessageID),
			zap.Int("forwarded", n))
	}()
}

// markSeen records key and reports whether it was new
func (s *TelegramServer) markSeen(key string, now time.Time) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	if _, ok := s.seenMsgs[key]; ok {
		return false
	}
	s.seenMsgs[key] = now
	return true
}

func (s *TelegramServer) cleanupSeen(now time.Time) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	for k, ts := range s.seenMsgs {
		if now.Sub(ts) > seenTTL {
			delete(s.seenMsgs, k)
		}
	}
}

// urlButtons keeps the URL buttons of an inline keyboard. Callback buttons
// only work against the source bot and are dropped.
func urlButtons(markup *telego.InlineKeyboardMarkup) [][]domain.Button {
	if markup == nil {
		return nil
	}
	var rows [][]domain.Button
	for _, row := range markup.InlineKeyboard {
		var buttons []domain.Button
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, domain.Button{Text: b.Text, URL: b.URL})
			}
		}
		if len(buttons) > 0 {
			rows = append(rows, buttons)
		}
	}
	return rows
}

// ConvertMessage maps a Telegram message onto an inbound message
func ConvertMessage(msg *telego.Message) *domain.InboundMessage {
	in := &domain.InboundMessage{
		ChatID:       msg.Chat.ID,
		ChatUsername: msg.Chat.Username,
		MessageID:    msg.MessageID,
		MediaGroupID: msg.MediaGroupID,
		Text:         msg.Text,
		Date:         time.Unix(int64(msg.Date), 0),
	}
	if in.Text == "" {
		in.Text = msg.Caption
	}

	switch {
	case msg.From != nil:
		in.SenderName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		in.SenderUsername = msg.From.Username
	case msg.SenderChat != nil:
		in.SenderName = msg.SenderChat.Title
		in.SenderUsername = msg.SenderChat.Username
	}
	if msg.AuthorSignature != "" {
		in.SenderName = msg.AuthorSignature
	}
	in.Buttons = urlButtons(msg.ReplyMarkup)

	att := domain.Attachment{MessageID: msg.MessageID}
	switch {
	case len(msg.Photo) > 0:
		// sizes are ordered, the last one is the original
		p := msg.Photo[len(msg.Photo)-1]
		att.Kind, att.FileID, att.Size = domain.MediaPhoto, p.FileID, int64(p.FileSize)
	case msg.Video != nil:
		v := msg.Video
		att.Kind, att.FileID, att.FileName, att.MimeType, att.Size = domain.MediaVideo, v.FileID, v.FileName, v.MimeType, int64(v.FileSize)
	case msg.Audio != nil:
		a := msg.Audio
		att.Kind, att.FileID, att.FileName, att.MimeType, att.Size = domain.MediaAudio, a.FileID, a.FileName, a.MimeType, int64(a.FileSize)
	case msg.Voice != nil:
		v := msg.Voice
		att.Kind, att.FileID, att.MimeType, att.Size = domain.MediaVoice, v.FileID, v.MimeType, int64(v.FileSize)
	case msg.Document != nil:
		d := msg.Document
		att.Kind, att.FileID, att.FileName, att.MimeType, att.Size = domain.MediaDocument, d.FileID, d.FileName, d.MimeType, int64(d.FileSize)
	default:
		return in
	}
	in.Attachments = []domain.Attachment{att}
	return in
}
