package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/picker"
	"github.com/basel-ax/watermark-builder/internal/service"
)

const (
	sessionPrefix    = "tg:"
	watermarkCaption = "watermark"
	maxPhotoSize     = 20 << 20
)

// API is the part of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot drives one watermark session per Telegram chat
type Bot struct {
	api        API
	manager    *service.SessionManager
	exporter   service.Exporter
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a bot and subscribes it to outcome changes of chat sessions
func New(api API, manager *service.SessionManager, exporter service.Exporter, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		api:        api,
		manager:    manager,
		exporter:   exporter,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	manager.Subscribe(b.onOutcome)
	return b
}

// SessionID is the id of the session that belongs to chatID
func SessionID(chatID int64) string {
	return sessionPrefix + strconv.FormatInt(chatID, 10)
}

func chatID(sessionID string) (int64, bool) {
	rest, ok := strings.CutPrefix(sessionID, sessionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}

// Run long-polls for updates until ctx is cancelled
func Run(ctx context.Context, api *tgbotapi.BotAPI, b *Bot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("username", api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.logger.Info("Telegram bot stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes one update
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	cid := msg.Chat.ID
	s, created := b.manager.GetOrCreate(ctx, SessionID(cid))
	if created {
		b.logger.Debug("New chat session", zap.Int64("chat_id", cid))
	}

	switch {
	case msg.IsCommand():
		b.send(cid, runCommand(ctx, commandEnv{manager: b.manager, exporter: b.exporter}, s, msg.Command(), msg.CommandArguments()))
	case len(msg.Photo) > 0:
		b.acceptPhoto(ctx, s, msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		b.acceptImage(ctx, s, cid, msg.Document.FileID, msg.Caption)
	case msg.Text != "":
		b.send(cid, usage)
	}
}

func (b *Bot) acceptPhoto(ctx context.Context, s *service.Session, msg *tgbotapi.Message) {
	// the last size is the largest
	ph := msg.Photo[len(msg.Photo)-1]
	b.acceptImage(ctx, s, msg.Chat.ID, ph.FileID, msg.Caption)
}

func (b *Bot) acceptImage(ctx context.Context, s *service.Session, cid int64, fileID, caption string) {
	target := picker.TargetPicture
	if strings.EqualFold(strings.TrimSpace(caption), watermarkCaption) {
		target = picker.TargetWatermark
	}

	completion := picker.NewCompletion()
	go func() {
		payload, err := b.download(ctx, fileID)
		if err != nil {
			b.logger.Warn("Failed to fetch photo", zap.Int64("chat_id", cid), zap.Error(err))
			completion.Dismiss()
			return
		}
		completion.Resolve(payload)
	}()

	if !s.Pick(ctx, target, completion) {
		b.send(cid, "Could not read that image, please try again.")
		return
	}
	if target == picker.TargetWatermark {
		b.send(cid, "Watermark image set. Use /mode custom and /go.")
		return
	}
	b.send(cid, "Picture set. Use /text to describe the watermark, then /go.")
}

func (b *Bot) download(ctx context.Context, fileID string) (domain.ImagePayload, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("failed to resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ImagePayload{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return picker.Import(io.LimitReader(resp.Body, maxPhotoSize))
}

// onOutcome delivers terminal outcomes of chat sessions to their chat
func (b *Bot) onOutcome(s *service.Session, seq uint64, outcome domain.Outcome) {
	cid, ok := chatID(s.ID())
	if !ok {
		return
	}
	switch outcome.State {
	case domain.StateSuccess:
		name := "watermarked.png"
		if p, ok := s.Picture(); ok && p.Name != "" {
			name = p.Name
		}
		doc := tgbotapi.NewDocument(cid, tgbotapi.FileBytes{Name: name, Bytes: outcome.Data})
		if _, err := b.api.Send(doc); err != nil {
			b.logger.Warn("Failed to send result", zap.Int64("chat_id", cid), zap.Uint64("seq", seq), zap.Error(err))
		}
	case domain.StateFailure:
		b.send(cid, outcome.Message)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
