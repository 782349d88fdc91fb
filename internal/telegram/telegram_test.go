package telegram

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/service"
)

type instantService struct{}

func (instantService) ProcessText(context.Context, domain.ImagePayload, domain.TextWatermarkParams) ([]byte, error) {
	return []byte("rendered"), nil
}

func (instantService) ProcessCustom(context.Context, domain.ImagePayload, domain.CustomWatermarkParams) ([]byte, error) {
	return nil, &domain.ServiceError{StatusCode: 400, Codes: []domain.ErrorCode{domain.CodeNoWatermarkDataProvided}}
}

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	sentC   chan tgbotapi.Chattable
	fileURL string
}

func newFakeAPI(fileURL string) *fakeAPI {
	return &fakeAPI{sentC: make(chan tgbotapi.Chattable, 16), fileURL: fileURL}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, c)
	f.mu.Unlock()
	f.sentC <- c
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeAPI) next(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	select {
	case c := <-f.sentC:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("nothing was sent")
		return nil
	}
}

func textOf(t *testing.T, c tgbotapi.Chattable) string {
	t.Helper()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want a message", c)
	}
	return msg.Text
}

func command(chat int64, text string) tgbotapi.Update {
	name := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chat},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func newTestSession() (*service.SessionManager, *service.Session) {
	m := service.NewSessionManager(instantService{}, nil)
	s, _ := m.GetOrCreate(context.Background(), SessionID(1))
	return m, s
}

func run(m *service.SessionManager, s *service.Session, name, args string) string {
	return runCommand(context.Background(), commandEnv{manager: m}, s, name, args)
}

func TestTextCommands(t *testing.T) {
	m, s := newTestSession()

	if got := run(m, s, "text", "© Alice"); !strings.Contains(got, "© Alice") {
		t.Errorf("text reply = %q", got)
	}
	if got := run(m, s, "opacity", "46"); got != "Opacity: 46%" {
		t.Errorf("opacity reply = %q", got)
	}
	run(m, s, "density", "high")
	run(m, s, "color", "#FFAA00")
	run(m, s, "font", "times new roman")
	run(m, s, "size", "48")
	run(m, s, "weight", "700")
	run(m, s, "italic", "")
	run(m, s, "underline", "")
	run(m, s, "strike", "")
	run(m, s, "rotation", "90")

	p := s.TextParams()
	switch {
	case p.Text != "© Alice":
		t.Errorf("text = %q", p.Text)
	case *p.Opacity != 0.46:
		t.Errorf("opacity = %v", *p.Opacity)
	case *p.DensityLevel != domain.DensityHigh:
		t.Errorf("density = %v", *p.DensityLevel)
	case *p.Color != "ffaa00":
		t.Errorf("color = %q", *p.Color)
	case *p.FontFamily != "Times New Roman":
		t.Errorf("font = %q", *p.FontFamily)
	case *p.FontSize != 48:
		t.Errorf("size = %d", *p.FontSize)
	case *p.FontWeight != domain.FontWeight700:
		t.Errorf("weight = %v", *p.FontWeight)
	case !*p.FontItalic:
		t.Error("italic not toggled on")
	case p.FontDecorations.String() != "ut":
		t.Errorf("decorations = %q", p.FontDecorations.String())
	case *p.RotationAngle != 90:
		t.Errorf("rotation = %d", *p.RotationAngle)
	}

	run(m, s, "underline", "")
	if got := s.TextParams().FontDecorations.String(); got != "t" {
		t.Errorf("decorations after second toggle = %q", got)
	}
}

func TestCommandsFollowMode(t *testing.T) {
	m, s := newTestSession()
	run(m, s, "mode", "custom")
	run(m, s, "opacity", "20")
	run(m, s, "density", "1")

	c := s.CustomParams()
	if *c.Opacity != 0.2 || *c.DensityLevel != domain.DensityMin {
		t.Errorf("custom = %+v", c)
	}
	if *s.TextParams().Opacity != 1 {
		t.Error("text opacity changed in custom mode")
	}
}

func TestCommandRejections(t *testing.T) {
	m, s := newTestSession()
	before := s.TextParams()

	for _, c := range []struct{ name, args string }{
		{"density", "9"},
		{"density", "dense"},
		{"opacity", "150"},
		{"color", "blue"},
		{"size", "13"},
		{"weight", "450"},
		{"font", "Comic Sans"},
		{"mode", "sepia"},
		{"text", ""},
	} {
		if got := run(m, s, c.name, c.args); !strings.HasPrefix(got, "Usage: /"+c.name) {
			t.Errorf("/%s %s reply = %q", c.name, c.args, got)
		}
	}
	if got := run(m, s, "teleport", ""); !strings.HasPrefix(got, "Unknown command") {
		t.Errorf("unknown reply = %q", got)
	}

	after := s.TextParams()
	if *after.DensityLevel != *before.DensityLevel || *after.FontSize != *before.FontSize {
		t.Error("rejected command changed the settings")
	}
}

func TestGoWithoutPicture(t *testing.T) {
	m, s := newTestSession()
	if got := run(m, s, "go", ""); got != "Send a photo first." {
		t.Errorf("reply = %q", got)
	}
	run(m, s, "mode", "custom")
	if got := run(m, s, "go", ""); !strings.Contains(got, "watermark") {
		t.Errorf("reply = %q", got)
	}
	if s.Outcome().State != domain.StateIdle {
		t.Error("state left idle")
	}
}

func TestSettingsDescribe(t *testing.T) {
	m, s := newTestSession()
	run(m, s, "text", "hi")
	got := run(m, s, "settings", "")
	for _, want := range []string{"Mode: text", `Text: "hi"`, "Font: Roboto 24", "Opacity: 100%", "Picture: no", "State: idle"} {
		if !strings.Contains(got, want) {
			t.Errorf("settings missing %q:\n%s", want, got)
		}
	}
}

func TestChatID(t *testing.T) {
	if id, ok := chatID(SessionID(-100123)); !ok || id != -100123 {
		t.Errorf("chatID = %d, %v", id, ok)
	}
	if _, ok := chatID("3f1c0c1e-http-session"); ok {
		t.Error("non chat session accepted")
	}
}

func photoServer(t *testing.T) *httptest.Server {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBotPhotoThenGoDeliversDocument(t *testing.T) {
	srv := photoServer(t)
	api := newFakeAPI(srv.URL)
	manager := service.NewSessionManager(instantService{}, nil)
	bot := New(api, manager, nil, nil)
	ctx := context.Background()

	bot.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 7},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}})
	if got := textOf(t, api.next(t)); !strings.HasPrefix(got, "Picture set") {
		t.Fatalf("reply = %q", got)
	}

	bot.HandleUpdate(ctx, command(7, "/text hello"))
	api.next(t)
	bot.HandleUpdate(ctx, command(7, "/go"))

	var doc *tgbotapi.DocumentConfig
	for i := 0; i < 3 && doc == nil; i++ {
		if d, ok := api.next(t).(tgbotapi.DocumentConfig); ok {
			doc = &d
		}
	}
	if doc == nil {
		t.Fatal("no document was sent")
	}
	if doc.ChatID != 7 {
		t.Errorf("document chat = %d", doc.ChatID)
	}
	file, ok := doc.File.(tgbotapi.FileBytes)
	if !ok || string(file.Bytes) != "rendered" || !strings.HasSuffix(file.Name, ".png") {
		t.Errorf("document file = %#v", doc.File)
	}
}

func TestBotWatermarkCaptionAndFailure(t *testing.T) {
	srv := photoServer(t)
	api := newFakeAPI(srv.URL)
	manager := service.NewSessionManager(instantService{}, nil)
	bot := New(api, manager, nil, nil)
	ctx := context.Background()

	for _, caption := range []string{"", "Watermark"} {
		bot.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
			Chat:    &tgbotapi.Chat{ID: 9},
			Photo:   []tgbotapi.PhotoSize{{FileID: "f"}},
			Caption: caption,
		}})
		api.next(t)
	}
	s, err := manager.Get(SessionID(9))
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasWatermark() {
		t.Fatal("captioned photo did not become the watermark")
	}

	bot.HandleUpdate(ctx, command(9, "/mode custom"))
	api.next(t)
	bot.HandleUpdate(ctx, command(9, "/go"))

	want, _ := domain.CodeNoWatermarkDataProvided.Message()
	found := false
	for i := 0; i < 3 && !found; i++ {
		if msg, ok := api.next(t).(tgbotapi.MessageConfig); ok && msg.Text == want {
			found = true
		}
	}
	if !found {
		t.Errorf("failure message %q was not sent", want)
	}
}

func TestBotUnreadableImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	}))
	defer srv.Close()
	api := newFakeAPI(srv.URL)
	bot := New(api, service.NewSessionManager(instantService{}, nil), nil, nil)

	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 3},
		Photo: []tgbotapi.PhotoSize{{FileID: "f"}},
	}})
	if got := textOf(t, api.next(t)); !strings.HasPrefix(got, "Could not read") {
		t.Errorf("reply = %q", got)
	}
}
