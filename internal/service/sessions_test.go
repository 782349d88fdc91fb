package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/service"
)

type memoryPresets struct {
	mu      sync.Mutex
	presets map[string]domain.Preset
}

func (m *memoryPresets) GetPreset(_ context.Context, owner string) (*domain.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets[owner]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memoryPresets) SavePreset(_ context.Context, owner string, p domain.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets[owner] = p
	return nil
}

type memoryHistory struct {
	mu      sync.Mutex
	records map[uint64]domain.SubmissionRecord
	updated chan uint64
}

func (m *memoryHistory) RecordSubmission(_ context.Context, rec domain.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Seq] = rec
	return nil
}

func (m *memoryHistory) UpdateStatus(_ context.Context, _ string, seq uint64, state domain.RequestState, message string) error {
	m.mu.Lock()
	rec := m.records[seq]
	rec.State = state
	rec.Message = message
	m.records[seq] = rec
	m.mu.Unlock()
	m.updated <- seq
	return nil
}

func (m *memoryHistory) LatestSeq(_ context.Context, _ string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest uint64
	for seq := range m.records {
		latest = max(latest, seq)
	}
	return latest, nil
}

// blockingPresets holds GetPreset until release is closed
type blockingPresets struct {
	memoryPresets
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPresets) GetPreset(ctx context.Context, owner string) (*domain.Preset, error) {
	close(b.entered)
	<-b.release
	return b.memoryPresets.GetPreset(ctx, owner)
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := service.NewSessionManager(newFakeService(), nil)
	if _, err := m.Get("nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerCreateAndGet(t *testing.T) {
	m := service.NewSessionManager(newFakeService(), nil)
	s := m.Create(context.Background())
	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}

	again, created := m.GetOrCreate(context.Background(), s.ID())
	if created || again != s {
		t.Error("GetOrCreate made a second session for the same id")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d", m.Len())
	}

	if !m.Remove(s.ID()) || m.Remove(s.ID()) {
		t.Error("Remove did not report removal exactly once")
	}
}

func TestManagerPresetRoundTrip(t *testing.T) {
	store := &memoryPresets{presets: map[string]domain.Preset{}}
	m := service.NewSessionManager(newFakeService(), nil, service.WithPresetStore(store))

	s, _ := m.GetOrCreate(context.Background(), "chat-1")
	s.SetMode(domain.ModeCustom)
	s.SetWatermark(domain.ImagePayload{Data: []byte("mark")})
	if err := s.UpdateTextParams(func(p *domain.TextWatermarkParams) { p.Text = "saved" }); err != nil {
		t.Fatal(err)
	}
	if err := m.SavePreset(context.Background(), "chat-1"); err != nil {
		t.Fatalf("SavePreset: %v", err)
	}
	if !store.presets["chat-1"].Custom.Watermark.IsEmpty() {
		t.Error("preset kept the watermark image")
	}

	m.Remove("chat-1")
	restored, created := m.GetOrCreate(context.Background(), "chat-1")
	if !created {
		t.Fatal("session was not recreated")
	}
	if restored.Mode() != domain.ModeCustom || restored.TextParams().Text != "saved" {
		t.Errorf("restored = %+v", restored.Snapshot())
	}
}

func TestManagerSavePresetWithoutStore(t *testing.T) {
	m := service.NewSessionManager(newFakeService(), nil)
	s := m.Create(context.Background())
	if err := m.SavePreset(context.Background(), s.ID()); err == nil {
		t.Error("expected error without preset storage")
	}
}

func TestManagerPruneIdleKeepsPending(t *testing.T) {
	svc := newFakeService()
	m := service.NewSessionManager(svc, nil)

	idle := m.Create(context.Background())
	busy := m.Create(context.Background())
	busy.SetPicture(subject)
	sub := busy.Submit(context.Background())
	c := svc.next(t)

	if n := m.PruneIdle(-time.Minute); n != 1 {
		t.Errorf("pruned %d sessions, want 1", n)
	}
	if _, err := m.Get(idle.ID()); err == nil {
		t.Error("idle session survived pruning")
	}
	if _, err := m.Get(busy.ID()); err != nil {
		t.Error("pending session was pruned")
	}

	c.reply <- reply{data: []byte("ok")}
	waitDone(t, sub)
}

func TestManagerRecordsHistoryAndNotifies(t *testing.T) {
	svc := newFakeService()
	history := &memoryHistory{records: map[uint64]domain.SubmissionRecord{}, updated: make(chan uint64, 1)}
	m := service.NewSessionManager(svc, nil, service.WithSubmissionRecorder(history))

	notified := make(chan domain.Outcome, 4)
	m.Subscribe(func(_ *service.Session, _ uint64, o domain.Outcome) { notified <- o })

	s := m.Create(context.Background())
	s.SetPicture(subject)
	sub := s.Submit(context.Background())
	svc.next(t).reply <- reply{err: &domain.TransportError{Err: errors.New("offline")}}
	waitDone(t, sub)

	select {
	case seq := <-history.updated:
		if seq != sub.Seq() {
			t.Errorf("updated seq = %d", seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("history was not updated")
	}

	history.mu.Lock()
	rec := history.records[sub.Seq()]
	history.mu.Unlock()
	if rec.SessionID != s.ID() || rec.State != domain.StateFailure || rec.Message != domain.GenericMessage {
		t.Errorf("record = %+v", rec)
	}

	if o := <-notified; o.State != domain.StatePending {
		t.Errorf("first notification = %v", o.State)
	}
	if o := <-notified; o.State != domain.StateFailure {
		t.Errorf("second notification = %v", o.State)
	}
}

func submitAndFinish(t *testing.T, svc *fakeService, s *service.Session) uint64 {
	t.Helper()
	s.SetPicture(subject)
	sub := s.Submit(context.Background())
	svc.next(t).reply <- reply{data: []byte("ok")}
	waitDone(t, sub)
	return sub.Seq()
}

func TestManagerRecreatedSessionContinuesSeq(t *testing.T) {
	svc := newFakeService()
	m := service.NewSessionManager(svc, nil)
	ctx := context.Background()

	s, _ := m.GetOrCreate(ctx, "tg:42")
	first := submitAndFinish(t, svc, s)

	if n := m.PruneIdle(-time.Minute); n != 1 {
		t.Fatalf("pruned %d sessions, want 1", n)
	}
	s, created := m.GetOrCreate(ctx, "tg:42")
	if !created {
		t.Fatal("pruned session was not recreated")
	}
	second := submitAndFinish(t, svc, s)
	if second <= first {
		t.Errorf("seq after prune = %d, want more than %d", second, first)
	}

	m.Remove("tg:42")
	s, _ = m.GetOrCreate(ctx, "tg:42")
	if third := submitAndFinish(t, svc, s); third <= second {
		t.Errorf("seq after remove = %d, want more than %d", third, second)
	}
}

func TestManagerSeqContinuesFromHistory(t *testing.T) {
	svc := newFakeService()
	history := &memoryHistory{
		records: map[uint64]domain.SubmissionRecord{5: {SessionID: "tg:7", Seq: 5}},
		updated: make(chan uint64, 4),
	}
	m := service.NewSessionManager(svc, nil, service.WithSubmissionRecorder(history))

	s, _ := m.GetOrCreate(context.Background(), "tg:7")
	if s.Seq() != 5 {
		t.Errorf("Seq = %d, want 5", s.Seq())
	}
	if seq := submitAndFinish(t, svc, s); seq != 6 {
		t.Errorf("first submission seq = %d, want 6", seq)
	}
}

func TestManagerPublishesSessionAfterPreset(t *testing.T) {
	presets := &blockingPresets{
		memoryPresets: memoryPresets{presets: map[string]domain.Preset{
			"tg:1": {Mode: domain.ModeCustom, Text: domain.DefaultTextParams(), Custom: domain.DefaultCustomParams()},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := service.NewSessionManager(newFakeService(), nil, service.WithPresetStore(presets))

	created := make(chan *service.Session, 1)
	go func() {
		s, _ := m.GetOrCreate(context.Background(), "tg:1")
		created <- s
	}()

	<-presets.entered
	if _, err := m.Get("tg:1"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("session visible before its preset was applied: %v", err)
	}
	close(presets.release)

	s := <-created
	if s.Mode() != domain.ModeCustom {
		t.Errorf("mode = %v, want custom", s.Mode())
	}
	if got, err := m.Get("tg:1"); err != nil || got != s {
		t.Errorf("Get = %v, %v", got, err)
	}
}
