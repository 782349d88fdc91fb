package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/picker"
)

var (
	ErrNoPicture = errors.New("no picture selected")
	ErrNoResult  = errors.New("no successful result to export")
)

// Exporter stores a rendered image somewhere the user can reach it and returns its location
type Exporter interface {
	Export(ctx context.Context, name string, data []byte) (string, error)
}

// Hooks observe a session. They run outside the session lock, in no guaranteed order
// across goroutines.
type Hooks struct {
	// OnSubmit runs after a submission has been issued
	OnSubmit func(s *Session, sub *Submission, mode domain.Mode)
	// OnOutcome runs after every change of the observed outcome
	OnOutcome func(s *Session, seq uint64, outcome domain.Outcome)
}

// Session holds one user's watermark settings, pictures and the outcome of the latest
// request. At most one submission is live: a newer submission, Reset or Cancel makes
// the completion of every earlier one inert.
type Session struct {
	id      string
	service domain.WatermarkService
	logger  *zap.Logger
	hooks   Hooks

	mu           sync.Mutex
	mode         domain.Mode
	textParams   domain.TextWatermarkParams
	customParams domain.CustomWatermarkParams
	picture      *domain.ImagePayload
	outcome      domain.Outcome
	seq          uint64
	current      *Submission
	lastActive   time.Time
}

// Submission is the handle of one issued request
type Submission struct {
	seq     uint64
	session *Session
	done    chan struct{}

	// guarded by session.mu
	invalidated bool
	committed   bool
	outcome     domain.Outcome
}

// NewSession creates a session with the default parameters
func NewSession(id string, svc domain.WatermarkService, logger *zap.Logger, hooks Hooks) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:           id,
		service:      svc,
		logger:       logger.With(zap.String("session", id)),
		hooks:        hooks,
		mode:         domain.ModeText,
		textParams:   domain.DefaultTextParams(),
		customParams: domain.DefaultCustomParams(),
		outcome:      domain.Idle(),
		lastActive:   time.Now(),
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Submit issues a request with the current settings. It returns nil and changes
// nothing when no picture is set. The request runs in its own goroutine and is
// detached from ctx cancellation; ctx only carries values.
func (s *Session) Submit(ctx context.Context) *Submission {
	s.mu.Lock()
	if s.picture == nil {
		s.mu.Unlock()
		s.logger.Debug("Submit ignored, no picture set")
		return nil
	}

	picture := *s.picture
	mode := s.mode
	text := s.textParams.Clone()
	custom := s.customParams.Clone()

	s.seq++
	sub := &Submission{seq: s.seq, session: s, done: make(chan struct{})}
	s.current = sub
	s.outcome = domain.Pending()
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.logger.Info("Watermark request submitted", zap.Uint64("seq", sub.seq), zap.Stringer("mode", mode))
	if s.hooks.OnSubmit != nil {
		s.hooks.OnSubmit(s, sub, mode)
	}
	s.notify(sub.seq, domain.Pending())

	go s.run(context.WithoutCancel(ctx), sub, mode, picture, text, custom)

	return sub
}

func (s *Session) run(ctx context.Context, sub *Submission, mode domain.Mode, picture domain.ImagePayload, text domain.TextWatermarkParams, custom domain.CustomWatermarkParams) {
	defer close(sub.done)

	var (
		data []byte
		err  error
	)
	if mode == domain.ModeCustom {
		data, err = s.service.ProcessCustom(ctx, picture, custom)
	} else {
		data, err = s.service.ProcessText(ctx, picture, text)
	}

	s.complete(sub, data, err)
}

// complete commits the outcome of sub only while it is still the live submission
func (s *Session) complete(sub *Submission, data []byte, err error) {
	s.mu.Lock()
	if s.outcome.State != domain.StatePending || sub.seq != s.seq || sub.invalidated {
		current := s.seq
		s.mu.Unlock()
		s.logger.Debug("Discarding stale watermark response",
			zap.Uint64("seq", sub.seq),
			zap.Uint64("current_seq", current),
			zap.Error(err))
		return
	}

	var outcome domain.Outcome
	if err != nil {
		outcome = domain.Failure(domain.FailureMessage(err))
	} else {
		outcome = domain.Success(data)
	}
	sub.committed = true
	sub.outcome = outcome
	s.outcome = outcome
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Watermark request failed", zap.Uint64("seq", sub.seq), zap.Error(err))
	} else {
		s.logger.Info("Watermark request succeeded", zap.Uint64("seq", sub.seq), zap.Int("bytes", len(data)))
	}
	s.notify(sub.seq, outcome)
}

// Reset returns the session to idle and invalidates the live submission.
// The request itself keeps running; its response is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.current != nil {
		s.current.invalidated = true
	}
	changed := s.outcome.State != domain.StateIdle
	s.outcome = domain.Idle()
	s.lastActive = time.Now()
	seq := s.seq
	s.mu.Unlock()

	if changed {
		s.notify(seq, domain.Idle())
	}
}

// resumeSeq makes the next submission follow seq, the last number issued under this id
func (s *Session) resumeSeq(seq uint64) {
	s.mu.Lock()
	if seq > s.seq {
		s.seq = seq
	}
	s.mu.Unlock()
}

// Outcome returns the currently observed outcome
func (s *Session) Outcome() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Seq returns the sequence number of the latest submission
func (s *Session) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Mode returns the selected watermark mode
func (s *Session) Mode() domain.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode selects the watermark mode used by the next submission
func (s *Session) SetMode(m domain.Mode) {
	s.mu.Lock()
	s.mode = m
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// TextParams returns a copy of the text watermark parameters
func (s *Session) TextParams() domain.TextWatermarkParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textParams.Clone()
}

// SetTextParams replaces the text watermark parameters
func (s *Session) SetTextParams(p domain.TextWatermarkParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.textParams = p.Normalized()
	s.lastActive = time.Now()
	s.mu.Unlock()
	return nil
}

// UpdateTextParams applies fn to a copy of the text parameters and stores the result
// if it is valid
func (s *Session) UpdateTextParams(fn func(p *domain.TextWatermarkParams)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.textParams.Clone()
	fn(&p)
	if err := p.Validate(); err != nil {
		return err
	}
	s.textParams = p.Normalized()
	s.lastActive = time.Now()
	return nil
}

// CustomParams returns a copy of the image watermark parameters
func (s *Session) CustomParams() domain.CustomWatermarkParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customParams.Clone()
}

// SetCustomParams replaces the optional image watermark parameters. The watermark
// image itself is kept; use SetWatermark to change it.
func (s *Session) SetCustomParams(p domain.CustomWatermarkParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	watermark := s.customParams.Watermark
	s.customParams = p.Clone()
	s.customParams.Watermark = watermark
	s.lastActive = time.Now()
	s.mu.Unlock()
	return nil
}

// UpdateCustomParams applies fn to a copy of the image watermark parameters
func (s *Session) UpdateCustomParams(fn func(p *domain.CustomWatermarkParams)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.customParams.Clone()
	fn(&p)
	if err := p.Validate(); err != nil {
		return err
	}
	s.customParams = p
	s.lastActive = time.Now()
	return nil
}

// Picture returns the subject picture, if any
func (s *Session) Picture() (domain.ImagePayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.picture == nil {
		return domain.ImagePayload{}, false
	}
	return *s.picture, true
}

// SetPicture replaces the subject picture
func (s *Session) SetPicture(p domain.ImagePayload) {
	s.mu.Lock()
	s.picture = &p
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// SetWatermark replaces the image used in custom mode
func (s *Session) SetWatermark(p domain.ImagePayload) {
	s.mu.Lock()
	s.customParams.Watermark = p
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// HasWatermark reports whether an image watermark has been picked
func (s *Session) HasWatermark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.customParams.Watermark.IsEmpty()
}

// Pick waits for c and stores the picked image into target. A dismissed pick
// changes nothing.
func (s *Session) Pick(ctx context.Context, target picker.Target, c *picker.Completion) bool {
	p, ok := c.Wait(ctx)
	if !ok {
		return false
	}
	switch target {
	case picker.TargetWatermark:
		s.SetWatermark(p)
	default:
		s.SetPicture(p)
	}
	s.logger.Debug("Image picked", zap.Stringer("target", target), zap.String("name", p.Name))
	return true
}

// Export hands a successful result to e under the subject picture's name. Failures are
// logged and reported as ok=false; they never change the outcome.
func (s *Session) Export(ctx context.Context, e Exporter) (location string, ok bool) {
	s.mu.Lock()
	outcome := s.outcome
	name := "watermarked.png"
	if s.picture != nil && s.picture.Name != "" {
		name = s.picture.Name
	}
	s.mu.Unlock()

	if outcome.State != domain.StateSuccess {
		s.logger.Debug("Export skipped", zap.Error(ErrNoResult))
		return "", false
	}
	if e == nil {
		return "", false
	}

	location, err := e.Export(ctx, name, outcome.Data)
	if err != nil {
		s.logger.Warn("Export failed", zap.Error(err))
		return "", false
	}
	s.logger.Info("Result exported", zap.String("location", location))
	return location, true
}

// LastActive is the time of the latest change made through the session
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a consistent copy of a session's visible state
type Snapshot struct {
	ID           string
	Mode         domain.Mode
	Text         domain.TextWatermarkParams
	Custom       domain.CustomWatermarkParams
	HasPicture   bool
	HasWatermark bool
	Outcome      domain.Outcome
	Seq          uint64
}

// Snapshot returns a consistent copy of the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.id,
		Mode:         s.mode,
		Text:         s.textParams.Clone(),
		Custom:       s.customParams.Clone(),
		HasPicture:   s.picture != nil,
		HasWatermark: !s.customParams.Watermark.IsEmpty(),
		Outcome:      s.outcome,
		Seq:          s.seq,
	}
}

func (s *Session) notify(seq uint64, outcome domain.Outcome) {
	if s.hooks.OnOutcome != nil {
		s.hooks.OnOutcome(s, seq, outcome)
	}
}

// Seq is the sequence number this submission was issued with
func (sub *Submission) Seq() uint64 {
	return sub.seq
}

// Done is closed when the request has returned, whether or not its outcome was kept
func (sub *Submission) Done() <-chan struct{} {
	return sub.done
}

// Wait blocks until the request returns or ctx is done. It reports the outcome this
// submission committed, and false when its response was discarded.
func (sub *Submission) Wait(ctx context.Context) (domain.Outcome, bool) {
	select {
	case <-sub.done:
	case <-ctx.Done():
		return domain.Outcome{}, false
	}
	s := sub.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return sub.outcome, sub.committed
}

// Cancel makes the submission's completion inert. If it is the live submission the
// session returns to idle. The request itself is not aborted.
func (sub *Submission) Cancel() {
	s := sub.session
	s.mu.Lock()
	if sub.invalidated {
		s.mu.Unlock()
		return
	}
	sub.invalidated = true
	live := sub.seq == s.seq && s.outcome.State == domain.StatePending
	if live {
		s.outcome = domain.Idle()
	}
	s.mu.Unlock()

	if live {
		s.notify(sub.seq, domain.Idle())
	}
}
