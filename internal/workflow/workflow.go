// Package workflow drives one listing from photo capture through analysis
// to results.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/vendepro/internal/history"
	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/llm"
	"github.com/raine/vendepro/internal/sections"
	"github.com/rs/zerolog/log"
)

// MsgAnalysisFailed is the only analysis error the user ever sees.
const MsgAnalysisFailed = "Fallo al analizar. Reintenta."

const (
	DefaultAnalyzeTimeout = 3 * time.Minute
	DefaultEnhanceTimeout = 2 * time.Minute
)

var (
	ErrNoImage        = errors.New("no image captured")
	ErrInvalidState   = errors.New("operation not allowed in current step")
	ErrBusy           = errors.New("another operation is in progress")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrInvalidDetails = errors.New("invalid listing details")
	// ErrStale is returned when the session was reset or reloaded while the
	// analysis was running. The result is dropped.
	ErrStale = errors.New("session changed during analysis")
)

// Step is the position of the session in the listing workflow.
type Step int

const (
	StepUpload Step = iota
	StepDetails
	StepAnalyzing
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "Upload"
	case StepDetails:
		return "Details"
	case StepAnalyzing:
		return "Analyzing"
	case StepResults:
		return "Results"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Session is the in-progress listing.
type Session struct {
	Step          Step
	Image         []byte
	EnhancedImage []byte
	Details       listing.Details
	Analysis      *listing.AnalysisResult
	Error         string
	// HistoryID is the history entry the results came from or were saved as.
	HistoryID string
}

func (s Session) clone() Session {
	s.Image = bytes.Clone(s.Image)
	s.EnhancedImage = bytes.Clone(s.EnhancedImage)
	s.Analysis = s.Analysis.Clone()
	return s
}

// Option configures a Machine.
type Option func(*Machine)

func WithAnalyzeTimeout(d time.Duration) Option {
	return func(m *Machine) { m.analyzeTimeout = d }
}

func WithEnhanceTimeout(d time.Duration) Option {
	return func(m *Machine) { m.enhanceTimeout = d }
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDFunc overrides the history item ID generator.
func WithIDFunc(fn func() string) Option {
	return func(m *Machine) { m.newID = fn }
}

// Machine owns the live session. All methods are safe for concurrent use;
// the gateway calls run without holding the lock.
type Machine struct {
	mu      sync.Mutex
	gateway llm.Gateway
	history *history.Store
	session Session

	// generation changes whenever the session is replaced, so results of
	// calls started earlier can be recognized and dropped.
	generation uint64

	// The flags outlive the session that started the call, so a reset
	// cannot open a second call while the first is still running.
	analyzing     bool
	enhancing     bool
	cancelAnalyze context.CancelFunc
	cancelEnhance context.CancelFunc

	analyzeTimeout time.Duration
	enhanceTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// New returns a machine in the Upload step.
func New(gateway llm.Gateway, hist *history.Store, opts ...Option) *Machine {
	m := &Machine{
		gateway:        gateway,
		history:        hist,
		session:        Session{Step: StepUpload, Details: listing.DefaultDetails()},
		analyzeTimeout: DefaultAnalyzeTimeout,
		enhanceTimeout: DefaultEnhanceTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Step
}

// IsEnhancing reports whether an enhancement call is outstanding.
func (m *Machine) IsEnhancing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enhancing
}

// Snapshot returns a deep copy of the live session.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Sections parses the current analysis text. Nil without an analysis.
func (m *Machine) Sections() []sections.Section {
	m.mu.Lock()
	analysis := m.session.Analysis
	m.mu.Unlock()
	if analysis == nil {
		return nil
	}
	return sections.Parse(analysis.FullAnalysis)
}

// CaptureImage starts a new listing for img and moves to Details with
// default details.
func (m *Machine) CaptureImage(img []byte) error {
	if len(img) == 0 {
		return ErrNoImage
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Step == StepAnalyzing {
		return ErrBusy
	}
	m.replace(Session{
		Step:    StepDetails,
		Image:   bytes.Clone(img),
		Details: listing.DefaultDetails(),
	})
	log.Debug().Int("bytes", len(img)).Msg("image captured")
	return nil
}

// UpdateDetails edits the sale details. Only allowed in Details. An unknown
// platform or urgency is rejected with ErrInvalidDetails and nothing changes.
func (m *Machine) UpdateDetails(fn func(*listing.Details)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Step != StepDetails {
		return ErrInvalidState
	}
	details := m.session.Details
	fn(&details)
	if !details.Platform.Valid() || !details.Urgency.Valid() {
		return fmt.Errorf("%w: platform %q, urgency %q", ErrInvalidDetails, details.Platform, details.Urgency)
	}
	m.session.Details = details
	return nil
}

// Submit analyzes the captured image with the current details. On success
// the session moves to Results and a history entry is added. On failure it
// returns to Details with MsgAnalysisFailed and the error wraps
// ErrAnalysisFailed.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.session.Step == StepAnalyzing || m.analyzing:
		m.mu.Unlock()
		return ErrBusy
	case len(m.session.Image) == 0:
		m.mu.Unlock()
		return ErrNoImage
	case m.session.Step != StepDetails:
		m.mu.Unlock()
		return ErrInvalidState
	}
	callCtx, cancel := context.WithTimeout(ctx, m.analyzeTimeout)
	defer cancel()
	m.session.Step = StepAnalyzing
	m.session.Error = ""
	m.analyzing = true
	m.cancelAnalyze = cancel
	token := m.generation
	image := bytes.Clone(m.session.Image)
	details := m.session.Details
	m.mu.Unlock()

	log.Info().
		Str("platform", string(details.Platform)).
		Str("urgency", string(details.Urgency)).
		Msg("analysis started")

	result, err := m.gateway.Analyze(callCtx, image, details)
	if err == nil && result == nil {
		err = errors.New("gateway returned no result")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzing = false
	m.cancelAnalyze = nil

	if token != m.generation {
		log.Info().Msg("session changed during analysis, dropping result")
		return ErrStale
	}

	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		m.session.Step = StepDetails
		m.session.Error = MsgAnalysisFailed
		return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	item := listing.HistoryItem{
		ID:        m.newID(),
		Timestamp: m.now().UnixMilli(),
		Image:     image,
		Details:   details,
		Analysis:  *result.Clone(),
	}
	if err := m.history.Append(item); err != nil {
		// the entry is still in memory; only persistence failed
		log.Warn().Err(err).Str("id", item.ID).Msg("failed to persist history")
	}

	m.session.Step = StepResults
	m.session.Analysis = result.Clone()
	m.session.HistoryID = item.ID
	log.Info().Str("id", item.ID).Int("sources", len(result.MarketURLs)).Msg("analysis completed")
	return nil
}

// Enhance asks the gateway for a restaged photo. It reports whether the
// live session got a new enhanced image. Gateway failures are only logged.
// The history entry keeps the original capture.
func (m *Machine) Enhance(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.session.Step != StepResults || m.session.Analysis == nil || len(m.session.Image) == 0 {
		m.mu.Unlock()
		return false, ErrInvalidState
	}
	if m.enhancing {
		m.mu.Unlock()
		return false, ErrBusy
	}
	callCtx, cancel := context.WithTimeout(ctx, m.enhanceTimeout)
	defer cancel()
	m.enhancing = true
	m.cancelEnhance = cancel
	token := m.generation
	image := bytes.Clone(m.session.Image)
	m.mu.Unlock()

	data, err := m.gateway.Enhance(callCtx, image, llm.DefaultEnhanceInstruction)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.enhancing = false
	m.cancelEnhance = nil

	if token != m.generation {
		log.Info().Msg("session changed during enhancement, dropping image")
		return false, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("image enhancement failed")
		return false, nil
	}
	if len(data) == 0 {
		log.Warn().Msg("image enhancement returned no image")
		return false, nil
	}

	m.session.EnhancedImage = bytes.Clone(data)
	log.Info().Int("bytes", len(data)).Msg("image enhanced")
	return true, nil
}

// Reset returns to Upload, clearing everything except the details.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(Session{Step: StepUpload, Details: m.session.Details})
}

// LoadFromHistory shows a stored listing without calling the gateway.
func (m *Machine) LoadFromHistory(item listing.HistoryItem) {
	item = item.Clone()
	analysis := item.Analysis

	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(Session{
		Step:          StepResults,
		Image:         item.Image,
		EnhancedImage: item.EnhancedImage,
		Details:       item.Details,
		Analysis:      &analysis,
		HistoryID:     item.ID,
	})
}

// replace swaps in a new session and cancels calls made for the old one.
// The flags stay set until those calls return.
func (m *Machine) replace(s Session) {
	m.generation++
	m.session = s
	if m.cancelAnalyze != nil {
		m.cancelAnalyze()
	}
	if m.cancelEnhance != nil {
		m.cancelEnhance()
	}
}
