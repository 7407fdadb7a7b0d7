package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/render"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/id"
	"go.uber.org/zap"
)

// DefaultMaxRounds is the round ceiling used when Options leaves it unset.
const DefaultMaxRounds = 50

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrRoundLimit is returned once a session has processed MaxRounds inputs.
	ErrRoundLimit = errors.New("session round limit reached")
	// ErrNotComplete is returned when a document is requested before one
	// has been rendered.
	ErrNotComplete = errors.New("blueprint not complete")
	// ErrNoStore is returned by Save and Restore without a Store.
	ErrNoStore = errors.New("no session store configured")
)

// Options configures a Manager.
type Options struct {
	// MaxRounds caps the inputs one session may process.
	MaxRounds int
	// Compiler holds the options every new compiler is built with.
	Compiler compiler.Options
	Store    Store
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
	Now      func() time.Time
}

// Session is one compiler with the lock that serialises its inputs.
type Session struct {
	ID        id.SessionID
	CreatedAt time.Time

	mu        sync.Mutex
	compiler  *compiler.Compiler
	updatedAt time.Time
}

// Info summarises a session.
type Info struct {
	ID        id.SessionID                   `json:"id"`
	State     compiler.State                 `json:"state"`
	Rounds    int                            `json:"rounds"`
	Entities  []string                       `json:"entities"`
	Question  string                         `json:"question,omitempty"`
	Findings  []blueprint.MissingRequirement `json:"findings,omitempty"`
	CreatedAt time.Time                      `json:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// Manager owns the live sessions.
type Manager struct {
	sessions  sync.Map
	service   collaborator.Service
	opts      compiler.Options
	maxRounds int
	store     Store
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time
}

// NewManager creates a manager whose sessions talk to service.
func NewManager(service collaborator.Service, opts Options) *Manager {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.Component(opts.Logger, "session")
	copts := opts.Compiler
	if copts.Logger == nil {
		copts.Logger = logger
	}
	if copts.Metrics == nil {
		copts.Metrics = opts.Metrics
	}
	copts = copts.WithDefaults()
	return &Manager{
		service:   service,
		opts:      copts,
		maxRounds: maxRounds,
		store:     opts.Store,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
	}
}

// CompilerOptions returns the options sessions are built with, defaults
// filled in.
func (m *Manager) CompilerOptions() compiler.Options { return m.opts }

// MaxRounds returns the per-session round ceiling.
func (m *Manager) MaxRounds() int { return m.maxRounds }

// Create starts an empty session.
func (m *Manager) Create() *Session {
	s := m.add(id.NewSessionID(), compiler.New(m.service, m.opts), m.now())
	m.metrics.IncSessionsCreated()
	logging.Session(m.logger, s.ID.String()).Info("Session created")
	return s
}

func (m *Manager) add(sessionID id.SessionID, c *compiler.Compiler, created time.Time) *Session {
	s := &Session{ID: sessionID, CreatedAt: created, compiler: c, updatedAt: m.now()}
	m.sessions.Store(sessionID, s)
	m.metrics.SetSessionsActive(m.Count())
	return s
}

// Get returns a live session.
func (m *Manager) Get(sessionID id.SessionID) (*Session, error) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return v.(*Session), nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	n := 0
	m.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// List summarises live sessions, oldest first.
func (m *Manager) List() []Info {
	var out []Info
	m.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete drops a live session. Stored snapshots are left alone.
func (m *Manager) Delete(sessionID id.SessionID) error {
	if _, ok := m.sessions.LoadAndDelete(sessionID); !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	m.metrics.SetSessionsActive(m.Count())
	logging.Session(m.logger, sessionID.String()).Info("Session deleted")
	return nil
}

// Process feeds text to the session's compiler.
func (m *Manager) Process(ctx context.Context, sessionID id.SessionID, text string) (*compiler.Response, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compiler.Rounds() >= m.maxRounds {
		logging.Session(m.logger, sessionID.String()).Warn("Round limit reached",
			zap.Int("rounds", s.compiler.Rounds()))
		return nil, fmt.Errorf("session %s after %d rounds: %w", sessionID, s.compiler.Rounds(), ErrRoundLimit)
	}
	resp, err := s.compiler.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	s.updatedAt = m.now()
	return resp, nil
}

// Resume starts a new session from an existing graph.
func (m *Manager) Resume(ctx context.Context, g *blueprint.Graph) (*Session, *compiler.Response, error) {
	c := compiler.New(m.service, m.opts)
	resp, err := c.Resume(ctx, g)
	if err != nil {
		return nil, nil, err
	}
	s := m.add(id.NewSessionID(), c, m.now())
	m.metrics.IncSessionsCreated()
	logging.Session(m.logger, s.ID.String()).Info("Session resumed from graph",
		zap.Int("entities", g.Len()))
	return s, resp, nil
}

// Document returns the rendered document of a completed session.
func (m *Manager) Document(sessionID id.SessionID) (*render.Document, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.compiler.Document()
	if doc == nil || s.compiler.State() != compiler.StateYAMLRendered {
		return nil, fmt.Errorf("session %s in state %s: %w", sessionID, s.compiler.State(), ErrNotComplete)
	}
	return doc, nil
}

// Save writes the session to the store.
func (m *Manager) Save(ctx context.Context, sessionID id.SessionID) (*Record, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.record(m.now())
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	m.metrics.IncSessionsSaved()
	logging.Session(m.logger, sessionID.String()).Info("Session saved",
		zap.Stringer("state", rec.Compiler.State))
	return rec, nil
}

// Restore loads a stored session and makes it live under its own id,
// replacing any live session with that id.
func (m *Manager) Restore(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	rec, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c := compiler.New(m.service, m.opts)
	if err := c.Restore(rec.Compiler); err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}
	s := m.add(rec.ID, c, rec.CreatedAt)
	m.metrics.IncSessionsRestored()
	logging.Session(m.logger, sessionID.String()).Info("Session restored",
		zap.Stringer("state", c.State()))
	return s, nil
}

// Stored lists the ids held by the store.
func (m *Manager) Stored(ctx context.Context) ([]id.SessionID, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.List(ctx)
}

// Info summarises the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.ID,
		State:     s.compiler.State(),
		Rounds:    s.compiler.Rounds(),
		Entities:  s.compiler.Graph().IDs(),
		Question:  s.compiler.Question(),
		Findings:  s.compiler.Findings(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
	}
}

// Graph returns a copy of the session's graph.
func (s *Session) Graph() *blueprint.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compiler.Graph().Clone()
}

func (s *Session) record(now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.compiler.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Record{ID: s.ID, CreatedAt: s.CreatedAt, SavedAt: now, Compiler: snap}, nil
}
