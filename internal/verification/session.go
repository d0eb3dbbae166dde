package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/models"
)

// persisted is the JSON shape written to the session store.
type persisted struct {
	Seller             *models.SellerProfile     `json:"seller"`
	Documents          models.Documents          `json:"documents"`
	VerificationStatus models.VerificationStatus `json:"verificationStatus"`
}

// Session owns the verification state of one seller and keeps the
// persisted copy in sync after every dispatch.
type Session struct {
	sellerID string
	store    Persistence
	log      *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State

	// inflight counts Dispatch and Apply calls in progress; sweep keeps
	// such sessions so two Session values never exist for one seller.
	inflight atomic.Int32
}

func NewSession(sellerID string, store Persistence, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		sellerID: sellerID,
		store:    store,
		log:      log,
		now:      time.Now,
		state:    InitialState(),
	}
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Load restores the persisted session, if any. A corrupt payload is
// discarded and the session stays in its initial state.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	key := SessionKey(s.sellerID)
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	var p persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("discarding malformed session", zap.String("key", key), zap.Error(err))
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error("failed to delete malformed session", zap.String("key", key), zap.Error(delErr))
		}
		return nil
	}

	s.state = Reduce(s.state, LoginSuccess{
		Seller:             p.Seller,
		Documents:          &p.Documents,
		VerificationStatus: &p.VerificationStatus,
	})
	return nil
}

// Save writes the persisted part of the state.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, s.state)
}

// Clear removes the persisted copy.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, SessionKey(s.sellerID))
}

// Dispatch reduces the action and mirrors the result into persistence:
// an authenticated state is saved, anything else clears the key.
func (s *Session) Dispatch(ctx context.Context, a Action) (State, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.snapshot(), s.sync(ctx, s.state)
}

// Apply runs one read-modify-write step while holding the session lock, so
// steps for the same seller never interleave. fn gets the current state and
// returns the next one. The overall status of the result is recomputed
// before it is committed. When fn fails the state is left unchanged.
func (s *Session) Apply(ctx context.Context, fn func(State) (State, error)) (State, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.snapshot())
	if err != nil {
		return s.snapshot(), err
	}
	s.state = WithOverall(next)
	if err := s.sync(ctx, s.state); err != nil {
		s.log.Warn("session persist failed", zap.String("sellerId", s.sellerID), zap.Error(err))
	}
	return s.snapshot(), nil
}

func (s *Session) snapshot() State {
	st := s.state
	st.Notifications = make([]Notification, len(s.state.Notifications))
	copy(st.Notifications, s.state.Notifications)
	return st
}

func (s *Session) sync(ctx context.Context, st State) error {
	key := SessionKey(s.sellerID)
	if !st.IsAuthenticated || st.Seller == nil {
		return s.store.Delete(ctx, key)
	}
	b, err := json.Marshal(persisted{
		Seller:             st.Seller,
		Documents:          st.Documents,
		VerificationStatus: st.VerificationStatus,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.store.Set(ctx, key, b)
}

func (s *Session) notification(kind, title, message string) Notification {
	now := s.now()
	return Notification{
		ID:        now.UnixNano(),
		Type:      kind,
		Title:     title,
		Message:   message,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// Notify appends a notification stamped with the current time.
func (s *Session) Notify(ctx context.Context, kind, title, message string) error {
	_, err := s.Dispatch(ctx, AddNotification{Notification: s.notification(kind, title, message)})
	return err
}

// Review applies a reviewer decision to st: the category status changes,
// the seller is told about it and overall is recomputed. It is meant to run
// inside Apply.
func (s *Session) Review(st State, c models.DocumentCategory, status models.DocumentStatus, reason string) State {
	st = WithOverall(Reduce(st, UpdateDocumentStatus{Category: c, Status: status}))

	var n Notification
	switch status {
	case models.DocApproved:
		n = s.notification(NotifySuccess, "Document Approved",
			fmt.Sprintf("Your %s document has been approved.", c))
	case models.DocRejected:
		msg := reason
		if msg == "" {
			msg = fmt.Sprintf("Your %s document was rejected. Please upload a new document.", c)
		}
		n = s.notification(NotifyError, "Document Rejected", msg)
	case models.DocPending:
		n = s.notification(NotifyInfo, "Document Under Review",
			fmt.Sprintf("Your %s document is being reviewed.", c))
	default:
		return st
	}
	return Reduce(st, AddNotification{Notification: n})
}

// UpdateDocumentStatus changes one category, tells the seller about it and
// recomputes the overall status in a single step.
func (s *Session) UpdateDocumentStatus(ctx context.Context, c models.DocumentCategory, status models.DocumentStatus, reason string) (State, error) {
	return s.Apply(ctx, func(st State) (State, error) {
		return s.Review(st, c, status, reason), nil
	})
}

// RecomputeOverall writes the derived overall status back into the state.
func (s *Session) RecomputeOverall(ctx context.Context) (State, error) {
	return s.Apply(ctx, func(st State) (State, error) { return st, nil })
}

// SessionManager hands out one Session per seller.
type SessionManager struct {
	store Persistence
	log   *zap.Logger
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*managed
	swept    time.Time
}

type managed struct {
	*Session
	used time.Time
}

// NewSessionManager builds a manager whose in-memory sessions are evicted
// after ttl without use. Evicted sessions are reloaded from the store on
// the next Get. A zero ttl keeps sessions until Drop.
func NewSessionManager(store Persistence, log *zap.Logger, ttl time.Duration) *SessionManager {
	return &SessionManager{
		store:    store,
		log:      log,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*managed),
	}
}

// Get returns the seller's session, loading it from persistence on first use.
// Callers that race with the first load block until it is done.
func (m *SessionManager) Get(ctx context.Context, sellerID string) (*Session, error) {
	m.mu.Lock()
	now := m.now()
	m.sweep(now)
	if e, ok := m.sessions[sellerID]; ok {
		e.used = now
		m.mu.Unlock()
		return e.Session, nil
	}
	s := NewSession(sellerID, m.store, m.log)
	s.mu.Lock()
	m.sessions[sellerID] = &managed{Session: s, used: now}
	m.mu.Unlock()

	err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		m.mu.Lock()
		if e, ok := m.sessions[sellerID]; ok && e.Session == s {
			delete(m.sessions, sellerID)
		}
		m.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// sweep drops idle sessions. It walks the map at most twice per ttl.
func (m *SessionManager) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.swept) < m.ttl/2 {
		return
	}
	m.swept = now
	for id, e := range m.sessions {
		if e.inflight.Load() > 0 {
			e.used = now
			continue
		}
		if now.Sub(e.used) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// Len reports how many sessions are held in memory.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Drop forgets the in-memory session, e.g. after logout.
func (m *SessionManager) Drop(sellerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sellerID)
}
