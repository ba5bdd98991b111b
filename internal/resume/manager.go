package resume

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quizdeck/internal/domain"
	"quizdeck/internal/model"
)

// SessionLookup reads the live session a pointer claims to reference.
type SessionLookup interface {
	GetByPIN(ctx context.Context, pin string) (*model.GameSession, error)
}

// Manager validates pointers before handing them back to a host. A
// pointer is only as trustworthy as the live session behind it, so every
// rejection also clears the stale blob.
type Manager struct {
	store    Store
	sessions SessionLookup
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewManager(store Store, sessions SessionLookup, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Track records the host's current position. Called after every
// successful transition.
func (m *Manager) Track(ctx context.Context, session *model.GameSession, returnPath string) error {
	return m.store.Save(ctx, &Pointer{
		SessionID:    session.ID,
		PIN:          session.PIN,
		ActivityID:   session.ActivityID,
		Title:        session.Title,
		HostID:       session.HostID,
		ActivityType: session.Type,
		LastState:    session.State,
		ReturnPath:   returnPath,
		UpdatedAt:    m.now(),
	})
}

// Clear removes the host's pointer, used when a session ends or is
// cancelled.
func (m *Manager) Clear(ctx context.Context, hostID string) error {
	return m.store.Clear(ctx, hostID)
}

// Resume returns the pointer and its live session if the pointer is
// fresh, belongs to the caller, and the session is still running. Any
// other outcome clears the pointer: a stale breadcrumb that fails once
// will fail every time, so keeping it only repeats the error.
func (m *Manager) Resume(ctx context.Context, hostID string) (*Pointer, *model.GameSession, error) {
	ptr, err := m.store.Load(ctx, hostID)
	if err != nil {
		return nil, nil, err
	}
	if ptr == nil {
		return nil, nil, domain.ErrNotFound
	}

	if m.now().Sub(ptr.UpdatedAt) > m.ttl {
		m.clearQuietly(ctx, hostID)
		return nil, nil, domain.ErrNotFound
	}
	if ptr.HostID != hostID {
		m.clearQuietly(ctx, hostID)
		return nil, nil, domain.ErrPermissionDenied
	}

	session, err := m.sessions.GetByPIN(ctx, ptr.PIN)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.State.IsTerminal() {
		m.clearQuietly(ctx, hostID)
		return nil, nil, domain.ErrNotFound
	}
	if session.HostID != hostID {
		m.clearQuietly(ctx, hostID)
		return nil, nil, domain.ErrPermissionDenied
	}

	ptr.LastState = session.State
	return ptr, session, nil
}

func (m *Manager) clearQuietly(ctx context.Context, hostID string) {
	if err := m.store.Clear(ctx, hostID); err != nil {
		m.logger.Warn("pointer clear failed", zap.String("hostId", hostID), zap.Error(err))
	}
}
