package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ecoscan/ecoscan/internal/geo"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/models"
	"github.com/ecoscan/ecoscan/internal/policy"
	"github.com/ecoscan/ecoscan/internal/vision"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrashPrefix marks a QR payload as a receptacle code; any other payload is
// treated as a redemption order identifier.
const TrashPrefix = "TRASH-"

type State int

const (
	StateIdle State = iota
	StateQRArmed
	StateRouting
	StateTrashCaptureArmed
	StateVerifying
)

type RouteKind int

const (
	RouteCapture RouteKind = iota
	RouteRedemption
)

type Route struct {
	Kind    RouteKind
	Token   uuid.UUID
	OrderID uuid.UUID
}

type Store interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	ApplyScanAward(ctx context.Context, userID uuid.UUID, points int, photo []byte, day time.Time, now time.Time) error
	GetSetting(ctx context.Context, key string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (vision.Result, error)
}

type Config struct {
	AwardPoints  int
	Cooldown     time.Duration
	Window       policy.Window
	Target       geo.Position
	RadiusMeters float64
}

type session struct {
	state State
	token uuid.UUID
}

// Manager runs one scan session per user. A session is armed, accepts
// exactly one QR read, and either routes to trash capture or to the
// redemption workflow; every failure or cancel drops it back to idle. The
// session token is rotated on reset and compared again before the ledger
// commit, so a result that arrives after the session moved on is discarded.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	store      Store
	classifier Classifier
	cfg        Config
	now        func() time.Time
}

func New(store Store, classifier Classifier, cfg Config) *Manager {
	return &Manager{
		sessions:   make(map[uuid.UUID]*session),
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Arm starts a fresh session. Both permissions must already be granted on
// the device; re-arming replaces any previous session and invalidates its
// token.
func (m *Manager) Arm(ctx context.Context, userID uuid.UUID, cameraGranted, locationGranted bool) (uuid.UUID, error) {
	if !cameraGranted || !locationGranted {
		return uuid.Nil, ErrPermissionDenied
	}

	token := uuid.New()

	m.mu.Lock()
	m.sessions[userID] = &session{state: StateQRArmed, token: token}
	m.mu.Unlock()

	return token, nil
}

// OnQRRead accepts at most one QR payload per arming. Receptacle codes are
// gated by the cooldown and the scan window before the capture stage arms;
// anything else is parsed as a redemption order identifier and handed to
// the redemption workflow. Review mode skips the cooldown along with the
// window, so a reviewer can run back-to-back scans.
func (m *Manager) OnQRRead(ctx context.Context, userID uuid.UUID, payload string) (Route, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok || s.state != StateQRArmed {
		m.mu.Unlock()
		return Route{}, ErrNotArmed
	}
	// Latch immediately: further reads from the same arming are refused.
	s.state = StateRouting
	token := s.token
	m.mu.Unlock()

	if !strings.HasPrefix(payload, TrashPrefix) {
		m.reset(userID, token)

		orderID, err := uuid.Parse(payload)
		if err != nil {
			return Route{}, ErrInvalidRedemptionCode
		}
		return Route{Kind: RouteRedemption, OrderID: orderID}, nil
	}

	user, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		m.reset(userID, token)
		return Route{}, fmt.Errorf("failed to load user: %w", err)
	}

	now := m.now()
	if !policy.ReviewMode(ctx, m.store) {
		if remaining := policy.CooldownRemaining(user.LastScan, now, m.cfg.Cooldown); remaining > 0 {
			m.reset(userID, token)
			return Route{}, &CooldownError{Remaining: remaining}
		}
		if !m.cfg.Window.Allowed(now) {
			m.reset(userID, token)
			return Route{}, ErrOutsideWindow
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.sessions[userID]
	if !ok || s.token != token {
		return Route{}, ErrStaleSession
	}
	s.state = StateTrashCaptureArmed

	return Route{Kind: RouteCapture, Token: token}, nil
}

// Capture verifies the trash photo and commits the point award; the
// verified photo is retained on the user record. Guards run
// in order: session token, geofence, scan window, classifier. The token is
// checked once more under the lock before the ledger write, so a session
// reset during the classifier round trip discards the result.
func (m *Manager) Capture(ctx context.Context, userID uuid.UUID, token uuid.UUID, imageBytes []byte, pos *geo.Position) (int, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok || s.state != StateTrashCaptureArmed {
		m.mu.Unlock()
		return 0, ErrNotArmed
	}
	if s.token != token {
		m.mu.Unlock()
		return 0, ErrStaleSession
	}
	s.state = StateVerifying
	m.mu.Unlock()

	now := m.now()
	if !policy.ReviewMode(ctx, m.store) {
		if pos == nil {
			m.reset(userID, token)
			return 0, geo.ErrLocationUnavailable
		}
		if !geo.WithinRadius(*pos, m.cfg.Target, m.cfg.RadiusMeters) {
			m.reset(userID, token)
			return 0, ErrOutOfRange
		}
		if !m.cfg.Window.Allowed(now) {
			m.reset(userID, token)
			return 0, ErrOutsideWindow
		}
	}

	result, err := m.classifier.Classify(ctx, imageBytes)
	if err != nil {
		m.reset(userID, token)
		if errors.Is(err, vision.ErrInvalidImage) {
			return 0, ErrClassificationRejected
		}
		logger.Log.Error("Classifier call failed", zap.String("userID", userID.String()), zap.Error(err))
		return 0, ErrClassificationService
	}

	if !result.Accepted() {
		m.reset(userID, token)
		return 0, ErrClassificationRejected
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.sessions[userID]
	if !ok || s.token != token || s.state != StateVerifying {
		logger.Log.Warn("Discarding stale classification result", zap.String("userID", userID.String()))
		return 0, ErrStaleSession
	}

	if err := m.store.ApplyScanAward(ctx, userID, m.cfg.AwardPoints, imageBytes, now, now); err != nil {
		delete(m.sessions, userID)
		return 0, fmt.Errorf("failed to commit scan award: %w", err)
	}

	delete(m.sessions, userID)
	return m.cfg.AwardPoints, nil
}

// Cancel resets the session to idle. In-flight calls finish but find their
// token gone and discard their result.
func (m *Manager) Cancel(userID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

func (m *Manager) State(userID uuid.UUID) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s.state
	}
	return StateIdle
}

// reset drops a session only while it still belongs to the failed call. An
// error observed after the user cancelled and re-armed must leave the
// successor session untouched.
func (m *Manager) reset(userID uuid.UUID, token uuid.UUID) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok && s.token == token {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}

var manager *Manager

func Init(store Store, classifier Classifier, cfg Config) {
	manager = New(store, classifier, cfg)
	logger.Log.Info("Scan session manager started")
}

func Arm(ctx context.Context, userID uuid.UUID, cameraGranted, locationGranted bool) (uuid.UUID, error) {
	return manager.Arm(ctx, userID, cameraGranted, locationGranted)
}

func OnQRRead(ctx context.Context, userID uuid.UUID, payload string) (Route, error) {
	return manager.OnQRRead(ctx, userID, payload)
}

func Capture(ctx context.Context, userID uuid.UUID, token uuid.UUID, imageBytes []byte, pos *geo.Position) (int, error) {
	return manager.Capture(ctx, userID, token, imageBytes, pos)
}

func Cancel(userID uuid.UUID) {
	manager.Cancel(userID)
}
