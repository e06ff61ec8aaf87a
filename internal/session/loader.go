package session

import (
	"context"
	"errors"
	"fmt"

	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/pkg/logger"
)

// State is the loader outcome
type State int

const (
	// StateLoading is the initial state before the fetch resolves
	StateLoading State = iota
	// StateError means the fetch failed; retry is a fresh Load call
	StateError
	// StateUnauthorized means the viewer is neither counterparty. Terminal.
	StateUnauthorized
	// StateReady carries an authorized session and its role
	StateReady
)

// ErrUnauthorized indicates a viewer who is neither buyer nor seller
var ErrUnauthorized = errors.New("viewer is neither buyer nor seller")

// Fetcher fetches a transaction from the backend
type Fetcher interface {
	FetchTransaction(ctx context.Context, transactionID string) (*model.Session, error)
}

// Result is the resolved loader state. Exactly one of the three terminal
// outcomes holds: error, unauthorized, or ready with a single role.
type Result struct {
	State   State
	Session *model.Session
	Role    model.Role
	Err     error
}

// Loader fetches a transaction once per screen and dispatches by role
type Loader struct {
	fetcher Fetcher
	logger  *logger.Logger
}

// NewLoader creates a new session loader
func NewLoader(fetcher Fetcher, log *logger.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		logger:  log,
	}
}

// Load fetches the transaction exactly once and authorizes the viewer.
// There is no polling and no automatic retry.
func (l *Loader) Load(ctx context.Context, transactionID, userID string) Result {
	if transactionID == "" {
		return Result{State: StateError, Err: fmt.Errorf("transaction id is required")}
	}

	sess, err := l.fetcher.FetchTransaction(ctx, transactionID)
	if err != nil {
		l.logger.WithTransactionID(transactionID).WithError(err).Error("Failed to load transaction")
		return Result{State: StateError, Err: err}
	}

	role := sess.RoleOf(userID)
	if role == model.RoleNone {
		l.logger.WithTransactionID(transactionID).Warn("Viewer not a counterparty", "user_id", userID)
		return Result{State: StateUnauthorized, Err: ErrUnauthorized}
	}

	l.logger.WithTransactionID(transactionID).WithRole(role.String()).Info("Session ready",
		"seller", sess.SellerName,
	)

	return Result{State: StateReady, Session: sess, Role: role}
}
