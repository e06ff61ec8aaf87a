package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-meetup-confirm/internal/capture"
	"campus-meetup-confirm/internal/config"
	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/pkg/logger"
)

// Completer marks a transaction complete with the backend
type Completer interface {
	CompleteTransaction(ctx context.Context, transactionID string) error
}

// Scanner is the buyer view: it acquires a payload from a capture source,
// validates it against the session, and on an exact match requests one
// explicit confirmation before calling the backend.
//
// The session is read-only here; no scan outcome ever mutates it. A
// mismatch or malformed code only costs a retry delay.
type Scanner struct {
	mu         sync.Mutex
	phase      Phase
	reason     FailReason
	generation int
	handle     *capture.Handle

	session    *model.Session
	completer  Completer
	retryDelay time.Duration
	interval   time.Duration
	logger     *logger.Logger

	notices     chan Notice
	matched     chan struct{}
	captureDone <-chan struct{}
}

// New creates a scanner for one session
func New(sess *model.Session, completer Completer, cfg *config.ScannerConfig, log *logger.Logger) *Scanner {
	return &Scanner{
		phase:      PhaseIdle,
		session:    sess,
		completer:  completer,
		retryDelay: cfg.RetryDelay,
		interval:   cfg.PollInterval,
		logger:     log.WithTransactionID(sess.TransactionID).WithRole("buyer"),
		notices:    make(chan Notice, 16),
		matched:    make(chan struct{}),
	}
}

// Phase returns the current phase
func (s *Scanner) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Reason returns the failure category when the phase is failed
func (s *Scanner) Reason() FailReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Notices delivers user-facing scan events
func (s *Scanner) Notices() <-chan Notice {
	return s.notices
}

// Matched is closed when the code has verified and the scanner is
// awaiting the explicit confirmation action
func (s *Scanner) Matched() <-chan struct{} {
	return s.matched
}

// CaptureDone is closed when the capture loop has exited and its source
// is released. Nil before StartCapture.
func (s *Scanner) CaptureDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureDone
}

// StartCapture begins acquiring frames from the source. On an open
// failure the scanner transitions to failed with a categorized reason and
// the user may Reset back to idle.
func (s *Scanner) StartCapture(ctx context.Context, src capture.Source) error {
	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return fmt.Errorf("cannot start capture in phase %s", s.phase)
	}
	s.phase = PhaseAcquiring
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	handle, err := capture.Start(ctx, src, s.interval, s.handleFrame, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		// Cancelled or reset while the source was opening. The cancel
		// wins: release anything acquired and leave the phase alone.
		if handle != nil {
			handle.Cancel()
		}
		return fmt.Errorf("capture cancelled while acquiring")
	}
	if err != nil {
		s.phase = PhaseFailed
		s.reason = classifyCaptureError(err)
		s.logger.WithError(err).Error("Failed to start capture", "reason", s.reason.Message())
		s.post(Notice{Kind: NoticeFailed, Message: s.reason.Message()})
		return err
	}

	s.handle = handle
	s.captureDone = handle.Done()
	s.phase = PhaseScanning
	s.logger.Info("Scanning for verification code")
	return nil
}

// handleFrame is the decode callback. It runs on the capture goroutine
// and is gated twice: the handle's liveness check, and the phase check
// here. Frames arriving in any phase but scanning are dropped.
func (s *Scanner) handleFrame(text string) {
	s.mu.Lock()
	if s.phase != PhaseScanning {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseValidating
	generation := s.generation
	s.mu.Unlock()

	payload, err := model.DecodePayload(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseValidating || s.generation != generation {
		// Cancelled while decoding; the outcome no longer matters
		return
	}

	if err != nil {
		s.logger.Warn("Scanned content is not a verification payload", "error", err)
		s.post(Notice{Kind: NoticeInvalidFormat, Message: "Invalid code format. Hold the code steady and try again."})
		s.scheduleResumeLocked(generation)
		return
	}

	if !payload.Matches(s.session) {
		s.logger.Warn("Scanned code does not match this transaction",
			"scanned_transaction_id", payload.TransactionID,
		)
		s.post(Notice{Kind: NoticeWrongCode, Message: "This code belongs to a different transaction. Try again."})
		s.scheduleResumeLocked(generation)
		return
	}

	// Exact match: release the capture before anything else so no camera
	// handle survives past this point.
	s.stopCaptureLocked()
	s.phase = PhaseAwaitingConfirmation
	close(s.matched)
	s.logger.Info("Verification code matched")
	s.post(Notice{Kind: NoticeMatched, Message: "Code verified. Confirm you received the item."})
}

// scheduleResumeLocked returns the scanner to scanning after the retry
// delay, unless a cancel or reset happened in between.
func (s *Scanner) scheduleResumeLocked(generation int) {
	time.AfterFunc(s.retryDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != generation || s.phase != PhaseValidating {
			return
		}
		s.phase = PhaseScanning
	})
}

// Confirm issues the completion call. Exactly one call can be in flight:
// invoking Confirm while already confirming is a no-op. On failure the
// prompt stays available and retry is the user's explicit choice.
func (s *Scanner) Confirm(ctx context.Context) error {
	s.mu.Lock()
	switch s.phase {
	case PhaseConfirming:
		s.mu.Unlock()
		return nil
	case PhaseAwaitingConfirmation:
	default:
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("nothing to confirm in phase %s", phase)
	}
	s.phase = PhaseConfirming
	s.mu.Unlock()

	err := s.completer.CompleteTransaction(ctx, s.session.TransactionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = PhaseAwaitingConfirmation
		s.logger.Error("Completion call failed", "error", err)
		s.post(Notice{Kind: NoticeCompleteFailed, Message: "Could not complete the transaction. Try confirming again."})
		return err
	}

	s.phase = PhaseDone
	s.post(Notice{Kind: NoticeCompleted, Message: "Transaction completed."})
	return nil
}

// FinishCapture handles an exhausted source that never produced a match,
// the single-image upload case: the scanner fails with a recoverable
// no-code reason instead of waiting for frames that will never come.
func (s *Scanner) FinishCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseScanning && s.phase != PhaseValidating {
		return
	}
	s.generation++
	s.stopCaptureLocked()
	s.phase = PhaseFailed
	s.reason = ReasonNoCodeFound
	s.post(Notice{Kind: NoticeFailed, Message: s.reason.Message()})
}

// Cancel tears down any active capture synchronously. Called when the
// user stops the scan or the screen goes away; safe in every phase.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.stopCaptureLocked()
	switch s.phase {
	case PhaseAcquiring, PhaseScanning, PhaseValidating:
		s.phase = PhaseIdle
	}
}

// Reset returns a failed scanner to idle so the user can choose a
// capture mode again
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFailed {
		return
	}
	s.generation++
	s.reason = ReasonNone
	s.phase = PhaseIdle
}

func (s *Scanner) stopCaptureLocked() {
	if s.handle != nil {
		s.handle.Cancel()
		s.handle = nil
	}
}

// post delivers a notice without ever blocking the state machine
func (s *Scanner) post(n Notice) {
	select {
	case s.notices <- n:
	default:
	}
}

func classifyCaptureError(err error) FailReason {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, capture.ErrDeviceNotFound):
		return ReasonDeviceNotFound
	case errors.Is(err, capture.ErrUnsupported):
		return ReasonUnsupported
	default:
		return ReasonUnknown
	}
}
