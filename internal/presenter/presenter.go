package presenter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"

	"campus-meetup-confirm/internal/config"
	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/pkg/logger"
)

// Completer marks a transaction complete with the backend
type Completer interface {
	CompleteTransaction(ctx context.Context, transactionID string) error
}

// Presenter is the seller view: it renders the verification payload as a
// scannable code and exposes the manual receipt acknowledgement. The
// payload is produced locally from the session; no network call is
// involved in displaying it.
type Presenter struct {
	session   *model.Session
	completer Completer
	config    *config.PresenterConfig
	logger    *logger.Logger
	payload   string

	confirming atomic.Bool
	completed  atomic.Bool
}

// New creates a presenter for one session
func New(sess *model.Session, completer Completer, cfg *config.PresenterConfig, log *logger.Logger) (*Presenter, error) {
	payload, err := model.EncodePayload(sess)
	if err != nil {
		return nil, err
	}

	return &Presenter{
		session:   sess,
		completer: completer,
		config:    cfg,
		logger:    log.WithTransactionID(sess.TransactionID).WithRole("seller"),
		payload:   payload,
	}, nil
}

// Payload returns the QR text shown to the buyer
func (p *Presenter) Payload() string {
	return p.payload
}

// RenderTerminal draws the QR code into w using half blocks
func (p *Presenter) RenderTerminal(w io.Writer) {
	qrterminal.GenerateHalfBlock(p.payload, qrterminal.L, w)
}

// WritePNG writes the QR code as a PNG file and returns its full path
func (p *Presenter) WritePNG() (string, error) {
	if err := qrcode.WriteFile(p.payload, qrcode.Medium, 512, p.config.QRImagePath); err != nil {
		return "", fmt.Errorf("failed to write QR code image: %w", err)
	}

	fullPath, err := filepath.Abs(p.config.QRImagePath)
	if err != nil {
		fullPath = p.config.QRImagePath
	}

	p.logger.Info("QR code written", "file", fullPath)
	return fullPath, nil
}

// Confirm acknowledges the handover from the seller side. Single-flight:
// a second call while one is outstanding is a no-op, and a call after
// success is a no-op. A failure leaves the code presentable and the
// action retryable.
func (p *Presenter) Confirm(ctx context.Context) error {
	if p.completed.Load() {
		return nil
	}
	if !p.confirming.CompareAndSwap(false, true) {
		return nil
	}
	defer p.confirming.Store(false)

	if err := p.completer.CompleteTransaction(ctx, p.session.TransactionID); err != nil {
		p.logger.Error("Completion call failed", "error", err)
		return err
	}

	p.completed.Store(true)
	return nil
}

// Completed reports whether the backend acknowledged completion
func (p *Presenter) Completed() bool {
	return p.completed.Load()
}
