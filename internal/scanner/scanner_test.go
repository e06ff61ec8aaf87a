package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-meetup-confirm/internal/capture"
	"campus-meetup-confirm/internal/config"
	"campus-meetup-confirm/internal/model"
	"campus-meetup-confirm/pkg/logger"
)

const matchingPayload = `{"transactionId":"T1","verificationCode":"V1","sellerId":"S1"}`
const wrongCodePayload = `{"transactionId":"T1","verificationCode":"WRONG","sellerId":"S1"}`

func testSession() *model.Session {
	return &model.Session{
		TransactionID:    "T1",
		VerificationCode: "V1",
		SellerID:         "S1",
		BuyerID:          "B1",
		SellerName:       "Alex",
	}
}

func testConfig() *config.ScannerConfig {
	return &config.ScannerConfig{
		RetryDelay:   5 * time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

// scriptSource yields the given frames in order and then keeps repeating
// the last one, the way a camera keeps seeing the same code. An empty
// string stands for a frame with nothing decodable.
type scriptSource struct {
	mu     sync.Mutex
	frames []string
	index  int
	closed bool
}

func (s *scriptSource) Open(ctx context.Context) error { return nil }

func (s *scriptSource) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return "", capture.ErrNoFrame
	}
	frame := s.frames[s.index]
	if s.index < len(s.frames)-1 {
		s.index++
	}
	if frame == "" {
		return "", capture.ErrNoFrame
	}
	return frame, nil
}

func (s *scriptSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stubCompleter struct {
	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{}
}

func (c *stubCompleter) CompleteTransaction(ctx context.Context, transactionID string) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.gate != nil {
		<-c.gate
	}
	return c.err
}

func (c *stubCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func waitMatched(t *testing.T, s *Scanner) {
	t.Helper()
	select {
	case <-s.Matched():
	case <-time.After(2 * time.Second):
		t.Fatalf("scanner never matched, phase %s", s.Phase())
	}
}

func TestMatchingCodeReachesAwaitingConfirmation(t *testing.T) {
	src := &scriptSource{frames: []string{"", matchingPayload}}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	waitMatched(t, scn)

	assert.Equal(t, PhaseAwaitingConfirmation, scn.Phase())

	// Capture is released before the confirmation prompt appears
	select {
	case <-scn.CaptureDone():
	case <-time.After(2 * time.Second):
		t.Fatal("capture not released after match")
	}
	assert.True(t, src.isClosed())
}

func TestWrongCodeResumesScanning(t *testing.T) {
	sess := testSession()
	src := &scriptSource{frames: []string{wrongCodePayload, matchingPayload}}
	scn := New(sess, &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))

	// The mismatch surfaces, scanning resumes after the delay, and the
	// next frame still matches: the session is never invalidated.
	waitMatched(t, scn)
	assert.Equal(t, PhaseAwaitingConfirmation, scn.Phase())

	sawWrongCode := false
	for done := false; !done; {
		select {
		case n := <-scn.Notices():
			if n.Kind == NoticeWrongCode {
				sawWrongCode = true
			}
		default:
			done = true
		}
	}
	assert.True(t, sawWrongCode)

	// Session fields unchanged by the mismatch
	assert.Equal(t, "V1", sess.VerificationCode)
	assert.Equal(t, "T1", sess.TransactionID)
}

func TestMalformedContentIsRecoverable(t *testing.T) {
	src := &scriptSource{frames: []string{"just some plain text", matchingPayload}}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	waitMatched(t, scn)

	sawInvalidFormat := false
	for done := false; !done; {
		select {
		case n := <-scn.Notices():
			if n.Kind == NoticeInvalidFormat {
				sawInvalidFormat = true
			}
		default:
			done = true
		}
	}
	assert.True(t, sawInvalidFormat)
}

func TestFramesAfterMatchAreDropped(t *testing.T) {
	src := &scriptSource{frames: []string{matchingPayload}}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	waitMatched(t, scn)

	// Repeated frame callbacks after teardown must not trigger further
	// transitions
	scn.handleFrame(matchingPayload)
	scn.handleFrame(wrongCodePayload)
	assert.Equal(t, PhaseAwaitingConfirmation, scn.Phase())
}

func TestConfirmSingleFlight(t *testing.T) {
	completer := &stubCompleter{gate: make(chan struct{})}
	src := &scriptSource{frames: []string{matchingPayload}}
	scn := New(testSession(), completer, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	waitMatched(t, scn)

	firstDone := make(chan error, 1)
	go func() { firstDone <- scn.Confirm(context.Background()) }()

	require.Eventually(t, func() bool { return scn.Phase() == PhaseConfirming }, 2*time.Second, time.Millisecond)

	// Second confirm while one is outstanding is a no-op
	require.NoError(t, scn.Confirm(context.Background()))
	assert.Equal(t, 1, completer.callCount())

	close(completer.gate)
	require.NoError(t, <-firstDone)
	assert.Equal(t, PhaseDone, scn.Phase())
	assert.Equal(t, 1, completer.callCount())
}

func TestConfirmFailureAllowsExplicitRetry(t *testing.T) {
	completer := &stubCompleter{err: errors.New("backend down")}
	src := &scriptSource{frames: []string{matchingPayload}}
	scn := New(testSession(), completer, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	waitMatched(t, scn)

	require.Error(t, scn.Confirm(context.Background()))
	assert.Equal(t, PhaseAwaitingConfirmation, scn.Phase())

	completer.err = nil
	require.NoError(t, scn.Confirm(context.Background()))
	assert.Equal(t, PhaseDone, scn.Phase())
	assert.Equal(t, 2, completer.callCount())
}

func TestConfirmBeforeMatchIsRejected(t *testing.T) {
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))
	assert.Error(t, scn.Confirm(context.Background()))
	assert.Equal(t, PhaseIdle, scn.Phase())
}

func TestStartCaptureFailureIsCategorized(t *testing.T) {
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	err := scn.StartCapture(context.Background(), capture.NewFileSource("/does/not/exist.png"))
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, scn.Phase())
	assert.Equal(t, ReasonDeviceNotFound, scn.Reason())

	// Full reset back to idle is always offered from the failed state
	scn.Reset()
	assert.Equal(t, PhaseIdle, scn.Phase())
	assert.Equal(t, ReasonNone, scn.Reason())
}

func TestCancelReleasesCapture(t *testing.T) {
	src := &scriptSource{}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	require.Equal(t, PhaseScanning, scn.Phase())

	scn.Cancel()
	assert.Equal(t, PhaseIdle, scn.Phase())

	select {
	case <-scn.CaptureDone():
	case <-time.After(2 * time.Second):
		t.Fatal("capture not released after cancel")
	}
	assert.True(t, src.isClosed())
}

func TestFinishCaptureWithoutMatchFails(t *testing.T) {
	src := &scriptSource{frames: []string{""}}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	scn.FinishCapture()

	assert.Equal(t, PhaseFailed, scn.Phase())
	assert.Equal(t, ReasonNoCodeFound, scn.Reason())
}

// blockingOpenSource holds its Open call until released, like a camera
// waiting on a permission prompt
type blockingOpenSource struct {
	scriptSource
	release chan struct{}
}

func (s *blockingOpenSource) Open(ctx context.Context) error {
	<-s.release
	return nil
}

func TestCancelDuringAcquisitionWins(t *testing.T) {
	src := &blockingOpenSource{release: make(chan struct{})}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	started := make(chan error, 1)
	go func() { started <- scn.StartCapture(context.Background(), src) }()

	require.Eventually(t, func() bool { return scn.Phase() == PhaseAcquiring }, 2*time.Second, time.Millisecond)

	// The user stops the scan while the source is still opening. Once
	// the open completes, the cancel must not be overridden: no
	// scanning resumes and no capture handle survives.
	scn.Cancel()
	assert.Equal(t, PhaseIdle, scn.Phase())

	close(src.release)
	require.Error(t, <-started)
	assert.Equal(t, PhaseIdle, scn.Phase())

	require.Eventually(t, func() bool { return src.isClosed() }, 2*time.Second, time.Millisecond)
}

func TestResetDuringAcquisitionWins(t *testing.T) {
	src := &blockingOpenSource{release: make(chan struct{})}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	// Seed the failed state so Reset has something to act on, then race
	// it against a second acquisition.
	require.Error(t, scn.StartCapture(context.Background(), capture.NewFileSource("/does/not/exist.png")))
	require.Equal(t, PhaseFailed, scn.Phase())
	scn.Reset()

	started := make(chan error, 1)
	go func() { started <- scn.StartCapture(context.Background(), src) }()
	require.Eventually(t, func() bool { return scn.Phase() == PhaseAcquiring }, 2*time.Second, time.Millisecond)

	scn.Cancel()
	close(src.release)
	require.Error(t, <-started)
	assert.Equal(t, PhaseIdle, scn.Phase())
}

func TestStartCaptureRequiresIdle(t *testing.T) {
	src := &scriptSource{}
	scn := New(testSession(), &stubCompleter{}, testConfig(), logger.New("ERROR"))

	require.NoError(t, scn.StartCapture(context.Background(), src))
	assert.Error(t, scn.StartCapture(context.Background(), &scriptSource{}))
	scn.Cancel()
}
