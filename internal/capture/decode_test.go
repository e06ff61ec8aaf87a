package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQR(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "code.png")
	require.NoError(t, qrcode.WriteFile(text, qrcode.Medium, 512, path))
	return path
}

func TestDecodeImageFileRoundTrip(t *testing.T) {
	payload := `{"transactionId":"T1","verificationCode":"V1","sellerId":"S1"}`
	path := writeQR(t, payload)

	text, err := DecodeImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, text)
}

func TestDecodeImageFileMissing(t *testing.T) {
	_, err := DecodeImageFile(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDecodeImageFileNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	_, err := DecodeImageFile(path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFileSourceYieldsOnce(t *testing.T) {
	path := writeQR(t, "payload-text")
	src := NewFileSource(path)

	require.NoError(t, src.Open(context.Background()))
	defer src.Close()

	text, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "payload-text", text)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestFileSourceOpenMissing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, src.Open(context.Background()), ErrDeviceNotFound)
}

func TestSpoolSourcePicksUpNewFrames(t *testing.T) {
	dir := t.TempDir()
	src := NewSpoolSource(dir)
	require.NoError(t, src.Open(context.Background()))
	defer src.Close()

	// Empty spool is steady state, not an error
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)

	framePath := filepath.Join(dir, "frame-001.png")
	require.NoError(t, qrcode.WriteFile("spool-payload", qrcode.Medium, 512, framePath))

	text, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "spool-payload", text)

	// Each frame is attempted once
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestSpoolSourceSkipsUndecodableFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.png"), []byte("junk"), 0644))
	require.NoError(t, qrcode.WriteFile("good-payload", qrcode.Medium, 512, filepath.Join(dir, "z-good.png")))

	src := NewSpoolSource(dir)
	require.NoError(t, src.Open(context.Background()))
	defer src.Close()

	text, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good-payload", text)
}

func TestSpoolSourceOpenMissingDir(t *testing.T) {
	src := NewSpoolSource(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, src.Open(context.Background()), ErrDeviceNotFound)
}
