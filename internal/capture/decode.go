package capture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// DecodeImageFile decodes the QR code in a still image file
func DecodeImageFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", classifyOpenError(err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	return DecodeImage(img)
}

// DecodeImage decodes the QR code in an image. A frame without a readable
// code yields ErrNoFrame.
func DecodeImage(img image.Image) (string, error) {
	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to prepare frame: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bitmap, nil)
	if err != nil {
		return "", ErrNoFrame
	}

	return result.GetText(), nil
}

// classifyOpenError maps filesystem errors onto the capture taxonomy
func classifyOpenError(err error) error {
	switch {
	case os.IsPermission(err):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	default:
		return fmt.Errorf("failed to open capture source: %w", err)
	}
}
