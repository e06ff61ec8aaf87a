package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload indicates scanned content that is not a valid
// verification payload (not JSON, or missing one of the three fields)
var ErrMalformedPayload = errors.New("malformed scan payload")

// ScanPayload is the wire format carried inside the QR code. Field names
// must round-trip through JSON text exactly as written here, since the
// seller's display and the buyer's scanner interoperate through them.
type ScanPayload struct {
	TransactionID    string `json:"transactionId"`
	VerificationCode string `json:"verificationCode"`
	SellerID         string `json:"sellerId"`
}

// EncodePayload produces the QR text for a session. Generation is local;
// the session already holds all three fields.
func EncodePayload(s *Session) (string, error) {
	payload := ScanPayload{
		TransactionID:    s.TransactionID,
		VerificationCode: s.VerificationCode,
		SellerID:         s.SellerID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses scanned text into a ScanPayload. Any content that
// is not a JSON object carrying all three fields is malformed.
func DecodePayload(text string) (*ScanPayload, error) {
	var payload ScanPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.TransactionID == "" || payload.VerificationCode == "" || payload.SellerID == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformedPayload)
	}
	return &payload, nil
}

// Matches reports whether the payload proves the handover for the session.
// All three fields must be exactly equal; a partial match is a mismatch.
func (p *ScanPayload) Matches(s *Session) bool {
	return p.TransactionID == s.TransactionID &&
		p.VerificationCode == s.VerificationCode &&
		p.SellerID == s.SellerID
}
