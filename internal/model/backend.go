package model

import "time"

// TransactionResponse is the backend response for fetching a transaction
type TransactionResponse struct {
	Success     bool               `json:"success"`
	Transaction *TransactionRecord `json:"transaction,omitempty"`
}

// TransactionRecord is the transaction as the backend returns it
type TransactionRecord struct {
	TransactionID    string    `json:"transactionId"`
	VerificationCode string    `json:"verificationCode"`
	SellerID         string    `json:"sellerId"`
	BuyerID          string    `json:"buyerId"`
	SellerName       string    `json:"sellerName"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Session converts the backend record into the in-memory session
func (t *TransactionRecord) Session() *Session {
	return &Session{
		TransactionID:    t.TransactionID,
		VerificationCode: t.VerificationCode,
		SellerID:         t.SellerID,
		BuyerID:          t.BuyerID,
		SellerName:       t.SellerName,
		CreatedAt:        t.CreatedAt,
	}
}

// CompleteResponse is the backend response for marking a transaction complete
type CompleteResponse struct {
	Success bool `json:"success"`
}

// RatingResponse is the backend response for submitting a rating
type RatingResponse struct {
	Success bool `json:"success"`
}
