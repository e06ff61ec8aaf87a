package model

import "time"

// Role identifies which side of the handover the viewer is on
type Role int

const (
	// RoleNone means the viewer is neither counterparty
	RoleNone Role = iota
	// RoleSeller means the viewer is the seller presenting the code
	RoleSeller
	// RoleBuyer means the viewer is the buyer scanning the code
	RoleBuyer
)

// String returns the role name for logging
func (r Role) String() string {
	switch r {
	case RoleSeller:
		return "seller"
	case RoleBuyer:
		return "buyer"
	default:
		return "none"
	}
}

// Session is the in-memory view of one transaction for the current viewer.
// It is built once by the loader and never mutated afterwards; the backend
// owns all durable transaction state.
type Session struct {
	TransactionID    string
	VerificationCode string
	SellerID         string
	BuyerID          string
	SellerName       string
	CreatedAt        time.Time
}

// RoleOf determines the viewer role by identity comparison. A session is
// always exactly one role: seller, buyer, or none (unauthorized).
func (s *Session) RoleOf(userID string) Role {
	switch userID {
	case s.SellerID:
		return RoleSeller
	case s.BuyerID:
		return RoleBuyer
	default:
		return RoleNone
	}
}

// CounterpartyID returns the other party's identifier for the given viewer
func (s *Session) CounterpartyID(userID string) string {
	if userID == s.SellerID {
		return s.BuyerID
	}
	return s.SellerID
}
