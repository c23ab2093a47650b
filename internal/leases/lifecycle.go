// Package leases owns lease requests and invitations: creation rules, the
// recipient-only pending to terminal transition, and the per-viewer actions
// list views render.
package leases

import (
	"errors"

	"github.com/agrolease/agrolease-backend/pkg/enums"
)

// Kind says which side initiated a lease record.
type Kind string

const (
	// KindRequest is started by a tenant and decided by the landlord.
	KindRequest Kind = "request"
	// KindInvitation is started by a landlord and decided by the tenant.
	KindInvitation Kind = "invitation"
)

// Side is a user's relation to one lease record.
type Side int

const (
	SideNone Side = iota
	SideLandlord
	SideTenant
)

// Affordance is an action a view may offer for a record.
type Affordance string

const (
	AffordanceAccept            Affordance = "accept"
	AffordanceReject            Affordance = "reject"
	AffordanceGenerateAgreement Affordance = "generate_agreement"
	AffordanceContact           Affordance = "contact"
)

var (
	ErrNotRecipient         = errors.New("only the recipient may decide")
	ErrStaleTransition      = errors.New("record is no longer pending")
	ErrInvalidAction        = errors.New("unknown lease action")
	ErrConfirmationRequired = errors.New("decision must be confirmed")
	ErrSelfAction           = errors.New("cannot act on your own resource")
	ErrDuplicateRequest     = errors.New("land already requested by this tenant")
)

// Recipient returns the side allowed to decide records of this kind.
func (k Kind) Recipient() Side {
	switch k {
	case KindRequest:
		return SideLandlord
	case KindInvitation:
		return SideTenant
	default:
		return SideNone
	}
}

// SideOf places userID on a record with the given parties.
func SideOf(userID, landlordID, tenantID string) Side {
	switch {
	case userID == "":
		return SideNone
	case userID == landlordID:
		return SideLandlord
	case userID == tenantID:
		return SideTenant
	default:
		return SideNone
	}
}

// Transition computes the status a record moves to when actor applies action.
// It performs no I/O.
func Transition(kind Kind, current enums.LeaseStatus, action enums.LeaseAction, actor Side) (enums.LeaseStatus, error) {
	if actor == SideNone || actor != kind.Recipient() {
		return current, ErrNotRecipient
	}
	if !action.IsValid() {
		return current, ErrInvalidAction
	}
	if current != enums.LeaseStatusPending {
		return current, ErrStaleTransition
	}
	return action.Target(), nil
}

// Affordances lists what viewer may do with a record in status.
func Affordances(kind Kind, status enums.LeaseStatus, viewer Side) []Affordance {
	if viewer == SideNone {
		return []Affordance{}
	}
	recipient := viewer == kind.Recipient()
	switch status {
	case enums.LeaseStatusPending:
		if recipient {
			return []Affordance{AffordanceAccept, AffordanceReject}
		}
	case enums.LeaseStatusAccepted:
		if recipient {
			return []Affordance{AffordanceGenerateAgreement, AffordanceContact}
		}
		return []Affordance{AffordanceContact}
	}
	return []Affordance{}
}
