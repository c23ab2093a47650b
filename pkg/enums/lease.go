package enums

import (
	"fmt"
	"strings"
)

// LeaseStatus is the lifecycle state shared by lease requests and invitations.
type LeaseStatus string

const (
	LeaseStatusPending  LeaseStatus = "pending"
	LeaseStatusAccepted LeaseStatus = "accepted"
	LeaseStatusRejected LeaseStatus = "rejected"
)

var validLeaseStatuses = []LeaseStatus{
	LeaseStatusPending,
	LeaseStatusAccepted,
	LeaseStatusRejected,
}

func (s LeaseStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LeaseStatus.
func (s LeaseStatus) IsValid() bool {
	for _, candidate := range validLeaseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s LeaseStatus) IsTerminal() bool {
	return s == LeaseStatusAccepted || s == LeaseStatusRejected
}

// ParseLeaseStatus converts raw input into a LeaseStatus.
func ParseLeaseStatus(value string) (LeaseStatus, error) {
	for _, candidate := range validLeaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lease status %q", value)
}

// LeaseAction is a recipient's decision on a pending record.
type LeaseAction string

const (
	LeaseActionAccept LeaseAction = "accept"
	LeaseActionReject LeaseAction = "reject"
)

var validLeaseActions = []LeaseAction{
	LeaseActionAccept,
	LeaseActionReject,
}

// IsValid reports whether the value is a known LeaseAction.
func (a LeaseAction) IsValid() bool {
	for _, candidate := range validLeaseActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// Target returns the status the action moves a pending record into.
func (a LeaseAction) Target() LeaseStatus {
	switch a {
	case LeaseActionAccept:
		return LeaseStatusAccepted
	case LeaseActionReject:
		return LeaseStatusRejected
	default:
		return ""
	}
}

// ParseLeaseAction converts raw input into a LeaseAction.
func ParseLeaseAction(value string) (LeaseAction, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validLeaseActions {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lease action %q", value)
}
