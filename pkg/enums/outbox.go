package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateListing      OutboxAggregateType = "listing"
	AggregateLeaseRequest OutboxAggregateType = "lease_request"
	AggregateInvitation   OutboxAggregateType = "invitation"
	AggregateUser         OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
	AggregateLeaseRequest,
	AggregateInvitation,
	AggregateUser,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventUserRegistered      OutboxEventType = "user_registered"
	EventListingCreated      OutboxEventType = "listing_created"
	EventLeaseRequestCreated OutboxEventType = "lease_request_created"
	EventLeaseRequestDecided OutboxEventType = "lease_request_decided"
	EventInvitationCreated   OutboxEventType = "invitation_created"
	EventInvitationDecided   OutboxEventType = "invitation_decided"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUserRegistered,
	EventListingCreated,
	EventLeaseRequestCreated,
	EventLeaseRequestDecided,
	EventInvitationCreated,
	EventInvitationDecided,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means every retry failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the event can never be routed.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains([]OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}, r)
}
