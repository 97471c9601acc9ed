package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType names the entity an outbox row belongs to.
type OutboxAggregateType string

const AggregateReport OutboxAggregateType = "report"

func (a OutboxAggregateType) String() string { return string(a) }

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateReport
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is stored with each outbox row and travels as the
// event_type message attribute.
type OutboxEventType string

const (
	EventReportCreated       OutboxEventType = "report.created"
	EventReportStatusChanged OutboxEventType = "report.status_changed"
	EventReportAssigned      OutboxEventType = "report.assigned"
)

// OutboxEventTypes lists every event the API emits.
var OutboxEventTypes = []OutboxEventType{
	EventReportCreated,
	EventReportStatusChanged,
	EventReportAssigned,
}

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(OutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why an outbox row left the retry loop.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
