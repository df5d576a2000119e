package models

import "time"

// WaitKind classifies why an execution is suspended.
type WaitKind string

const (
	WaitKindDelay         WaitKind = "delay"
	WaitKindReply         WaitKind = "reply"
	WaitKindExternalEvent WaitKind = "external_event"
	WaitKindConditionPoll WaitKind = "condition_poll"
	// WaitKindThrottle is a reputation-gate deferral: the send retries once
	// the gate's retry-after elapses. Deferral is not a failure.
	WaitKindThrottle WaitKind = "throttle"
)

// Timed reports whether the wait resumes on a clock signal rather than an
// external event.
func (k WaitKind) Timed() bool {
	return k == WaitKindDelay || k == WaitKindThrottle || k == WaitKindConditionPoll
}

// EventMatch is the signature an inbound event must carry to resume a
// reply/external-event wait. An empty field matches anything.
type EventMatch struct {
	EventType      TriggerType `json:"event_type"`
	LeadID         string      `json:"lead_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Channel        string      `json:"channel,omitempty"`
}

// WaitState is the durable record of one suspended node awaiting a timer or
// external event. Exactly one un-resumed wait exists per suspended node per
// execution; a resumed wait is never reused.
type WaitState struct {
	ID          string      `json:"id"`
	ExecutionID string      `json:"execution_id"`
	TenantID    string      `json:"tenant_id"`
	NodeID      string      `json:"node_id"`
	Kind        WaitKind    `json:"kind"`
	ResumeAt    *time.Time  `json:"resume_at,omitempty"`
	Match       *EventMatch `json:"match,omitempty"`
	Resumed     bool        `json:"resumed"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Matches reports whether the given inbound event satisfies this wait's
// signature.
func (w *WaitState) Matches(event *Event) bool {
	if w.Match == nil {
		return false
	}

	if w.Match.EventType != "" && w.Match.EventType != event.Type {
		return false
	}

	if w.Match.LeadID != "" && w.Match.LeadID != event.LeadID {
		return false
	}

	if w.Match.ConversationID != "" && event.ConversationID != "" &&
		w.Match.ConversationID != event.ConversationID {
		return false
	}

	if w.Match.Channel != "" {
		channel, _ := event.Payload["channel"].(string)
		if channel != "" && channel != w.Match.Channel {
			return false
		}
	}

	return true
}
