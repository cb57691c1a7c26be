package observability

// WSEvent is the payload published for a websocket connection lifecycle
// transition on the directory and conversation endpoints.
type WSEvent struct {
	Kind       string `json:"kind"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	UserID     string `json:"user_id"`
	IP         string `json:"ip,omitempty"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// EventEnvelope is the wire shape published to the topic exchange.
type EventEnvelope struct {
	EventType string  `json:"event_type"`
	EventName string  `json:"event_name"`
	Payload   WSEvent `json:"payload"`
}

// NewWSEventEnvelope wraps a websocket event for publishing.
func NewWSEventEnvelope(event WSEvent) EventEnvelope {
	return EventEnvelope{
		EventType: "ws_events",
		EventName: event.Event,
		Payload:   event,
	}
}

// BuildHeaders carries request correlation ids into the message headers.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
