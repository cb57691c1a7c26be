package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"lifi-chat-service/internal/observability"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func publishWSEvent(ctx context.Context, kind, event, reason string, info ConnInfo) {
	observability.IncWSEvent(kind, event)
	envelope := observability.NewWSEventEnvelope(observability.WSEvent{
		Kind:       kind,
		Event:      event,
		ConnID:     info.ConnID,
		UserID:     info.UserID,
		IP:         info.IP,
		Reason:     reason,
		DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
	})
	_ = observability.PublishEvent(ctx, "ws_events."+kind, envelope, observability.BuildHeaders(info.RequestID, info.TraceID))
}
