package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeAndNotify(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(SessionsTopic("alice"))
	defer cancel()

	hub.Notify(SessionsTopic("alice"))

	select {
	case <-ch:
	default:
		t.Fatal("expected a tick")
	}
}

func TestNotifyCoalesces(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("topic")
	defer cancel()

	hub.Notify("topic")
	hub.Notify("topic")
	hub.Notify("topic")

	<-ch
	select {
	case <-ch:
		t.Fatal("ticks should coalesce into one")
	default:
	}
}

func TestNotifyOnlyWakesMatchingTopic(t *testing.T) {
	hub := NewHub()
	sessions, cancelSessions := hub.Subscribe(SessionsTopic("alice"))
	defer cancelSessions()
	messages, cancelMessages := hub.Subscribe(MessagesTopic("s1"))
	defer cancelMessages()

	hub.Notify(MessagesTopic("s1"))

	select {
	case <-sessions:
		t.Fatal("sessions subscriber should not have been woken")
	default:
	}
	select {
	case <-messages:
	default:
		t.Fatal("messages subscriber should have been woken")
	}
}

func TestCancelIdempotent(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("topic")
	assert.Equal(t, 1, hub.SubscriberCount("topic"))

	cancel()
	cancel()
	assert.Equal(t, 0, hub.SubscriberCount("topic"))

	// Notifying a topic with no subscribers is a no-op.
	hub.Notify("topic")
}

func TestMultipleSubscribers(t *testing.T) {
	hub := NewHub()
	first, cancelFirst := hub.Subscribe("topic")
	second, cancelSecond := hub.Subscribe("topic")
	defer cancelFirst()
	defer cancelSecond()

	assert.Equal(t, 2, hub.SubscriberCount("topic"))
	hub.Notify("topic")

	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		default:
			t.Fatal("every subscriber gets the tick")
		}
	}
}

func TestTopicKeys(t *testing.T) {
	assert.Equal(t, "sessions:alice", SessionsTopic("alice"))
	assert.Equal(t, "messages:s1", MessagesTopic("s1"))
	assert.Equal(t, "profile:bob", ProfileTopic("bob"))
}
