package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"lifi-chat-service/internal/models"
)

// State is the lifecycle of a ConversationChannel.
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateNoSession
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateNoSession:
		return "no_session"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ChannelUpdate is one published state of a conversation: the capped message
// window, session identity and the recipient's profile. Err carries the most
// recent subscription or write failure; earlier data is preserved.
type ChannelUpdate struct {
	SessionID string
	Exists    bool
	Messages  []models.Message
	Recipient models.UserProfile
	Err       error
}

type channelCtrl struct {
	sessionID string
	exists    bool
	err       error
}

// ConversationChannel represents one two-party conversation: it resolves the
// underlying session, streams its messages in timestamp order and appends new
// ones. At most one message subscription is ever active.
type ConversationChannel struct {
	source  Source
	updates chan ChannelUpdate

	ctx    context.Context
	cancel context.CancelFunc
	ctrl   chan channelCtrl
	msgCh  chan MessageSnapshot
	profCh chan ProfileSnapshot

	loopDone   chan struct{}
	forwarders sync.WaitGroup

	mu            sync.Mutex
	state         State
	sessionID     string
	currentUserID string
	otherUserID   string
	msgStream     MessageStream
	profStream    ProfileStream

	closeOnce sync.Once
}

// NewConversationChannel constructs a channel over the given source. The
// channel is inert until Open is called.
func NewConversationChannel(source Source) *ConversationChannel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &ConversationChannel{
		source:   source,
		updates:  make(chan ChannelUpdate, 1),
		ctx:      ctx,
		cancel:   cancel,
		ctrl:     make(chan channelCtrl, 4),
		msgCh:    make(chan MessageSnapshot),
		profCh:   make(chan ProfileSnapshot),
		loopDone: make(chan struct{}),
	}
	go c.run()
	return c
}

// Updates returns the channel of published conversation states. It is closed
// by Close; no update is ever delivered after Close returns.
func (c *ConversationChannel) Updates() <-chan ChannelUpdate {
	return c.updates
}

// State reports the current lifecycle state.
func (c *ConversationChannel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID reports the resolved session id, empty until one exists.
func (c *ConversationChannel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *ConversationChannel) recipientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.otherUserID
}

// Open resolves the session for the unordered pair (currentUserID,
// otherUserID) and subscribes to its messages. Calling Open again re-resolves:
// if the session id is unchanged the existing message subscription is kept,
// otherwise it is replaced. When no session exists yet the channel publishes
// Exists=false and no message subscription is opened.
func (c *ConversationChannel) Open(ctx context.Context, currentUserID, otherUserID string) error {
	if currentUserID == "" || otherUserID == "" {
		return ErrInvalidParticipants
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = StateResolving
	c.currentUserID = currentUserID
	if c.otherUserID != otherUserID {
		if c.profStream != nil {
			c.profStream.Close()
			c.profStream = nil
		}
		c.otherUserID = otherUserID
	}
	if c.profStream == nil {
		c.profStream = c.source.WatchProfile(otherUserID)
		c.forwarders.Add(1)
		go c.forwardProfiles(c.profStream)
	}
	c.mu.Unlock()

	user1, user2 := CanonicalPair(currentUserID, otherUserID)
	session, err := c.source.FindSessionByPair(ctx, user1, user2)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		log.Printf("conversation channel: session lookup for (%s, %s) failed: %v", user1, user2, err)
		wrapped := fmt.Errorf("%w: %v", ErrSessionLookupFailed, err)
		c.sendCtrl(channelCtrl{err: wrapped})
		return wrapped
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}

	if errors.Is(err, ErrSessionNotFound) {
		if c.msgStream != nil {
			c.msgStream.Close()
			c.msgStream = nil
		}
		c.state = StateNoSession
		c.sessionID = ""
		c.sendCtrl(channelCtrl{exists: false})
		return nil
	}

	if c.msgStream != nil && c.sessionID == session.ID {
		// Same session resolved again: the live subscription stays.
		c.state = StateActive
		c.sendCtrl(channelCtrl{sessionID: session.ID, exists: true})
		return nil
	}
	if c.msgStream != nil {
		c.msgStream.Close()
	}
	c.sessionID = session.ID
	c.state = StateActive
	c.msgStream = c.source.WatchMessages(session.ID, MessageWindow)
	c.forwarders.Add(1)
	go c.forwardMessages(c.msgStream)
	c.sendCtrl(channelCtrl{sessionID: session.ID, exists: true})
	return nil
}

// Send appends a message to the active session and then refreshes the
// session's last-message summary. Empty content (after trimming) and sends
// without an active session are silent no-ops. The two writes are sequential,
// not atomic: if the summary write fails the message is still persisted and
// the summary is left stale.
func (c *ConversationChannel) Send(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	c.mu.Lock()
	if c.state != StateActive || c.sessionID == "" {
		c.mu.Unlock()
		return nil
	}
	sessionID := c.sessionID
	fromUserID := c.currentUserID
	c.mu.Unlock()

	if _, err := c.source.AppendMessage(ctx, sessionID, fromUserID, trimmed); err != nil {
		log.Printf("conversation channel: send to session %s failed: %v", sessionID, err)
		wrapped := fmt.Errorf("%w: %v", ErrSendFailed, err)
		c.sendCtrl(channelCtrl{sessionID: sessionID, exists: true, err: wrapped})
		return wrapped
	}

	if err := c.source.UpdateSessionSummary(ctx, sessionID, trimmed); err != nil {
		// The message is authoritative and already persisted; a stale summary
		// is an accepted eventual-consistency gap.
		log.Printf("conversation channel: summary update for session %s failed: %v", sessionID, err)
	}
	return nil
}

// Close cancels the message and profile subscriptions and closes the update
// channel. Idempotent; no update is delivered after Close returns.
func (c *ConversationChannel) Close() {
	c.mu.Lock()
	alreadyClosed := c.state == StateClosed
	c.state = StateClosed
	msgStream, profStream := c.msgStream, c.profStream
	c.msgStream = nil
	c.profStream = nil
	c.mu.Unlock()

	if alreadyClosed {
		return
	}
	if msgStream != nil {
		msgStream.Close()
	}
	if profStream != nil {
		profStream.Close()
	}
	c.cancel()
	c.forwarders.Wait()
	<-c.loopDone
	c.closeOnce.Do(func() { close(c.updates) })
}

func (c *ConversationChannel) run() {
	defer close(c.loopDone)

	var (
		sessionID string
		exists    bool
		messages  []models.Message
		recipient models.UserProfile
	)

	emit := func(err error) {
		c.publish(ChannelUpdate{
			SessionID: sessionID,
			Exists:    exists,
			Messages:  cloneMessages(messages),
			Recipient: recipient,
			Err:       err,
		})
	}

	for {
		select {
		case <-c.ctx.Done():
			return

		case ctrl := <-c.ctrl:
			if ctrl.err != nil {
				emit(ctrl.err)
				continue
			}
			sessionID = ctrl.sessionID
			exists = ctrl.exists
			if !exists {
				messages = nil
			}
			emit(nil)

		case ms := <-c.msgCh:
			if ms.SessionID != c.SessionID() {
				// Delivery from a subscription that has been replaced.
				continue
			}
			if ms.Err != nil {
				log.Printf("conversation channel: message stream for session %s failed: %v", ms.SessionID, ms.Err)
				emit(fmt.Errorf("%w: %v", ErrMessageStreamFailed, ms.Err))
				continue
			}
			messages = ms.Messages
			emit(nil)

		case ps := <-c.profCh:
			if ps.UserID != c.recipientID() {
				// Delivery from a profile subscription that has been replaced.
				continue
			}
			recipient = resolveProfile(ps)
			emit(nil)
		}
	}
}

// publish delivers an update without blocking the event loop; an undrained
// previous update is replaced by the newer one.
func (c *ConversationChannel) publish(u ChannelUpdate) {
	for {
		select {
		case c.updates <- u:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *ConversationChannel) sendCtrl(ctrl channelCtrl) {
	select {
	case c.ctrl <- ctrl:
	case <-c.ctx.Done():
	}
}

func (c *ConversationChannel) forwardMessages(stream MessageStream) {
	defer c.forwarders.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ms, ok := <-stream.Snapshots():
			if !ok {
				return
			}
			select {
			case c.msgCh <- ms:
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *ConversationChannel) forwardProfiles(stream ProfileStream) {
	defer c.forwarders.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ps, ok := <-stream.Snapshots():
			if !ok {
				return
			}
			select {
			case c.profCh <- ps:
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func cloneMessages(in []models.Message) []models.Message {
	if in == nil {
		return nil
	}
	out := make([]models.Message, len(in))
	copy(out, in)
	return out
}
