// Package live composes the persistence layer with the change-notification
// hub into the document-store capability the chat core consumes: writes
// notify per-topic subscribers, watchers re-query and emit fresh snapshots.
package live

import (
	"context"
	"errors"
	"sync"

	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/models"
	"lifi-chat-service/internal/repositories"
	"lifi-chat-service/internal/watch"
)

// Store implements chat.Source plus the one-shot read surface the HTTP
// handlers use.
type Store struct {
	sessions repositories.SessionRepository
	messages repositories.MessageRepository
	profiles repositories.ProfileRepository
	hub      *watch.Hub
}

// NewStore constructs a Store.
func NewStore(sessions repositories.SessionRepository, messages repositories.MessageRepository, profiles repositories.ProfileRepository, hub *watch.Hub) *Store {
	return &Store{sessions: sessions, messages: messages, profiles: profiles, hub: hub}
}

var _ chat.Source = (*Store)(nil)

// FindSessionByPair resolves an existing session for a canonical pair.
func (s *Store) FindSessionByPair(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	session, err := s.sessions.FindByPair(ctx, user1, user2)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.ChatSession{}, chat.ErrSessionNotFound
	}
	return session, err
}

// CreateOrGetSession creates the session for a canonical pair if absent and
// wakes both participants' session watchers.
func (s *Store) CreateOrGetSession(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	session, err := s.sessions.CreateOrGet(ctx, user1, user2)
	if err != nil {
		return models.ChatSession{}, err
	}
	s.hub.Notify(watch.SessionsTopic(session.User1))
	s.hub.Notify(watch.SessionsTopic(session.User2))
	return session, nil
}

// AppendMessage stores a message with a server-assigned timestamp and wakes
// the session's message watchers.
func (s *Store) AppendMessage(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error) {
	msg, err := s.messages.Append(ctx, sessionID, fromUserID, content)
	if err != nil {
		return models.Message{}, err
	}
	s.hub.Notify(watch.MessagesTopic(sessionID))
	return msg, nil
}

// UpdateSessionSummary refreshes the denormalized last-message fields and
// wakes both participants' session watchers so list ordering is recomputed.
func (s *Store) UpdateSessionSummary(ctx context.Context, sessionID, lastMessage string) error {
	session, err := s.sessions.UpdateSummary(ctx, sessionID, lastMessage)
	if err != nil {
		return err
	}
	s.hub.Notify(watch.SessionsTopic(session.User1))
	s.hub.Notify(watch.SessionsTopic(session.User2))
	return nil
}

// ListSessionsForUser returns the user's sessions, most recent first.
func (s *Store) ListSessionsForUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	return s.sessions.ListForUser(ctx, userID)
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (models.ChatSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// IsParticipant checks session membership.
func (s *Store) IsParticipant(ctx context.Context, sessionID, userID string) (bool, error) {
	return s.sessions.IsParticipant(ctx, sessionID, userID)
}

// ListMessages returns the capped ascending message window of a session.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	return s.messages.ListRecent(ctx, sessionID, limit)
}

// Profiles bulk-fetches user display metadata.
func (s *Store) Profiles(ctx context.Context, userIDs []string) ([]models.UserProfile, error) {
	return s.profiles.Bulk(ctx, userIDs)
}

// SaveProfile upserts a profile and wakes its watchers.
func (s *Store) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return err
	}
	s.hub.Notify(watch.ProfileTopic(profile.UserID))
	return nil
}

// WatchSessionsForUser opens a continuous subscription to the user's session
// list. An initial snapshot is emitted immediately; each write notification
// triggers a re-query.
func (s *Store) WatchSessionsForUser(userID string) chat.SessionStream {
	stream := newSessionStream()
	ticks, cancelTicks := s.hub.Subscribe(watch.SessionsTopic(userID))
	stream.onClose = cancelTicks

	go func() {
		defer close(stream.ch)
		emit := func() bool {
			sessions, err := s.sessions.ListForUser(stream.ctx, userID)
			snap := chat.SessionSnapshot{Sessions: sessions}
			if err != nil {
				snap = chat.SessionSnapshot{Err: err}
			}
			select {
			case stream.ch <- snap:
				return true
			case <-stream.ctx.Done():
				return false
			}
		}
		if !emit() {
			return
		}
		for {
			select {
			case <-stream.ctx.Done():
				return
			case <-ticks:
				if !emit() {
					return
				}
			}
		}
	}()
	return stream
}

// WatchMessages opens a continuous subscription to a session's capped message
// window.
func (s *Store) WatchMessages(sessionID string, limit int) chat.MessageStream {
	stream := newMessageStream()
	ticks, cancelTicks := s.hub.Subscribe(watch.MessagesTopic(sessionID))
	stream.onClose = cancelTicks

	go func() {
		defer close(stream.ch)
		emit := func() bool {
			msgs, err := s.messages.ListRecent(stream.ctx, sessionID, limit)
			snap := chat.MessageSnapshot{SessionID: sessionID, Messages: msgs}
			if err != nil {
				snap = chat.MessageSnapshot{SessionID: sessionID, Err: err}
			}
			select {
			case stream.ch <- snap:
				return true
			case <-stream.ctx.Done():
				return false
			}
		}
		if !emit() {
			return
		}
		for {
			select {
			case <-stream.ctx.Done():
				return
			case <-ticks:
				if !emit() {
					return
				}
			}
		}
	}()
	return stream
}

// WatchProfile opens a continuous subscription to one user's profile.
func (s *Store) WatchProfile(userID string) chat.ProfileStream {
	stream := newProfileStream()
	ticks, cancelTicks := s.hub.Subscribe(watch.ProfileTopic(userID))
	stream.onClose = cancelTicks

	go func() {
		defer close(stream.ch)
		emit := func() bool {
			snap := chat.ProfileSnapshot{UserID: userID}
			profile, err := s.profiles.Get(stream.ctx, userID)
			switch {
			case errors.Is(err, repositories.ErrProfileNotFound):
				// Found stays false; the consumer degrades to placeholders.
			case err != nil:
				snap.Err = err
			default:
				snap.Profile = profile
				snap.Found = true
			}
			select {
			case stream.ch <- snap:
				return true
			case <-stream.ctx.Done():
				return false
			}
		}
		if !emit() {
			return
		}
		for {
			select {
			case <-stream.ctx.Done():
				return
			case <-ticks:
				if !emit() {
					return
				}
			}
		}
	}()
	return stream
}

type streamBase struct {
	ctx       context.Context
	cancel    context.CancelFunc
	onClose   func()
	closeOnce sync.Once
}

func newStreamBase() streamBase {
	ctx, cancel := context.WithCancel(context.Background())
	return streamBase{ctx: ctx, cancel: cancel}
}

// Close cancels the subscription; the snapshot channel is closed once the
// producer goroutine observes the cancellation. Idempotent.
func (b *streamBase) Close() {
	b.closeOnce.Do(func() {
		if b.onClose != nil {
			b.onClose()
		}
		b.cancel()
	})
}

type sessionStream struct {
	streamBase
	ch chan chat.SessionSnapshot
}

func newSessionStream() *sessionStream {
	return &sessionStream{streamBase: newStreamBase(), ch: make(chan chat.SessionSnapshot, 1)}
}

func (s *sessionStream) Snapshots() <-chan chat.SessionSnapshot { return s.ch }

type messageStream struct {
	streamBase
	ch chan chat.MessageSnapshot
}

func newMessageStream() *messageStream {
	return &messageStream{streamBase: newStreamBase(), ch: make(chan chat.MessageSnapshot, 1)}
}

func (s *messageStream) Snapshots() <-chan chat.MessageSnapshot { return s.ch }

type profileStream struct {
	streamBase
	ch chan chat.ProfileSnapshot
}

func newProfileStream() *profileStream {
	return &profileStream{streamBase: newStreamBase(), ch: make(chan chat.ProfileSnapshot, 1)}
}

func (s *profileStream) Snapshots() <-chan chat.ProfileSnapshot { return s.ch }
