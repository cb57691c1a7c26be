package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lifi-chat-service/internal/chat"
	"lifi-chat-service/internal/models"
)

// FakeSource is an in-memory chat.Source for tests. Mutations push fresh
// snapshots to every open stream, mimicking a live document store. All
// timestamps come from an internal monotonic clock so orderings are
// deterministic.
type FakeSource struct {
	mu       sync.Mutex
	sessions map[string]models.ChatSession
	messages map[string][]models.Message
	profiles map[string]models.UserProfile

	sessionStreams map[int]*fakeSessionStream
	messageStreams map[int]*fakeMessageStream
	profileStreams map[int]*fakeProfileStream

	findErr    error
	appendErr  error
	summaryErr error

	clock  time.Time
	nextID int
}

func NewFakeSource() *FakeSource {
	return &FakeSource{
		sessions:       map[string]models.ChatSession{},
		messages:       map[string][]models.Message{},
		profiles:       map[string]models.UserProfile{},
		sessionStreams: map[int]*fakeSessionStream{},
		messageStreams: map[int]*fakeMessageStream{},
		profileStreams: map[int]*fakeProfileStream{},
		clock:          time.Unix(1700000000, 0).UTC(),
	}
}

func (f *FakeSource) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *FakeSource) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

// SetFindError makes FindSessionByPair fail until called with nil.
func (f *FakeSource) SetFindError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findErr = err
}

// SetAppendError makes AppendMessage fail until called with nil.
func (f *FakeSource) SetAppendError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendErr = err
}

// SetSummaryError makes UpdateSessionSummary fail until called with nil.
func (f *FakeSource) SetSummaryError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryErr = err
}

// SaveProfile stores a profile and wakes its watchers.
func (f *FakeSource) SaveProfile(profile models.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = profile
	f.notifyProfile(profile.UserID)
}

// DeleteProfile removes a profile and wakes its watchers, which then observe
// a missing document.
func (f *FakeSource) DeleteProfile(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.profiles, userID)
	f.notifyProfile(userID)
}

// ClearSessions drops every session and pushes empty snapshots to all session
// watchers.
func (f *FakeSource) ClearSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = map[string]models.ChatSession{}
	for _, s := range f.sessionStreams {
		s.push(f.sessionSnapshot(s.userID))
	}
}

// NotifySessions re-pushes the current snapshot to a user's session streams
// without mutating anything, like a spurious server wakeup.
func (f *FakeSource) NotifySessions(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessionStreams {
		if s.userID == userID {
			s.push(f.sessionSnapshot(userID))
		}
	}
}

// EmitSessionsError pushes an errored snapshot to a user's session streams.
func (f *FakeSource) EmitSessionsError(userID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessionStreams {
		if s.userID == userID {
			s.push(chat.SessionSnapshot{Err: err})
		}
	}
}

// MessageCount reports how many messages a session holds.
func (f *FakeSource) MessageCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[sessionID])
}

// ActiveSessionWatches reports open session streams for a user.
func (f *FakeSource) ActiveSessionWatches(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessionStreams {
		if s.userID == userID {
			n++
		}
	}
	return n
}

// ActiveMessageWatches reports open message streams for a session.
func (f *FakeSource) ActiveMessageWatches(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.messageStreams {
		if s.sessionID == sessionID {
			n++
		}
	}
	return n
}

// ActiveProfileWatches reports open profile streams for a user.
func (f *FakeSource) ActiveProfileWatches(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.profileStreams {
		if s.userID == userID {
			n++
		}
	}
	return n
}

func (f *FakeSource) WatchSessionsForUser(userID string) chat.SessionStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &fakeSessionStream{
		src:    f,
		key:    f.nextID,
		userID: userID,
		ch:     make(chan chat.SessionSnapshot, 64),
	}
	f.sessionStreams[s.key] = s
	s.push(f.sessionSnapshot(userID))
	return s
}

func (f *FakeSource) WatchMessages(sessionID string, limit int) chat.MessageStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &fakeMessageStream{
		src:       f,
		key:       f.nextID,
		sessionID: sessionID,
		limit:     limit,
		ch:        make(chan chat.MessageSnapshot, 64),
	}
	f.messageStreams[s.key] = s
	s.push(f.messageSnapshot(sessionID, limit))
	return s
}

func (f *FakeSource) WatchProfile(userID string) chat.ProfileStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &fakeProfileStream{
		src:    f,
		key:    f.nextID,
		userID: userID,
		ch:     make(chan chat.ProfileSnapshot, 64),
	}
	f.profileStreams[s.key] = s
	s.push(f.profileSnapshot(userID))
	return s
}

func (f *FakeSource) FindSessionByPair(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return models.ChatSession{}, f.findErr
	}
	for _, s := range f.sessions {
		if s.User1 == user1 && s.User2 == user2 {
			return s, nil
		}
	}
	return models.ChatSession{}, chat.ErrSessionNotFound
}

func (f *FakeSource) CreateOrGetSession(ctx context.Context, user1, user2 string) (models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.User1 == user1 && s.User2 == user2 {
			return s, nil
		}
	}
	now := f.tick()
	session := models.ChatSession{
		ID:            f.id("session-"),
		User1:         user1,
		User2:         user2,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	f.sessions[session.ID] = session
	f.notifySessions(user1, user2)
	return session, nil
}

func (f *FakeSource) AppendMessage(ctx context.Context, sessionID, fromUserID, content string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return models.Message{}, f.appendErr
	}
	msg := models.Message{
		ID:         f.id("message-"),
		SessionID:  sessionID,
		FromUserID: fromUserID,
		Content:    content,
		Timestamp:  f.tick(),
	}
	f.messages[sessionID] = append(f.messages[sessionID], msg)
	for _, s := range f.messageStreams {
		if s.sessionID == sessionID {
			s.push(f.messageSnapshot(sessionID, s.limit))
		}
	}
	return msg, nil
}

func (f *FakeSource) UpdateSessionSummary(ctx context.Context, sessionID, lastMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return f.summaryErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return chat.ErrSessionNotFound
	}
	session.LastMessageContent = lastMessage
	session.LastMessageAt = f.tick()
	f.sessions[sessionID] = session
	f.notifySessions(session.User1, session.User2)
	return nil
}

func (f *FakeSource) sessionSnapshot(userID string) chat.SessionSnapshot {
	var sessions []models.ChatSession
	for _, s := range f.sessions {
		if s.User1 == userID || s.User2 == userID {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastMessageAt.Equal(sessions[j].LastMessageAt) {
			return sessions[i].LastMessageAt.After(sessions[j].LastMessageAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return chat.SessionSnapshot{Sessions: sessions}
}

func (f *FakeSource) messageSnapshot(sessionID string, limit int) chat.MessageSnapshot {
	msgs := f.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return chat.MessageSnapshot{SessionID: sessionID, Messages: out}
}

func (f *FakeSource) profileSnapshot(userID string) chat.ProfileSnapshot {
	profile, found := f.profiles[userID]
	return chat.ProfileSnapshot{UserID: userID, Profile: profile, Found: found}
}

func (f *FakeSource) notifySessions(userIDs ...string) {
	for _, s := range f.sessionStreams {
		for _, u := range userIDs {
			if s.userID == u {
				s.push(f.sessionSnapshot(s.userID))
				break
			}
		}
	}
}

func (f *FakeSource) notifyProfile(userID string) {
	for _, s := range f.profileStreams {
		if s.userID == userID {
			s.push(f.profileSnapshot(userID))
		}
	}
}

type fakeSessionStream struct {
	src    *FakeSource
	key    int
	userID string
	ch     chan chat.SessionSnapshot
	once   sync.Once
}

func (s *fakeSessionStream) push(snap chat.SessionSnapshot) {
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *fakeSessionStream) Snapshots() <-chan chat.SessionSnapshot { return s.ch }

func (s *fakeSessionStream) Close() {
	s.once.Do(func() {
		s.src.mu.Lock()
		delete(s.src.sessionStreams, s.key)
		close(s.ch)
		s.src.mu.Unlock()
	})
}

type fakeMessageStream struct {
	src       *FakeSource
	key       int
	sessionID string
	limit     int
	ch        chan chat.MessageSnapshot
	once      sync.Once
}

func (s *fakeMessageStream) push(snap chat.MessageSnapshot) {
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *fakeMessageStream) Snapshots() <-chan chat.MessageSnapshot { return s.ch }

func (s *fakeMessageStream) Close() {
	s.once.Do(func() {
		s.src.mu.Lock()
		delete(s.src.messageStreams, s.key)
		close(s.ch)
		s.src.mu.Unlock()
	})
}

type fakeProfileStream struct {
	src    *FakeSource
	key    int
	userID string
	ch     chan chat.ProfileSnapshot
	once   sync.Once
}

func (s *fakeProfileStream) push(snap chat.ProfileSnapshot) {
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *fakeProfileStream) Snapshots() <-chan chat.ProfileSnapshot { return s.ch }

func (s *fakeProfileStream) Close() {
	s.once.Do(func() {
		s.src.mu.Lock()
		delete(s.src.profileStreams, s.key)
		close(s.ch)
		s.src.mu.Unlock()
	})
}

var _ chat.Source = (*FakeSource)(nil)
