package chat

import (
	"context"
	"fmt"
	"log"
	"sync"

	"lifi-chat-service/internal/models"
)

// Placeholder recipient names used while profile data is still in flight or
// could not be loaded.
const (
	placeholderName = "Loading..."
	unknownName     = "Unknown"
	unknownSurname  = "User"
)

// DirectoryUpdate is one published state of the session list. On a failed
// session subscription Err is set and Sessions preserves the last good list.
type DirectoryUpdate struct {
	Sessions []models.SessionSummary
	Err      error
}

// SessionDirectory maintains the live, most-recent-first list of chat
// sessions a user participates in, each joined with the other participant's
// profile. Updates are delivered on a single channel; the consumer owns the
// pace, stale updates are coalesced.
type SessionDirectory struct {
	source  Source
	updates chan DirectoryUpdate

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool

	closeOnce sync.Once
}

// NewSessionDirectory constructs a directory over the given source.
func NewSessionDirectory(source Source) *SessionDirectory {
	return &SessionDirectory{
		source:  source,
		updates: make(chan DirectoryUpdate, 1),
	}
}

// Updates returns the channel of published session lists. It is closed by
// Stop; no update is ever delivered after Stop returns.
func (d *SessionDirectory) Updates() <-chan DirectoryUpdate {
	return d.updates
}

// Start opens the continuous subscription to all sessions containing
// currentUserID. Calling Start again replaces any previous subscription; at
// most one is active per directory.
func (d *SessionDirectory) Start(currentUserID string) error {
	if currentUserID == "" {
		return ErrNotAuthenticated
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrClosed
	}
	if d.cancel != nil {
		d.cancel()
		<-d.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	go d.run(ctx, currentUserID, done)
	return nil
}

// Stop cancels the session subscription and every per-user profile
// subscription, then closes the update channel. Idempotent.
func (d *SessionDirectory) Stop() {
	d.mu.Lock()
	d.stopped = true
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	d.closeOnce.Do(func() { close(d.updates) })
}

func (d *SessionDirectory) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)

	stream := d.source.WatchSessionsForUser(userID)
	defer stream.Close()

	var forwarders sync.WaitGroup
	defer forwarders.Wait()

	watches := make(map[string]ProfileStream)
	defer func() {
		for _, w := range watches {
			w.Close()
		}
	}()

	profileCh := make(chan ProfileSnapshot)
	profiles := make(map[string]models.UserProfile)
	var current []models.SessionSummary
	published := false

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-stream.Snapshots():
			if !ok {
				return
			}
			if snap.Err != nil {
				log.Printf("session directory: subscription error for user %s: %v", userID, snap.Err)
				d.publish(DirectoryUpdate{
					Sessions: cloneSummaries(current),
					Err:      fmt.Errorf("%w: %v", ErrDirectoryUnavailable, snap.Err),
				})
				continue
			}

			next := buildSummaries(snap.Sessions, userID, profiles)
			if !published || !sameSummaryList(next, current) {
				current = next
				published = true
				d.publish(DirectoryUpdate{Sessions: cloneSummaries(current)})
			} else {
				current = next
			}

			desired := make(map[string]struct{}, len(current))
			for _, s := range current {
				desired[s.OtherUserID] = struct{}{}
			}
			active := make(map[string]struct{}, len(watches))
			for id := range watches {
				active[id] = struct{}{}
			}
			add, remove := reconcileKeys(desired, active)
			for _, id := range remove {
				watches[id].Close()
				delete(watches, id)
				delete(profiles, id)
			}
			for _, id := range add {
				w := d.source.WatchProfile(id)
				watches[id] = w
				forwarders.Add(1)
				go forwardProfiles(ctx, w, profileCh, &forwarders)
			}

		case ps := <-profileCh:
			profile := resolveProfile(ps)
			profiles[ps.UserID] = profile

			changed := false
			for i := range current {
				if current[i].OtherUserID != ps.UserID {
					continue
				}
				if current[i].OtherName != profile.Name ||
					current[i].OtherSurname != profile.Surname ||
					current[i].OtherProfileImage != profile.ProfileImage {
					current[i].OtherName = profile.Name
					current[i].OtherSurname = profile.Surname
					current[i].OtherProfileImage = profile.ProfileImage
					changed = true
				}
			}
			if changed {
				d.publish(DirectoryUpdate{Sessions: cloneSummaries(current)})
			}
		}
	}
}

// publish delivers an update without ever blocking the event loop: if the
// consumer has not drained the previous update it is replaced by the newer one.
func (d *SessionDirectory) publish(u DirectoryUpdate) {
	for {
		select {
		case d.updates <- u:
			return
		default:
		}
		select {
		case <-d.updates:
		default:
		}
	}
}

func forwardProfiles(ctx context.Context, w ProfileStream, out chan<- ProfileSnapshot, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ps, ok := <-w.Snapshots():
			if !ok {
				return
			}
			select {
			case out <- ps:
			case <-ctx.Done():
				return
			}
		}
	}
}

// buildSummaries projects a session snapshot into the view-facing list.
// Sessions with malformed participant data are skipped; partial results are
// acceptable. Profile fields come from the cache when available and fall back
// to placeholders so the list is never blocked on secondary lookups.
func buildSummaries(sessions []models.ChatSession, userID string, profiles map[string]models.UserProfile) []models.SessionSummary {
	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		other, ok := s.Other(userID)
		if !ok {
			log.Printf("session directory: skipping session %s: malformed participants", s.ID)
			continue
		}
		summary := models.SessionSummary{
			SessionID:          s.ID,
			OtherUserID:        other,
			OtherName:          placeholderName,
			LastMessageContent: s.LastMessageContent,
			LastMessageAt:      s.LastMessageAt,
		}
		if p, ok := profiles[other]; ok {
			summary.OtherName = p.Name
			summary.OtherSurname = p.Surname
			summary.OtherProfileImage = p.ProfileImage
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// resolveProfile degrades failed or missing profile lookups to placeholder
// values instead of failing the whole directory.
func resolveProfile(ps ProfileSnapshot) models.UserProfile {
	if ps.Err != nil {
		log.Printf("session directory: profile lookup for %s failed: %v", ps.UserID, ps.Err)
		return models.UserProfile{UserID: ps.UserID, Name: unknownName}
	}
	if !ps.Found {
		return models.UserProfile{UserID: ps.UserID, Name: unknownName, Surname: unknownSurname}
	}
	return ps.Profile
}

// sameSummaryList reports whether two lists are identical for diffing
// purposes, comparing each entry by (sessionId, lastMessageTimestamp) only.
func sameSummaryList(a, b []models.SessionSummary) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}

func cloneSummaries(in []models.SessionSummary) []models.SessionSummary {
	out := make([]models.SessionSummary, len(in))
	copy(out, in)
	return out
}
