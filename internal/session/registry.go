package session

import "github.com/google/uuid"

// Sender delivers one encoded frame to a single client. Implementations must
// not block the caller; a full outbound buffer or closed socket is reported as
// an error and the frame is dropped for that recipient only.
type Sender interface {
	Send(data []byte) error
}

// Session is the server-side state of one live client connection. Fields are
// mutated only by the dispatcher goroutine.
type Session struct {
	ID                 string
	Ready              bool
	MediaReady         bool
	CurrentTime        float64
	PendingInitialSync bool
	LastCommandID      string
	Sender             Sender
}

// StateUpdate is a partial state merge. Nil fields leave the current value
// untouched.
type StateUpdate struct {
	CurrentTime *float64
	MediaReady  *bool
}

// Info is a read-only snapshot of a session, used by the admin console.
type Info struct {
	ID          string
	Ready       bool
	MediaReady  bool
	CurrentTime float64
}

// Registry is the set of live sessions. It is a plain container with no
// internal locking: the owning dispatcher goroutine is its only caller.
type Registry struct {
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register creates a session with a fresh id. Ids are never reused; a
// reconnecting client is a brand-new session.
func (r *Registry) Register(sender Sender) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Sender: sender,
	}
	r.sessions[s.ID] = s
	return s
}

// Unregister removes a session. Safe to call for an unknown or already
// removed id.
func (r *Registry) Unregister(id string) {
	delete(r.sessions, id)
}

// Get returns the session or nil. Timer callbacks use this as their
// liveness check before acting.
func (r *Registry) Get(id string) *Session {
	return r.sessions[id]
}

// UpdateState merges the supplied fields into the session. Unknown ids are
// ignored (the session disconnected between arrival and processing).
func (r *Registry) UpdateState(id string, update StateUpdate) {
	s := r.sessions[id]
	if s == nil {
		return
	}
	if update.CurrentTime != nil {
		s.CurrentTime = *update.CurrentTime
	}
	if update.MediaReady != nil {
		s.MediaReady = *update.MediaReady
	}
}

// ForEach visits every session in unspecified order.
func (r *Registry) ForEach(visit func(*Session)) {
	for _, s := range r.sessions {
		visit(s)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Snapshot returns session infos for diagnostics.
func (r *Registry) Snapshot() []Info {
	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, Info{
			ID:          s.ID,
			Ready:       s.Ready,
			MediaReady:  s.MediaReady,
			CurrentTime: s.CurrentTime,
		})
	}
	return infos
}
