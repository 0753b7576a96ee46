package service

import (
	"github.com/weftlabs/weft/pkg/sessionize/model"
	"go.uber.org/zap"
)

// SessionStore is the per-shard accumulator of open sessions. Exactly one
// shard worker ever touches a given store, so no locking is needed; eviction
// is explicit and happens only through Evict or EvictAll.
type SessionStore struct {
	sessions map[string]*model.Session
	logger   *zap.Logger
}

func NewSessionStore(logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*model.Session),
		logger:   logger,
	}
}

// Ingest looks up or creates the session for the message's id, appends the
// message and updates the session's timing bounds. It reports whether the
// message opened a new session.
func (ss *SessionStore) Ingest(msg model.Message) (*model.Session, bool) {
	session, ok := ss.sessions[msg.SessionID]
	if !ok {
		session = model.NewSession(msg)
		ss.sessions[msg.SessionID] = session
		return session, true
	}
	session.Append(msg)
	return session, false
}

func (ss *SessionStore) Get(sessionID string) (*model.Session, bool) {
	session, ok := ss.sessions[sessionID]
	return session, ok
}

// OpenSessionIDs returns the ids of all currently open sessions. The slice
// reflects live state at call time; the store may mutate before the caller
// finishes scanning it.
func (ss *SessionStore) OpenSessionIDs() []string {
	ids := make([]string, 0, len(ss.sessions))
	for id := range ss.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Evict removes the session and transfers ownership of it to the caller.
func (ss *SessionStore) Evict(sessionID string) (*model.Session, bool) {
	session, ok := ss.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(ss.sessions, sessionID)
	return session, true
}

// EvictAll empties the store and transfers ownership of every open session to
// the caller. Used when draining on shutdown.
func (ss *SessionStore) EvictAll() []*model.Session {
	evicted := make([]*model.Session, 0, len(ss.sessions))
	for id, session := range ss.sessions {
		evicted = append(evicted, session)
		delete(ss.sessions, id)
	}
	return evicted
}

func (ss *SessionStore) Len() int {
	return len(ss.sessions)
}

// OldestLatestTimestamp returns the smallest latest-activity timestamp among
// open sessions, used to expose the age of the session that has been waiting
// longest for closure.
func (ss *SessionStore) OldestLatestTimestamp() (int64, bool) {
	if len(ss.sessions) == 0 {
		return 0, false
	}
	var oldest int64
	first := true
	for _, session := range ss.sessions {
		if first || session.LatestTimestamp < oldest {
			oldest = session.LatestTimestamp
			first = false
		}
	}
	return oldest, true
}
