package service

import (
	"github.com/google/uuid"
	"github.com/weftlabs/weft/pkg/sessionize/model"
	"go.uber.org/zap"
)

// SessionCloser evaluates the frontier against each open session's last
// activity and evicts the ones that are provably complete. This is the only
// path by which a session is finalized; no explicit end message exists.
type SessionCloser struct {
	store              *SessionStore
	closedCache        *ClosedSessionCache
	maxSessionMessages int
	logger             *zap.Logger
}

func NewSessionCloser(
	store *SessionStore,
	closedCache *ClosedSessionCache,
	maxSessionMessages int,
	logger *zap.Logger,
) *SessionCloser {
	return &SessionCloser{
		store:              store,
		closedCache:        closedCache,
		maxSessionMessages: maxSessionMessages,
		logger:             logger,
	}
}

// CloseExpired evicts and returns every session whose inactivity, measured
// against the frontier, has reached the threshold. Sessions are never closed
// while the frontier is unknown or below latest+threshold. Sessions exceeding
// the max-message safety valve are force-closed regardless of the frontier
// and tagged incomplete.
func (sc *SessionCloser) CloseExpired(
	frontier int64,
	frontierKnown bool,
	inactivityThreshold int64,
	epoch int64,
) []model.ClosedSession {
	var closed []model.ClosedSession
	for _, sessionID := range sc.store.OpenSessionIDs() {
		session, ok := sc.store.Get(sessionID)
		if !ok {
			continue
		}
		expired := frontierKnown && frontier-session.LatestTimestamp >= inactivityThreshold
		oversized := sc.maxSessionMessages > 0 && len(session.Messages) >= sc.maxSessionMessages
		if !expired && !oversized {
			continue
		}
		evicted, ok := sc.store.Evict(sessionID)
		if !ok {
			continue
		}
		if oversized && !expired {
			sc.logger.Warn("Force closing session over message cap",
				zap.String("session_id", sessionID),
				zap.Int("message_count", len(evicted.Messages)),
			)
		}
		closed = append(closed, sc.seal(evicted, epoch, !oversized || expired))
	}
	return closed
}

// Drain evicts every open session regardless of the frontier, tagging each as
// incomplete. Called on shutdown when the caller opts to flush rather than
// discard in-flight state.
func (sc *SessionCloser) Drain(epoch int64) []model.ClosedSession {
	evicted := sc.store.EvictAll()
	closed := make([]model.ClosedSession, 0, len(evicted))
	for _, session := range evicted {
		closed = append(closed, sc.seal(session, epoch, false))
	}
	return closed
}

func (sc *SessionCloser) seal(session *model.Session, epoch int64, complete bool) model.ClosedSession {
	sc.closedCache.MarkClosed(session.SessionID, session.LatestTimestamp)
	return model.ClosedSession{
		SessionID:         session.SessionID,
		EmissionID:        uuid.NewString(),
		Messages:          session.Messages,
		EarliestTimestamp: session.EarliestTimestamp,
		LatestTimestamp:   session.LatestTimestamp,
		CloseEpoch:        epoch,
		Complete:          complete,
	}
}
