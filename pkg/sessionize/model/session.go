package model

// Session accumulates the messages seen so far for one session id. A session
// is created by its first message and only ever mutated by the shard worker
// that owns its id.
type Session struct {
	SessionID         string    `json:"session_id"`
	Messages          []Message `json:"messages"`
	EarliestTimestamp int64     `json:"earliest_timestamp"`
	LatestTimestamp   int64     `json:"latest_timestamp"`
}

func NewSession(first Message) *Session {
	return &Session{
		SessionID:         first.SessionID,
		Messages:          []Message{first},
		EarliestTimestamp: first.Timestamp,
		LatestTimestamp:   first.Timestamp,
	}
}

func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	if msg.Timestamp < s.EarliestTimestamp {
		s.EarliestTimestamp = msg.Timestamp
	}
	if msg.Timestamp > s.LatestTimestamp {
		s.LatestTimestamp = msg.Timestamp
	}
}

// ClosedSession is a session evicted from the store, with ownership of its
// messages transferred downstream. Complete is false when the session was
// force-closed (drain on shutdown or the max-message safety valve) rather
// than proven inactive by the frontier.
type ClosedSession struct {
	SessionID         string    `json:"session_id"`
	EmissionID        string    `json:"emission_id"`
	Messages          []Message `json:"messages"`
	EarliestTimestamp int64     `json:"earliest_timestamp"`
	LatestTimestamp   int64     `json:"latest_timestamp"`
	CloseEpoch        int64     `json:"close_epoch"`
	Complete          bool      `json:"complete"`
}
