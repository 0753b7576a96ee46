package model

import (
	sessionModel "github.com/weftlabs/weft/pkg/sessionize/model"
	spanModel "github.com/weftlabs/weft/pkg/span/model"
)

// TraceTree is the reconstructed forest of spans for one closed session. A
// session may legally contain several independent root spans. Trees are
// immutable once built and shared read-only among analytics consumers.
type TraceTree struct {
	SessionID         string       `json:"session_id"`
	Roots             []*TraceNode `json:"roots"`
	EarliestTimestamp int64        `json:"earliest_timestamp"`
	LatestTimestamp   int64        `json:"latest_timestamp"`
	MessageCount      int          `json:"message_count"`
	// UntrackedMessageCount counts messages without a span id; they bound
	// session timing but are not tree nodes.
	UntrackedMessageCount int `json:"untracked_message_count"`
}

// TraceNode is one span: its position path, the service that emitted it, the
// time bounds inferred from its messages, and its children.
type TraceNode struct {
	SpanID    spanModel.SpanID       `json:"span_id"`
	Service   string                 `json:"service"`
	StartTime int64                  `json:"start_time"`
	EndTime   int64                  `json:"end_time"`
	Messages  []sessionModel.Message `json:"messages"`
	Children  []*TraceNode           `json:"children,omitempty"`
}

// Walk visits every node of the forest in depth-first order.
func (tt *TraceTree) Walk(visit func(node *TraceNode)) {
	var descend func(node *TraceNode)
	descend = func(node *TraceNode) {
		visit(node)
		for _, child := range node.Children {
			descend(child)
		}
	}
	for _, root := range tt.Roots {
		descend(root)
	}
}

func (tt *TraceTree) SpanCount() int {
	count := 0
	tt.Walk(func(*TraceNode) { count++ })
	return count
}
