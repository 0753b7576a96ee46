package service

import (
	"sort"

	"github.com/weftlabs/weft/pkg/sessionize/model"
	spanModel "github.com/weftlabs/weft/pkg/span/model"
	spanService "github.com/weftlabs/weft/pkg/span/service"
	treeModel "github.com/weftlabs/weft/pkg/tree/model"
	"go.uber.org/zap"
)

// TreeBuilderService reconstructs the span forest of a closed session from
// the position paths carried by its messages. Reconstruction is a single pass
// to populate an arena keyed by encoded span id, plus a single pass to link
// each span to its parent by prefix; a span whose parent never appeared is
// treated as a root, tolerating missing ancestor messages. The result is
// deterministic regardless of message arrival order.
type TreeBuilderService struct {
	codec  *spanService.SpanIdCodec
	logger *zap.Logger
}

func NewTreeBuilderService(codec *spanService.SpanIdCodec, logger *zap.Logger) *TreeBuilderService {
	return &TreeBuilderService{
		codec:  codec,
		logger: logger,
	}
}

// BuildTree reconstructs the forest for the closed session. Messages whose
// span ids fail validation are excluded from the tree but still bound session
// timing through the session's own timestamps; each exclusion is returned as
// a diagnostic so the condition is never silently dropped.
func (tbs *TreeBuilderService) BuildTree(session model.ClosedSession) (*treeModel.TraceTree, []model.Diagnostic) {
	arena := make(map[string]*treeModel.TraceNode)
	var diagnostics []model.Diagnostic

	for _, msg := range session.Messages {
		if !msg.HasSpanID() {
			continue
		}
		if err := tbs.codec.Validate(msg.SpanID); err != nil {
			diagnostics = append(diagnostics, model.Diagnostic{
				Kind:      model.InvalidSpanIdDiagnostic,
				SessionID: session.SessionID,
				Timestamp: msg.Timestamp,
				Detail:    err.Error(),
			})
			continue
		}
		key := string(tbs.codec.Encode(msg.SpanID))
		node, ok := arena[key]
		if !ok {
			spanID := make(spanModel.SpanID, len(msg.SpanID))
			copy(spanID, msg.SpanID)
			node = &treeModel.TraceNode{
				SpanID:    spanID,
				StartTime: msg.Timestamp,
				EndTime:   msg.Timestamp,
			}
			arena[key] = node
		}
		node.Messages = append(node.Messages, msg)
		if msg.Timestamp < node.StartTime {
			node.StartTime = msg.Timestamp
		}
		if msg.Timestamp > node.EndTime {
			node.EndTime = msg.Timestamp
		}
	}

	tree := &treeModel.TraceTree{
		SessionID:         session.SessionID,
		EarliestTimestamp: session.EarliestTimestamp,
		LatestTimestamp:   session.LatestTimestamp,
		MessageCount:      len(session.Messages),
	}
	for _, msg := range session.Messages {
		if !msg.HasSpanID() {
			tree.UntrackedMessageCount++
		}
	}

	for _, node := range arena {
		sortMessages(node.Messages)
		node.Service = node.Messages[0].Service

		parentPath, err := tbs.codec.ParentOf(node.SpanID)
		if err != nil {
			tree.Roots = append(tree.Roots, node)
			continue
		}
		parent, ok := arena[string(tbs.codec.Encode(parentPath))]
		if !ok {
			// Missing ancestor: tolerate by promoting to root.
			tree.Roots = append(tree.Roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortNodes(tree.Roots)
	tree.Walk(func(node *treeModel.TraceNode) {
		sortNodes(node.Children)
	})
	return tree, diagnostics
}

func sortMessages(messages []model.Message) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp != messages[j].Timestamp {
			return messages[i].Timestamp < messages[j].Timestamp
		}
		if messages[i].Service != messages[j].Service {
			return messages[i].Service < messages[j].Service
		}
		return messages[i].Payload < messages[j].Payload
	})
}

func sortNodes(nodes []*treeModel.TraceNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return comparePaths(nodes[i].SpanID, nodes[j].SpanID) < 0
	})
}

func comparePaths(a spanModel.SpanID, b spanModel.SpanID) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Index != b[i].Index {
			if a[i].Index < b[i].Index {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
