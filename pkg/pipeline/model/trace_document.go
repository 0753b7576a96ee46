package model

import (
	analyticsModel "github.com/weftlabs/weft/pkg/analytics/model"
)

// TraceDocument is the Elasticsearch projection of a reconstructed session.
// The emission id doubles as the document id so re-delivery cannot produce
// duplicate documents.
type TraceDocument struct {
	Id                  string                             `json:"_id,omitempty"`
	SessionID           string                             `json:"session_id"`
	Complete            bool                               `json:"complete"`
	CloseEpoch          int64                              `json:"close_epoch"`
	EarliestTimestamp   int64                              `json:"earliest_timestamp"`
	LatestTimestamp     int64                              `json:"latest_timestamp"`
	MessageCount        int                                `json:"message_count"`
	SpanCount           int                                `json:"span_count"`
	RootCount           int                                `json:"root_count"`
	Duration            int64                              `json:"duration"`
	Depth               int                                `json:"depth"`
	TreeShape           []int                              `json:"tree_shape"`
	ServiceDependencies []analyticsModel.ServiceDependency `json:"service_dependencies"`
}

func NewTraceDocument(reconstructed ReconstructedSession) TraceDocument {
	return TraceDocument{
		Id:                  reconstructed.Session.EmissionID,
		SessionID:           reconstructed.Session.SessionID,
		Complete:            reconstructed.Session.Complete,
		CloseEpoch:          reconstructed.Session.CloseEpoch,
		EarliestTimestamp:   reconstructed.Session.EarliestTimestamp,
		LatestTimestamp:     reconstructed.Session.LatestTimestamp,
		MessageCount:        reconstructed.Tree.MessageCount,
		SpanCount:           reconstructed.Analytics.SpanCount,
		RootCount:           reconstructed.Analytics.RootCount,
		Duration:            reconstructed.Analytics.Duration,
		Depth:               reconstructed.Analytics.Depth,
		TreeShape:           reconstructed.Analytics.TreeShape,
		ServiceDependencies: reconstructed.Analytics.ServiceDependencies,
	}
}
