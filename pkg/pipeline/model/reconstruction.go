package model

import (
	analyticsModel "github.com/weftlabs/weft/pkg/analytics/model"
	sessionModel "github.com/weftlabs/weft/pkg/sessionize/model"
	treeModel "github.com/weftlabs/weft/pkg/tree/model"
)

// ReconstructedSession is the pipeline's unit of output: a closed session,
// its reconstructed forest, and the analytics computed over it. Published to
// the bus once per closed session; the tree is immutable and shared read-only
// among consumers.
type ReconstructedSession struct {
	Session   sessionModel.ClosedSession      `json:"session"`
	Tree      *treeModel.TraceTree            `json:"tree"`
	Analytics analyticsModel.SessionAnalytics `json:"analytics"`
}

// EpochBatch mirrors the frontier-epoch boundaries: the sessions closed by
// one epoch evaluation plus that epoch's aggregates.
type EpochBatch struct {
	Epoch    int64                     `json:"epoch"`
	Sessions []ReconstructedSession    `json:"sessions"`
	Stats    analyticsModel.EpochStats `json:"stats"`
}
