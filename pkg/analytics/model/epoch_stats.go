package model

// ShapeCount is the per-epoch frequency of one canonical tree shape.
type ShapeCount struct {
	Shape []int `json:"shape"`
	Count int   `json:"count"`
}

// FragmentBucket reports how many session ids have been emitted a given
// number of times so far. Buckets with more than one fragment indicate the
// inactivity threshold is too short for the workload and logical sessions are
// being split.
type FragmentBucket struct {
	Fragments int `json:"fragments"`
	Sessions  int `json:"sessions"`
}

// EpochStats summarizes one epoch's worth of closed sessions.
type EpochStats struct {
	Epoch             int64            `json:"epoch"`
	ClosedSessions    int              `json:"closed_sessions"`
	TopShapes         []ShapeCount     `json:"top_shapes"`
	FragmentHistogram []FragmentBucket `json:"fragment_histogram"`
}
