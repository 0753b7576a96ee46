package model

// ServiceDependency is one observed inter-service call: the parent span's
// service invoking the child span's service.
type ServiceDependency struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// SessionAnalytics carries the per-session results of all analytics
// operators, emitted alongside the reconstructed tree.
type SessionAnalytics struct {
	SessionID           string              `json:"session_id"`
	EmissionID          string              `json:"emission_id"`
	Complete            bool                `json:"complete"`
	SpanCount           int                 `json:"span_count"`
	RootCount           int                 `json:"root_count"`
	Duration            int64               `json:"duration"`
	Depth               int                 `json:"depth"`
	TreeShape           []int               `json:"tree_shape"`
	ServiceDependencies []ServiceDependency `json:"service_dependencies"`
}
