package analytics

import "time"

type EventType string

const EventAnalysis EventType = "analysis"

// AnalysisEvent describes one completed analysis run. It carries counts,
// never the page or query text.
type AnalysisEvent struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Pages     int            `json:"pages"`
	Queries   int            `json:"queries"`
	Matched   int            `json:"matched"`
	ByQuality map[string]int `json:"by_quality"`
	CacheHit  bool           `json:"cache_hit"`
	LatencyMs int64          `json:"latency_ms"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}
