package world

type QueueDepths struct {
	Inbox       int `json:"inbox"`
	ViewerJoin  int `json:"viewer_join"`
	ViewerLeave int `json:"viewer_leave"`
}

// WorldMetrics is published after every tick for the /metrics endpoint.
type WorldMetrics struct {
	Tick           uint64      `json:"tick"`
	Mechanisms     int         `json:"mechanisms"`
	Switches       int         `json:"switches"`
	Viewers        int         `json:"viewers"`
	LoadedChunks   int         `json:"loaded_chunks"`
	Steps          int         `json:"steps"`
	InputsApplied  int         `json:"inputs_applied"`
	InputsRejected int         `json:"inputs_rejected"`
	QueueDepths    QueueDepths `json:"queue_depths"`
	StepMS         float64     `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}
