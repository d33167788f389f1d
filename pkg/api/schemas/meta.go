package schemas

type RootResponse struct {
	Body struct {
		Service       string `json:"service" doc:"Service name"`
		Version       string `json:"version" doc:"Service version"`
		Docs          string `json:"docs" doc:"Path to the interactive API docs"`
		Authenticated bool   `json:"authenticated" doc:"Whether the request carried valid credentials"`
		Username      string `json:"username,omitempty" doc:"Principal name when authenticated"`
	}
}

type InfoResponse struct {
	Body struct {
		Service              string   `json:"service"`
		Version              string   `json:"version"`
		Environment          string   `json:"environment"`
		SupportedMetrics     []string `json:"supported_metrics" doc:"Metric names the evaluator scores"`
		MaxFileSize          int64    `json:"max_file_size" doc:"Dataset upload size limit in bytes"`
		DefaultMaxConcurrent int      `json:"default_max_concurrent" doc:"Default evaluation concurrency"`
	}
}

type MetricsResponse struct {
	Body struct {
		SupportedMetrics []string `json:"supported_metrics" doc:"Metric names the evaluator scores"`
		JudgeConfigured  bool     `json:"judge_configured" doc:"Whether an LLM judge backs semantic metrics"`
	}
}
