package schemas

type HealthResponse struct {
	Body struct {
		Status    string `json:"status" doc:"Overall service health" enum:"healthy,degraded,unhealthy"`
		Version   string `json:"version" doc:"Service version"`
		Timestamp string `json:"timestamp" doc:"Time of the check (RFC 3339)"`

		EvaluatorAvailable bool     `json:"evaluator_available" doc:"Whether the evaluator accepts work"`
		JudgeConfigured    bool     `json:"judge_configured" doc:"Whether an LLM judge backs semantic metrics"`
		SupportedMetrics   []string `json:"supported_metrics" doc:"Metric names the evaluator scores"`
		KvConfigured       bool     `json:"kv_configured" doc:"Whether an external key-value store is configured"`
		KvAvailable        *bool    `json:"kv_available,omitempty" doc:"Whether the key-value store answered a ping"`
		Errors             []string `json:"errors,omitempty" doc:"Subsystem failures behind a degraded status"`
	}
}

type DetailedHealthResponse struct {
	Body struct {
		Status    string `json:"status" doc:"Overall service health" enum:"healthy,degraded,unhealthy"`
		Version   string `json:"version" doc:"Service version"`
		Timestamp string `json:"timestamp" doc:"Time of the check (RFC 3339)"`

		EvaluatorAvailable  bool     `json:"evaluator_available"`
		JudgeConfigured     bool     `json:"judge_configured"`
		SupportedMetrics    []string `json:"supported_metrics"`
		KvConfigured        bool     `json:"kv_configured" doc:"Whether an external key-value store is configured"`
		KvAvailable         *bool    `json:"kv_available,omitempty" doc:"Whether the key-value store answered a ping"`
		ArtifactsConfigured bool     `json:"artifacts_configured" doc:"Whether an artifact store is configured"`
		Errors              []string `json:"errors,omitempty"`
	}
}
