package routes

var (
	BearerAuth = []map[string][]string{
		{"bearer": {}},
		{"apiKey": {}},
	}
)

type Tag string

const (
	TagEvaluation Tag = "evaluation"
	TagJobs       Tag = "jobs"
	TagAuth       Tag = "auth"
	TagHealth     Tag = "health"
	TagMeta       Tag = "meta"
)

func (t Tag) String() string { return string(t) }
