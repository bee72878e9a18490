package httptransport

type VerifyResponse struct {
	WorkerID int64 `json:"worker_id"`
	Verified bool  `json:"verified"`
}

type MatchedNameResponse struct {
	WorkerID int64  `json:"worker_id"`
	Name     string `json:"name"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
