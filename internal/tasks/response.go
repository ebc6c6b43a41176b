package tasks

import (
	"encoding/json"
	"net/http"
)

// TaskPage - ответ GET /tasks/.
type TaskPage struct {
	Total   int64   `json:"total"`
	NextURL *string `json:"next_url"`
	PrevURL *string `json:"prev_url"`
	Items   []Task  `json:"items"`
}

type detailResponse struct {
	Detail any `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

const (
	msgTaskNotFound = "Task not found."
	msgTaskDeleted  = "Task deleted successfully."
)

// writeJSON пишет статус и JSON-тело.
// Content-Type выставляет JSONHeaderMiddleware.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
