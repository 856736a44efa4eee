package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rushteam/movierec/logging"
)

// errorResponse 与前端约定的错误格式：{"error": "..."}
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON 写出 JSON 响应
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("marshal json response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("write json response")
	}
}

// respondError 写出错误响应
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
