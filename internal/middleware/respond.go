package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody is the failure envelope shared with the API handlers.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeError writes a {success:false,error} JSON response.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
