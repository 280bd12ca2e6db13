package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/courtmatch/courtgate"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// writeError renders err as the JSON failure envelope with the status
// code from the gateway's error taxonomy.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(courtgate.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error: errorBody{
			Code:    courtgate.ErrorCode(err),
			Message: err.Error(),
		},
	})
}
