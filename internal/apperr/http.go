package apperr

import (
	"encoding/json"
	"net/http"
)

// Response is the JSON body written for failed requests.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes err with its mapped status. Unclassified errors are
// reported generically so internals do not leak.
func WriteJSON(w http.ResponseWriter, err error) {
	body := Response{Error: CodeOf(err), Message: "internal error"}
	if e, ok := As(err); ok {
		body.Message = e.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(body)
}
