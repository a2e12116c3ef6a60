// Package envelope writes the {success, data, error} response envelope served
// by the server-side handlers.
package envelope

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Write sends a successful envelope carrying data.
func Write(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, body{Success: true, Data: data})
}

// WriteError sends a failed envelope carrying msg.
func WriteError(w http.ResponseWriter, status int, msg string) {
	write(w, status, body{Success: false, Error: msg})
}

func write(w http.ResponseWriter, status int, b body) {
	payload, err := json.Marshal(b)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"success":false,"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
