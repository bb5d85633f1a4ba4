package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error shape the registration form understands.
type ErrorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missingFields,omitempty"`
}

type SuccessBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) SuccessBody {
	return SuccessBody{Success: true, Message: message, Data: data}
}

func ErrorResponse(err, code string) ErrorBody {
	return ErrorBody{Error: err, Code: code}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, body ErrorBody) error {
	return WriteJSON(w, status, body)
}
