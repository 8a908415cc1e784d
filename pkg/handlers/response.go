package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// ResponseMetadata accompanies every API response.
type ResponseMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Language  string    `json:"language,omitempty"`
}

// ApiResponse is the uniform envelope returned by every endpoint. No handler
// lets an error escape past this boundary.
type ApiResponse struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
	Metadata ResponseMetadata `json:"metadata"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, version, language string, data any) error {
	return WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    data,
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC(),
			Version:   version,
			Language:  language,
		},
	})
}

// WriteError writes a failure envelope with the given HTTP status.
func WriteError(w http.ResponseWriter, statusCode int, version, message string) error {
	return WriteJSON(w, statusCode, ApiResponse{
		Success: false,
		Error:   message,
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC(),
			Version:   version,
		},
	})
}
