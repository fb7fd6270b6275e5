package http

import (
	"bytes"
	"encoding/json"
	"time"
)

type PairRequest struct {
	OTP   flexString `json:"otp"`
	Label flexString `json:"label"`
}

type PairResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type AttemptResponse struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

type AttemptsResponse struct {
	Count    int               `json:"count"`
	Attempts []AttemptResponse `json:"attempts"`
}

// flexString accepts a JSON string or number; quickcodes are often sent as
// numbers by form serializers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
