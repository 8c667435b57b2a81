package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// AlertRequest is the body of POST /notify/fire. All three fields must be
// present and be strings; empty strings are fine. Extra fields are ignored.
type AlertRequest struct {
	From  *string `json:"from"`
	Theme *string `json:"theme"`
	Text  *string `json:"text"`
}

func decodeAlertRequest(body []byte) (from, theme, text string, err error) {
	var req AlertRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		return "", "", "", fmt.Errorf("decode alert request: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", "", "", errors.New("decode alert request: trailing data after JSON object")
	}

	var missing []string
	if req.From == nil {
		missing = append(missing, "from")
	}
	if req.Theme == nil {
		missing = append(missing, "theme")
	}
	if req.Text == nil {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return "", "", "", fmt.Errorf("decode alert request: missing field(s) %s", strings.Join(missing, ", "))
	}
	return *req.From, *req.Theme, *req.Text, nil
}
