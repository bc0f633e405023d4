package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNotJSON = errors.New("body is not valid JSON")

// Envelope is the wrapper every marketplace endpoint responds with.
type Envelope struct {
	Success bool
	Code    int
	Message string
	Data    json.RawMessage
}

type wireEnvelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message flexMessage     `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ParseEnvelope decodes raw as an Envelope. ok is false, with a nil error,
// when raw is valid JSON but not an object carrying a "success" field;
// such bodies come from endpoints that do not wrap their payload.
func ParseEnvelope(raw []byte) (env Envelope, ok bool, err error) {
	if !json.Valid(raw) {
		return env, false, errNotJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return env, false, nil
	}
	if _, has := fields["success"]; !has {
		return env, false, nil
	}

	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return env, false, fmt.Errorf("decode envelope: %w", err)
	}
	return Envelope{
		Success: w.Success,
		Code:    w.Code,
		Message: string(w.Message),
		Data:    w.Data,
	}, true, nil
}

// flexMessage accepts a string or a list of strings; validation failures
// upstream report every violated constraint as a list.
type flexMessage string

func (m *flexMessage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = flexMessage(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = flexMessage(strings.Join(list, ", "))
		return nil
	}
	if string(b) == "null" {
		*m = ""
		return nil
	}
	*m = flexMessage(b)
	return nil
}
