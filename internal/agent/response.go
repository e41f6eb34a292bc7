// ABOUTME: Endpoint response record and its normalization into plain text
// ABOUTME: Optional fields are decoded explicitly; precedence is a fixed ordered list

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fallback texts produced by Normalize
const (
	NoResponseText      = "No response received"
	ErrorProcessingText = "Error processing request"
)

// PayloadKind tags which shape the "response" field had
type PayloadKind int

const (
	PayloadAbsent PayloadKind = iota // missing or null
	PayloadText                      // a JSON string
	PayloadObject                    // a JSON object
	PayloadOther                     // any other JSON value; ignored
)

// Payload is the decoded "response" field. For PayloadText, Text holds the
// string; for PayloadObject, Result/Answer/Response hold the sub-fields
// rendered as text ("" when absent or null).
type Payload struct {
	Kind     PayloadKind
	Text     string
	Result   string
	Answer   string
	Response string
}

// Response is the endpoint's reply. Every field is optional.
type Response struct {
	Success     *bool   `json:"success"`
	Payload     Payload `json:"response"`
	RawResponse *string `json:"raw_response"`
}

// Succeeded reports whether the call is marked successful. An absent
// success flag counts as success.
func (r *Response) Succeeded() bool {
	return r.Success == nil || *r.Success
}

func (r *Response) raw() string {
	if r.RawResponse == nil {
		return ""
	}
	return *r.RawResponse
}

// Normalize reduces a response to the text shown to the user. The first
// non-empty candidate wins:
//
//	success: response.result, response.answer, response.response,
//	         response (when a string), raw_response, NoResponseText
//	failure: raw_response, ErrorProcessingText
func Normalize(r *Response) string {
	if r == nil {
		return NoResponseText
	}

	if !r.Succeeded() {
		if raw := r.raw(); raw != "" {
			return raw
		}
		return ErrorProcessingText
	}

	candidates := []string{
		r.Payload.Result,
		r.Payload.Answer,
		r.Payload.Response,
	}
	if r.Payload.Kind == PayloadText {
		candidates = append(candidates, r.Payload.Text)
	}
	candidates = append(candidates, r.raw())

	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return NoResponseText
}

// UnmarshalJSON decodes the "response" field into its tagged shape.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = Payload{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		p.Kind = PayloadText
		return json.Unmarshal(trimmed, &p.Text)
	case '{':
		var fields struct {
			Result   json.RawMessage `json:"result"`
			Answer   json.RawMessage `json:"answer"`
			Response json.RawMessage `json:"response"`
		}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return err
		}
		p.Kind = PayloadObject
		var err error
		if p.Result, err = fieldText(fields.Result); err != nil {
			return fmt.Errorf("response.result: %w", err)
		}
		if p.Answer, err = fieldText(fields.Answer); err != nil {
			return fmt.Errorf("response.answer: %w", err)
		}
		if p.Response, err = fieldText(fields.Response); err != nil {
			return fmt.Errorf("response.response: %w", err)
		}
		return nil
	default:
		if !json.Valid(trimmed) {
			return fmt.Errorf("invalid response field")
		}
		p.Kind = PayloadOther
		return nil
	}
}

// fieldText renders a sub-field as text: strings as-is, null as "", and any
// other JSON value as its compact encoding.
func fieldText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}
