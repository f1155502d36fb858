package tago

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SuccessCode is the resultCode TAGO returns for a normal response
const SuccessCode = "00"

// Outcome classifies a TrainInfoService response. Only OutcomeOK carries
// items; every other outcome is treated as "no data" by callers.
type Outcome int

const (
	OutcomeOK           Outcome = iota
	OutcomeEmpty                // empty body, or a successful response without items
	OutcomeServiceError         // OpenAPI_ServiceResponse / SERVICE_ERROR payload
	OutcomeMarkup               // XML or HTML instead of JSON
	OutcomeResultCode           // JSON with a non-success resultCode
	OutcomeParseError           // body is not valid JSON
	OutcomeTransport            // request could not be completed
)

var outcomeNames = map[Outcome]string{
	OutcomeOK:           "ok",
	OutcomeEmpty:        "empty",
	OutcomeServiceError: "service_error",
	OutcomeMarkup:       "markup",
	OutcomeResultCode:   "result_code",
	OutcomeParseError:   "parse_error",
	OutcomeTransport:    "transport",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Result is the tagged result of one call
type Result struct {
	Items   []json.RawMessage
	Outcome Outcome
	Code    string // resultCode for OutcomeResultCode
	Message string // resultMsg, or the transport error
}

// serviceErrorMarkers appear in the gateway's error payloads, which may be
// wrapped in XML or sent as plain text
var serviceErrorMarkers = []string{"OpenAPI_ServiceResponse", "SERVICE_ERROR"}

// ParseBody validates a response body. Checks run in a fixed order: service
// error markers, markup, empty body, JSON envelope, result code, items.
func ParseBody(body []byte) Result {
	text := string(body)

	for _, marker := range serviceErrorMarkers {
		if strings.Contains(text, marker) {
			return Result{Outcome: OutcomeServiceError}
		}
	}

	if strings.HasPrefix(text, "<") {
		return Result{Outcome: OutcomeMarkup}
	}

	if strings.TrimSpace(text) == "" {
		return Result{Outcome: OutcomeEmpty}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{Outcome: OutcomeParseError, Message: err.Error()}
	}

	header := env.Response.Header
	if header.ResultCode.String() != SuccessCode {
		return Result{
			Outcome: OutcomeResultCode,
			Code:    header.ResultCode.String(),
			Message: header.ResultMsg,
		}
	}

	items, err := extractItems(env.Response.Body.Items)
	if err != nil {
		return Result{Outcome: OutcomeParseError, Message: err.Error()}
	}
	if len(items) == 0 {
		return Result{Outcome: OutcomeEmpty}
	}
	return Result{Items: items, Outcome: OutcomeOK}
}

// extractItems normalizes items.item: TAGO sends a bare object for a single
// result, an array for several, and "" or nothing when there are none.
func extractItems(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}

	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}

	item := bytes.TrimSpace(wrapper.Item)
	if len(item) == 0 {
		return nil, nil
	}

	switch item[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(item, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		return []json.RawMessage{item}, nil
	default:
		return nil, nil
	}
}

// decodeItems unmarshals each item into T, dropping items that do not fit
func decodeItems[T any](items []json.RawMessage) []T {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
