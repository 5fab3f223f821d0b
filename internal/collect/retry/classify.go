package retry

import "encoding/json"

// Class is the validator's verdict on one raw call outcome.
type Class int

const (
	ClassSuccess Class = iota
	ClassTransport
	ClassParse
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassTransport:
		return "transport_error"
	case ClassParse:
		return "parse_error"
	}
	return "unknown"
}

// Classify inspects a raw call outcome. A call that did not complete (non-2xx
// status, connection failure, timeout) is a transport error; a completed call
// whose body is not a top-level JSON object is a parse error. Both are
// retryable and the engine treats them identically; the tag exists so a
// stricter policy can diverge later without touching call sites.
func Classify(body []byte, err error) Class {
	if err != nil {
		return ClassTransport
	}

	var record map[string]json.RawMessage
	if jsonErr := json.Unmarshal(body, &record); jsonErr != nil || record == nil {
		return ClassParse
	}
	return ClassSuccess
}
