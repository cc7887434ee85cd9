package normalize

import "fmt"

// MalformedPayloadError indicates the payload violates the API contract in a
// way no shape variant can absorb: a null body, a sequence element that is
// not an object, or a "data" value that is neither sequence, object, nor
// absent. The whole call fails; no partial table is returned.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

// UnexpectedStatusError indicates an error envelope (statusCode >= 400 with
// a message) was routed into normalization. The HTTP layer should have
// rejected it before calling Normalize; refusing here prevents a spurious
// one-row table whose columns are statusCode/message.
type UnexpectedStatusError struct {
	StatusCode int
	Message    string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status envelope: HTTP %d: %s", e.StatusCode, e.Message)
}
