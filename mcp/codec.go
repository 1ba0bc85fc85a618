package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errBadVersion = errors.New(`jsonrpc must be "2.0"`)
	errNoMethod   = errors.New("method is required")
	errBadID      = errors.New("id must be a number, string or null")
)

// DecodeError is returned by Decode for lines that are not a JSON-RPC 2.0 request.
type DecodeError struct {
	Code int             // errParse for malformed JSON, errInvalidRequest for a bad envelope
	ID   json.RawMessage // request id, when one could be recovered
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode request: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Response converts the decode failure into the JSON-RPC error reply for it.
func (e *DecodeError) Response() *Response {
	message := "Invalid Request"
	if e.Code == errParse {
		message = "Parse error"
	}
	return errorResponse(requestID(e.ID), e.Code, message, e.Err.Error())
}

// Decode parses one input line as a JSON-RPC 2.0 request.
func Decode(line []byte) (Request, error) {
	line = bytes.TrimSpace(line)
	if !json.Valid(line) {
		return Request{}, &DecodeError{Code: errParse, Err: errors.New("malformed JSON")}
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, &DecodeError{Code: errInvalidRequest, ID: validID(req.ID), Err: err}
	}
	if !isValidID(req.ID) {
		return Request{}, &DecodeError{Code: errInvalidRequest, Err: errBadID}
	}
	if req.JSONRPC != "2.0" {
		return Request{}, &DecodeError{Code: errInvalidRequest, ID: req.ID, Err: errBadVersion}
	}
	if req.Method == "" {
		return Request{}, &DecodeError{Code: errInvalidRequest, ID: req.ID, Err: errNoMethod}
	}
	return req, nil
}

func isValidID(id json.RawMessage) bool {
	if len(id) == 0 {
		return true
	}
	switch c := id[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		return true
	default:
		return string(id) == "null"
	}
}

func validID(id json.RawMessage) json.RawMessage {
	if isValidID(id) {
		return id
	}
	return nil
}

// Encode renders a response as a single newline-terminated line. Newlines inside
// string values are escaped by the JSON encoding itself.
func Encode(resp *Response) ([]byte, error) {
	data, err := marshalCompact(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return append(data, '\n'), nil
}

// marshalCompact is json.Marshal without HTML escaping.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
