// Package jsonutil wraps github.com/go-json-experiment/json with the options
// every posture file format relies on.
//
// Output is deterministic (map keys sorted) so progress files, history
// indexes and machine-readable scores diff cleanly and hash stably.
//
// Usage:
//
//	data, err := jsonutil.MarshalIndent(session, "", "  ")
//	err = jsonutil.Unmarshal(data, &session)
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the compact, deterministic JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	// go-json-experiment uses jsontext options for indentation
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndentPrefix(prefix), jsontext.WithIndent(indent))
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// Encoder writes one JSON value per Encode call, each followed by a newline.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewStreamEncoder creates an encoder that writes to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the JSON encoding of v to the stream, followed by a newline.
func (e *Encoder) Encode(v any) error {
	var err error
	if e.indent != "" {
		err = json.MarshalWrite(e.w, v, json.Deterministic(true), jsontext.WithIndent(e.indent))
	} else {
		err = json.MarshalWrite(e.w, v, json.Deterministic(true))
	}
	if err != nil {
		return err
	}
	// Add trailing newline to match encoding/json behavior
	_, err = e.w.Write([]byte{'\n'})
	return err
}

// SetIndent instructs the encoder to format each subsequent encoded value
// with the given indentation.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.indent = indent
}
