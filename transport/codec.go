package transport

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes message bodies. The content type it names travels in each
// frame header.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error

	decodeFrame(data []byte) (frame, error)
}

// outgoing is the envelope for requests, responses and events.
type outgoing struct {
	ID     string `json:"id,omitempty" msgpack:"id,omitempty"`
	Method string `json:"method,omitempty" msgpack:"method,omitempty"`
	Params any    `json:"params,omitempty" msgpack:"params,omitempty"`
	Result any    `json:"result,omitempty" msgpack:"result,omitempty"`
	Error  *Error `json:"error,omitempty" msgpack:"error,omitempty"`
}

// frame is a decoded envelope whose params and result are still encoded.
type frame struct {
	id     string
	method string
	params []byte
	result []byte
	err    *Error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName returns the codec called name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

func codecForContentType(contentType string) (Codec, bool) {
	for _, c := range []Codec{JSON, Msgpack} {
		if c.ContentType() == contentType {
			return c, true
		}
	}
	return nil, false
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) ContentType() string                { return "application/json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) decodeFrame(data []byte) (frame, error) {
	var in struct {
		ID     string          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return frame{}, err
	}
	return frame{id: in.ID, method: in.Method, params: in.Params, result: in.Result, err: in.Error}, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return "msgpack" }
func (msgpackCodec) ContentType() string                { return "application/msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

func (msgpackCodec) decodeFrame(data []byte) (frame, error) {
	var in struct {
		ID     string             `msgpack:"id"`
		Method string             `msgpack:"method"`
		Params msgpack.RawMessage `msgpack:"params"`
		Result msgpack.RawMessage `msgpack:"result"`
		Error  *Error             `msgpack:"error"`
	}
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return frame{}, err
	}
	return frame{id: in.ID, method: in.Method, params: in.Params, result: in.Result, err: in.Error}, nil
}
