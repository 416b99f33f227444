// File: message/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JSON envelope: {"type":"motion","data":{...}}.

package message

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrUnknownKind is returned by Decode for an unrecognised type tag.
var ErrUnknownKind = errors.New("message: unknown kind")

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serialises m into its envelope.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("message: nil message")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "message: encode %s", m.Kind())
	}
	return json.Marshal(envelope{Type: m.Kind().String(), Data: data})
}

// Decode parses an envelope produced by Encode.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "message: decode envelope")
	}
	switch env.Type {
	case KindMotion.String():
		return decodeAs[Motion](env)
	case KindButton.String():
		return decodeAs[Button](env)
	case KindAxis.String():
		return decodeAs[Axis](env)
	case KindPointerEnter.String():
		return decodeAs[PointerEnter](env)
	case KindPointerLeave.String():
		return decodeAs[PointerLeave](env)
	case KindKey.String():
		return decodeAs[Key](env)
	case KindOutputSize.String():
		return decodeAs[OutputSize](env)
	case KindWindowResized.String():
		return decodeAs[WindowResized](env)
	}
	return nil, errors.Wrapf(ErrUnknownKind, "type %q", env.Type)
}

func decodeAs[T Message](env envelope) (Message, error) {
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, errors.Wrapf(err, "message: decode %s", env.Type)
	}
	return v, nil
}
