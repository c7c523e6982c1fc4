package submit

import (
	"encoding/json"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// Codec converts envelopes and replies to and from wire bytes.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec is the registry's JSON codec.
type JSONCodec struct{}

// Encode marshals v. Failures are serialization errors.
func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, core.NewError(core.KindSerialization, "encode", err)
	}
	return data, nil
}

// Decode unmarshals data into v. Empty or malformed bodies are serialization errors.
func (JSONCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return core.NewError(core.KindSerialization, "decode", err)
	}
	return nil
}
