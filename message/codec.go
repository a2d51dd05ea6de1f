package message

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec defines the serialization contract for envelopes on the broker.
type Codec interface {
	// Encode serializes an envelope to bytes.
	Encode(env *Envelope) ([]byte, error)

	// Decode deserializes bytes into an envelope.
	Decode(data []byte) (*Envelope, error)

	// Name returns the codec identifier ("json", "msgpack").
	Name() string
}

// CodecName constants for codec selection.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

// JSONCodec is the default envelope codec.
type JSONCodec struct{}

func (JSONCodec) Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONCodec) Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if err := validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (JSONCodec) Name() string { return CodecNameJSON }

// MsgpackCodec encodes envelopes as MessagePack. The payload itself stays
// JSON inside the Data field.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(env *Envelope) ([]byte, error) {
	return msgpack.Marshal(env)
}

func (MsgpackCodec) Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if err := validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (MsgpackCodec) Name() string { return CodecNameMsgpack }

func validate(env *Envelope) error {
	if env.ID == "" {
		return fmt.Errorf("envelope has no id")
	}
	if env.Topic == "" {
		return fmt.Errorf("envelope %s has no topic", env.ID)
	}
	return nil
}
