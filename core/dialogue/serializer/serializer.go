// Package serializer provides the pluggable codecs used to persist dialogue
// state. Two interchangeable binary formats are supported: msgpack (compact)
// and CBOR (self-describing). Storage stays agnostic: it sees opaque bytes
// plus the format tag.
package serializer

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Format tags written next to each persisted record.
const (
	FormatMsgPack = "msgpack"
	FormatCBOR    = "cbor"
)

// Serializer encodes typed dialogue state to bytes and back.
// Round-trip law: Decode(Encode(x)) == x for every representable x.
type Serializer interface {
	Format() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// MsgPack is the compact binary format.
type MsgPack struct{}

// Format returns the msgpack format tag.
func (MsgPack) Format() string { return FormatMsgPack }

// Encode marshals v to msgpack bytes.
func (MsgPack) Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializer: msgpack encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals msgpack bytes into v.
func (MsgPack) Decode(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("serializer: msgpack decode: %w", err)
	}
	return nil
}

// CBOR is the self-describing binary format.
type CBOR struct{}

// Format returns the cbor format tag.
func (CBOR) Format() string { return FormatCBOR }

// Encode marshals v to CBOR bytes.
func (CBOR) Encode(v any) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializer: cbor encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals CBOR bytes into v.
func (CBOR) Decode(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("serializer: cbor decode: %w", err)
	}
	return nil
}

// ByName resolves a configured format name to its serializer. An empty name
// selects msgpack.
func ByName(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatMsgPack:
		return MsgPack{}, nil
	case FormatCBOR:
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("serializer: unknown format %q", name)
	}
}
