package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec is the serialization contract for cache payloads. Save encodes the
// caller's value to bytes; Load decodes those bytes into a caller-supplied
// destination. The extension determines the payload file suffix on disk.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, dest any) error
	Extension() string
}

// GobCodec serializes payloads with encoding/gob. It is the default codec:
// compact, handles arbitrary exported Go structures, and keeps payload files
// opaque the way the original model dumps were.
type GobCodec struct{}

func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte, dest any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(dest)
}

func (GobCodec) Extension() string { return ".gob" }

// JSONCodec serializes payloads as JSON, useful when entries should stay
// human-inspectable on disk.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

func (JSONCodec) Extension() string { return ".json" }
