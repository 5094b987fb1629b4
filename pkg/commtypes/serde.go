package commtypes

import "encoding/json"

type EncoderG[V any] interface {
	Encode(v V) ([]byte, error)
}

type DecoderG[V any] interface {
	Decode([]byte) (V, error)
}

type SerdeG[V any] interface {
	EncoderG[V]
	DecoderG[V]
}

// JSONSerdeG serializes any type whose zero value unmarshals cleanly.
type JSONSerdeG[V any] struct{}

var _ = SerdeG[int](JSONSerdeG[int]{})

func (s JSONSerdeG[V]) Encode(v V) ([]byte, error) {
	return json.Marshal(v)
}

func (s JSONSerdeG[V]) Decode(b []byte) (V, error) {
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}

type StringSerdeG struct{}

var _ = SerdeG[string](StringSerdeG{})

func (s StringSerdeG) Encode(value string) ([]byte, error) {
	return []byte(value), nil
}

func (s StringSerdeG) Decode(value []byte) (string, error) {
	return string(value), nil
}
