package commtypes

import (
	"encoding/json"
	"fmt"
)

type KeyAndWindowStartTsG[K any] struct {
	Key           K
	WindowStartTs int64
}

func (kwTs KeyAndWindowStartTsG[K]) String() string {
	return fmt.Sprintf("KeyAndWindowStartTs: {Key: %v, WindowStartTs: %d}", kwTs.Key, kwTs.WindowStartTs)
}

type KeyAndWindowStartTsSerialized struct {
	KeySerialized []byte `json:"k"`
	WindowStartTs int64  `json:"ts"`
}

type KeyAndWindowStartTsJSONSerdeG[K any] struct {
	KeyJSONSerde SerdeG[K]
}

var _ = SerdeG[KeyAndWindowStartTsG[int]](KeyAndWindowStartTsJSONSerdeG[int]{})

func (s KeyAndWindowStartTsJSONSerdeG[K]) Encode(v KeyAndWindowStartTsG[K]) ([]byte, error) {
	kEnc, err := s.KeyJSONSerde.Encode(v.Key)
	if err != nil {
		return nil, err
	}
	ser := KeyAndWindowStartTsSerialized{
		KeySerialized: kEnc,
		WindowStartTs: v.WindowStartTs,
	}
	return json.Marshal(ser)
}

func (s KeyAndWindowStartTsJSONSerdeG[K]) Decode(b []byte) (KeyAndWindowStartTsG[K], error) {
	ser := KeyAndWindowStartTsSerialized{}
	if err := json.Unmarshal(b, &ser); err != nil {
		return KeyAndWindowStartTsG[K]{}, err
	}
	k, err := s.KeyJSONSerde.Decode(ser.KeySerialized)
	if err != nil {
		return KeyAndWindowStartTsG[K]{}, err
	}
	return KeyAndWindowStartTsG[K]{
		Key:           k,
		WindowStartTs: ser.WindowStartTs,
	}, nil
}
