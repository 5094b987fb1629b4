package commtypes

import (
	"encoding/json"
	"fmt"
)

// CountSum is the additive aggregate state per (window, key).
type CountSum struct {
	Count uint64  `json:"cnt"`
	Sum   float64 `json:"sum"`
}

func (cs CountSum) Plus(v float64) CountSum {
	return CountSum{Count: cs.Count + 1, Sum: cs.Sum + v}
}

// WindowAggregate is the tuple emitted when a window closes, and
// re-emitted (tagged) by the reconciler when late records update it.
type WindowAggregate[K any] struct {
	Key         K       `json:"key"`
	WindowStart int64   `json:"wStart"`
	WindowEnd   int64   `json:"wEnd"`
	Count       uint64  `json:"cnt"`
	Sum         float64 `json:"sum"`
}

func (a WindowAggregate[K]) String() string {
	return fmt.Sprintf("WindowAggregate: {Key: %v, Window: [%d, %d), Count: %d, Sum: %v}",
		a.Key, a.WindowStart, a.WindowEnd, a.Count, a.Sum)
}

type WindowAggregateJSONSerdeG[K any] struct{}

var _ = SerdeG[WindowAggregate[int]](WindowAggregateJSONSerdeG[int]{})

func (s WindowAggregateJSONSerdeG[K]) Encode(v WindowAggregate[K]) ([]byte, error) {
	return json.Marshal(v)
}

func (s WindowAggregateJSONSerdeG[K]) Decode(b []byte) (WindowAggregate[K], error) {
	v := WindowAggregate[K]{}
	if err := json.Unmarshal(b, &v); err != nil {
		return WindowAggregate[K]{}, err
	}
	return v, nil
}
