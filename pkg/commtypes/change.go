package commtypes

import "fmt"

// UpdateTag tells a downstream consumer how to fold a changelog entry
// into its view of current state.
type UpdateTag uint8

const (
	Insert UpdateTag = iota + 1
	// Update supersedes the previous emission for the same key.
	Update
	// Retract withdraws the previous emission without replacement.
	Retract
)

func (t UpdateTag) String() string {
	switch t {
	case Insert:
		return "Insert"
	case Update:
		return "Update"
	case Retract:
		return "Retract"
	default:
		return fmt.Sprintf("UpdateTag(%d)", uint8(t))
	}
}

type Change[T any] struct {
	NewVal *T
	OldVal *T
	Tag    UpdateTag
}

func (c Change[T]) String() string {
	return fmt.Sprintf("Change: {Tag: %v, NewVal: %v, OldVal: %v}", c.Tag, c.NewVal, c.OldVal)
}

func CastToChangePtr[T any](value interface{}) *Change[T] {
	v, ok := value.(*Change[T])
	if !ok {
		vtmp := value.(Change[T])
		v = &vtmp
	}
	return v
}
