package commtypes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeWindowForSize(t *testing.T) {
	w, err := TimeWindowForSize(600_000, 300_000)
	require.NoError(t, err)
	require.Equal(t, int64(600_000), w.Start())
	require.Equal(t, int64(900_000), w.End())
}

func TestTimeWindowForSizeTruncatesOverflow(t *testing.T) {
	w, err := TimeWindowForSize(math.MaxInt64-10, 300_000)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), w.End())
}

func TestNewTimeWindowRejectsEmptyInterval(t *testing.T) {
	_, err := NewTimeWindow(500, 500)
	require.ErrorIs(t, err, WindowEndNotLargerStart)
}
