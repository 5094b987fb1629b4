package source

import (
	"context"
	"testing"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/common_errors"

	"github.com/stretchr/testify/require"
)

func TestScriptedPartitionTagsOriginAndOffset(t *testing.T) {
	p := NewScriptedPartition("orders", []commtypes.Record{
		{Key: "a", Timestamp: 100},
		{Key: "b", Timestamp: 200},
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		rec, err := p.Poll(ctx)
		require.NoError(t, err)
		require.Equal(t, "orders", rec.Origin)
		off, ok := rec.Offset.Take()
		require.True(t, ok, "replayed records carry their position as the offset")
		require.Equal(t, uint64(i), off)
	}
	_, err := p.Poll(ctx)
	require.ErrorIs(t, err, common_errors.ErrEndOfPartition)
}
