package source

import (
	"context"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/common_errors"
	"tidestream/pkg/optional"
	"tidestream/pkg/utils/syncutils"
)

// Partition is one ordered input stream. Poll blocks until a record is
// available, the partition ends (ErrEndOfPartition) or ctx is done.
// Timestamps need not be monotonic; the watermark tracker simply never
// regresses on out-of-order ones.
type Partition interface {
	Name() string
	Poll(ctx context.Context) (commtypes.Record, error)
}

// ScriptedPartition replays a fixed slice of records. Tests and the
// demo binary use it to construct explicit watermark timelines.
type ScriptedPartition struct {
	mux  syncutils.Mutex
	recs []commtypes.Record
	idx  int
	name string
}

var _ = Partition(&ScriptedPartition{})

func NewScriptedPartition(name string, recs []commtypes.Record) *ScriptedPartition {
	return &ScriptedPartition{name: name, recs: recs}
}

func (p *ScriptedPartition) Name() string { return p.name }

func (p *ScriptedPartition) Poll(ctx context.Context) (commtypes.Record, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.idx >= len(p.recs) {
		return commtypes.EmptyRecord, common_errors.ErrEndOfPartition
	}
	rec := p.recs[p.idx]
	rec.Offset = optional.Some(uint64(p.idx))
	p.idx++
	rec.Origin = p.name
	return rec, nil
}

// ChannelPartition adapts a record channel into a Partition. Closing
// the channel ends the partition.
type ChannelPartition struct {
	ch   <-chan commtypes.Record
	name string
}

var _ = Partition(&ChannelPartition{})

func NewChannelPartition(name string, ch <-chan commtypes.Record) *ChannelPartition {
	return &ChannelPartition{ch: ch, name: name}
}

func (p *ChannelPartition) Name() string { return p.name }

func (p *ChannelPartition) Poll(ctx context.Context) (commtypes.Record, error) {
	select {
	case <-ctx.Done():
		return commtypes.EmptyRecord, ctx.Err()
	case rec, ok := <-p.ch:
		if !ok {
			return commtypes.EmptyRecord, common_errors.ErrEndOfPartition
		}
		rec.Origin = p.name
		return rec, nil
	}
}
