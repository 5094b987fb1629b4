package processor

import "tidestream/pkg/commtypes"

// KeyOfFunc extracts the typed partition key from a record. ok=false
// means the record has no usable key and is skipped by keyed stages.
type KeyOfFunc[K any] func(rec commtypes.Record) (K, bool)

// ValueOfFunc extracts the numeric value that count/sum aggregation
// folds over.
type ValueOfFunc func(rec commtypes.Record) (float64, error)
