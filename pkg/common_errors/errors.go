package common_errors

import (
	"golang.org/x/xerrors"
)

var (
	ErrInvalidTimestamp      = xerrors.New("record timestamp is missing or unparseable")
	ErrSinkUnavailable       = xerrors.New("sink rejected emit and retries are exhausted")
	ErrStateStoreUnavailable = xerrors.New("state store unavailable")
	ErrEndOfPartition        = xerrors.New("end of partition")
	ErrPipelineStopped       = xerrors.New("pipeline stopped")
)

func IsInvalidTimestampError(err error) bool {
	return xerrors.Is(err, ErrInvalidTimestamp)
}

func IsEndOfPartitionError(err error) bool {
	return xerrors.Is(err, ErrEndOfPartition)
}

func IsStateStoreUnavailableError(err error) bool {
	return xerrors.Is(err, ErrStateStoreUnavailable)
}
