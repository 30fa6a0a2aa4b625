package hatanaka

import (
	"errors"
	"fmt"
)

// errors
var (
	// ErrInvalidOrder is returned if a differencing order is negative or exceeds the configured maximum.
	ErrInvalidOrder = errors.New("hatanaka: invalid difference order")

	// ErrUninitializedKernel is returned if a field is differenced before it was initialized.
	ErrUninitializedKernel = errors.New("hatanaka: field not initialized")

	// ErrMalformedEpochHeader is returned if the epoch line can not be parsed.
	ErrMalformedEpochHeader = errors.New("hatanaka: malformed epoch header")

	// ErrMalformedObservation is returned if an observation or clock record can not be parsed.
	ErrMalformedObservation = errors.New("hatanaka: malformed observation")

	// ErrUnsupportedRecordType is returned if the RINEX file is not an observation file.
	ErrUnsupportedRecordType = errors.New("hatanaka: unsupported RINEX file type")

	// ErrNotCompactRinex is returned when decompressing data that is not Compact RINEX.
	ErrNotCompactRinex = errors.New("hatanaka: not Compact RINEX")

	// ErrAlreadyCompact is returned when compressing data that is already Compact RINEX.
	ErrAlreadyCompact = errors.New("hatanaka: already Compact RINEX")

	// ErrTruncatedStream is returned if the input ends inside the header or inside an epoch.
	ErrTruncatedStream = errors.New("hatanaka: truncated stream")
)

// RecordError locates an error in the input.
type RecordError struct {
	Line  int   // The 1-based input line number.
	Epoch int   // The 1-based epoch number, 0 for the header.
	Err   error // The underlying error.
}

func (e *RecordError) Error() string {
	if e.Epoch == 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, epoch %d: %v", e.Line, e.Epoch, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
