package ledger

import (
	"errors"
	"fmt"
)

// ErrCorrupted is returned by Append once chain verification has failed.
// The mutating path stays refused until the process is restarted and the
// chain is re-examined.
var ErrCorrupted = errors.New("chain corrupted: appends refused")

// ErrInvalidRestore is returned when Restore is given a block sequence that
// does not form a valid chain.
var ErrInvalidRestore = errors.New("restore: block sequence is not a valid chain")

// CorruptionError reports the first block index at which verification
// failed, either because the stored hash disagrees with the recomputed one
// or because the link to the predecessor is broken.
type CorruptionError struct {
	Index int64
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("chain corruption detected at block %d", e.Index)
}
