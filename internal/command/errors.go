package command

import "errors"

// ErrInvalidCommand is the sentinel for every malformed-input case the
// parser can detect: unknown verb, wrong argument count, non-integer
// numeric argument. Matches the teacher's pattern of a package-level
// sentinel wrapped with context via fmt.Errorf("%w: ...", ErrX).
var ErrInvalidCommand = errors.New("invalid command")
