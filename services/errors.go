package services

import "errors"

// Failure classes surfaced by the scoring core. Validation failures are
// rejected before any write; conflicts are benign and swallowed by callers;
// poll timeouts are retryable by the user.
var (
	ErrAlreadyExists     = errors.New("record already exists")
	ErrNotFound          = errors.New("record not found")
	ErrLineupLocked      = errors.New("lineup is locked")
	ErrLineupNotLocked   = errors.New("lineup is not locked")
	ErrLineupIncomplete  = errors.New("lineup has unfilled slots")
	ErrPollTimeout       = errors.New("timed out waiting for the other team")
	ErrInvalidTransition = errors.New("invalid game state for this action")
	ErrExclusiveMarkers  = errors.New("break-and-run and golden-break are mutually exclusive")
	ErrGamesOutstanding  = errors.New("not every game is confirmed")
)
