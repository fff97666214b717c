package roleplay

import (
	"errors"
	"fmt"

	"github.com/hrygo/rivalchat/store"
)

var (
	// ErrEmptyContent rejects a user message that is empty or only whitespace.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrPersonasMissing rejects a turn before both personas exist.
	ErrPersonasMissing = errors.New("personas have not been generated")
	// ErrRivalRequired rejects a group prompt without the rival persona.
	ErrRivalRequired = errors.New("group prompt requires a rival persona")
	// ErrTurnInFlight rejects a send or regeneration while another one is running.
	ErrTurnInFlight = errors.New("another turn is in progress")
)

// PartialTurnError reports a group turn where the first reply was kept but the second is missing.
type PartialTurnError struct {
	Missing store.SenderID
	Cause   error
}

func (e *PartialTurnError) Error() string {
	return fmt.Sprintf("%s did not reply: %v", e.Missing, e.Cause)
}

func (e *PartialTurnError) Unwrap() error {
	return e.Cause
}
