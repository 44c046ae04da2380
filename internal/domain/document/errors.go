package document

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrObjectMissing   = errors.New("stored object missing")
	ErrAlreadyAccepted = errors.New("document already accepted")
)

// TooSoonError rejects a retry inside the cooldown window. Remaining is the
// number of whole seconds until the next attempt is allowed.
type TooSoonError struct {
	Remaining int64
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("retry too soon, wait %d seconds", e.Remaining)
}
