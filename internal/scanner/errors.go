package scanner

import (
	"errors"
	"fmt"
	"time"
)

// Every failure in the scan workflow is recoverable by retry: the session
// drops back to idle and nothing is written to the ledger. Each kind maps to
// its own user-facing message in the handler layer.
var (
	ErrPermissionDenied       = errors.New("camera or location permission denied")
	ErrNotArmed               = errors.New("no armed scan session")
	ErrCooldownActive         = errors.New("scan cooldown active")
	ErrOutsideWindow          = errors.New("outside the scanning window")
	ErrOutOfRange             = errors.New("not at the school")
	ErrClassificationRejected = errors.New("photo not recognized as trash")
	ErrClassificationService  = errors.New("image verification unavailable")
	ErrInvalidRedemptionCode  = errors.New("invalid redemption code")
	ErrStaleSession           = errors.New("scan session no longer current")
)

// CooldownError carries the remaining wait so the client can show a
// countdown. errors.Is matches it against ErrCooldownActive.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("scan cooldown active for another %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
