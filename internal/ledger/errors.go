package ledger

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNoActiveAccount        = errors.New("no active account")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrConflict               = errors.New("conflict")
	ErrResetNotConfirmed      = errors.New("reset not confirmed")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, "not_found"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidInput, "invalid_input"},
	{ErrNoActiveAccount, "no_active_account"},
	{ErrPersistenceUnavailable, "persistence_unavailable"},
	{ErrConflict, "conflict"},
	{ErrResetNotConfirmed, "reset_not_confirmed"},
	{ErrInvalidCredentials, "invalid_credentials"},
}

// Kind returns a short stable name for the ledger error wrapped in err,
// or "internal" when err is not one of ours.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
