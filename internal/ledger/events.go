package ledger

import "time"

type EventKind string

const (
	EventAccountSwitched EventKind = "account_switched"
	EventUserAdded       EventKind = "user_added"
	EventUserUpdated     EventKind = "user_updated"
	EventUserDeleted     EventKind = "user_deleted"
	EventProductAdded    EventKind = "product_added"
	EventProductUpdated  EventKind = "product_updated"
	EventProductDeleted  EventKind = "product_deleted"
	EventStaffChanged    EventKind = "staff_changed"
	EventTransfer        EventKind = "transfer"
	EventPurchase        EventKind = "purchase"
	EventDeposit         EventKind = "deposit"
	EventDeduction       EventKind = "deduction"
	EventRateUpdated     EventKind = "exchange_rate_updated"
	EventHistoryCleared  EventKind = "history_cleared"
	EventFactoryReset    EventKind = "factory_reset"
	EventRestored        EventKind = "restored"
)

// Event describes a committed change. UserIDs lists the users whose
// balance or record changed.
type Event struct {
	Account string    `json:"account"`
	Kind    EventKind `json:"kind"`
	Actor   string    `json:"actor,omitempty"`
	UserIDs []string  `json:"user_ids,omitempty"`
	At      time.Time `json:"at"`
}

// Listener receives events after the change is persisted. It runs on the
// mutating goroutine and must not block.
type Listener func(Event)
