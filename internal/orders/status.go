package orders

type Status string

const (
	StatusPlaced     Status = "PLACED"
	StatusProcessing Status = "PROCESSING"
	StatusShipping   Status = "SHIPPING"
	StatusShipped    Status = "SHIPPED"
	StatusCompleted  Status = "COMPLETED"
	StatusReturned   Status = "RETURNED"
	StatusCancelled  Status = "CANCELLED"
	StatusOnHold     Status = "ON_HOLD"
)

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Final statuses accept no further transition.
func (s Status) Final() bool { return len(validNext[s]) == 0 }

// ON_HOLD may only go back to the status it interrupted, or be cancelled.
var validNext = map[Status]map[Status]bool{
	StatusPlaced:     {StatusProcessing: true, StatusCancelled: true, StatusOnHold: true},
	StatusProcessing: {StatusShipping: true, StatusCancelled: true, StatusOnHold: true},
	StatusShipping:   {StatusShipped: true, StatusCancelled: true, StatusOnHold: true},
	StatusShipped:    {StatusCompleted: true, StatusReturned: true, StatusCancelled: true},
	StatusOnHold:     {StatusPlaced: true, StatusProcessing: true, StatusShipping: true, StatusCancelled: true},
	StatusCompleted:  {},
	StatusReturned:   {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Action is an admin command on an order.
type Action string

const (
	ActionProcessing Action = "processing"
	ActionShipping   Action = "shipping"
	ActionShipped    Action = "shipped"
	ActionComplete   Action = "complete"
	ActionReturn     Action = "return"
	ActionCancel     Action = "cancel"
	ActionHold       Action = "hold"
	ActionUnhold     Action = "unhold"
)

var actionTarget = map[Action]Status{
	ActionProcessing: StatusProcessing,
	ActionShipping:   StatusShipping,
	ActionShipped:    StatusShipped,
	ActionComplete:   StatusCompleted,
	ActionReturn:     StatusReturned,
	ActionCancel:     StatusCancelled,
	ActionHold:       StatusOnHold,
}

func (a Action) Valid() bool {
	_, ok := actionTarget[a]
	return ok || a == ActionUnhold
}

// target resolves the status an action leads to. Unhold returns to the
// status that was current before the hold.
func (a Action) target(beforeHold Status) Status {
	if a == ActionUnhold {
		return beforeHold
	}
	return actionTarget[a]
}

// restocks reports whether reaching s puts the order's items back in stock.
func restocks(s Status) bool { return s == StatusCancelled || s == StatusReturned }

var defaultMessage = map[Status]string{
	StatusPlaced:     "Order placed",
	StatusProcessing: "Order confirmed and being processed",
	StatusShipping:   "Order handed to the courier",
	StatusShipped:    "Order shipped",
	StatusCompleted:  "Order delivered",
	StatusReturned:   "Order returned",
	StatusCancelled:  "Order cancelled",
	StatusOnHold:     "Order on hold",
}
