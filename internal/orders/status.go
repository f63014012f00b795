package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Actor is the role requesting a transition.
type Actor string

const (
	ActorUser  Actor = "user"
	ActorAdmin Actor = "admin"
)

// forwardRank orders the happy path; cancelled/returned are side exits.
var forwardRank = map[Status]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusShipped:   2,
	StatusDelivered: 3,
}

// CanTransition decides whether actor may move an order from -> to.
// Users may only cancel, and only out of pending or confirmed. Admins
// may set any state except regressing out of delivered onto an earlier
// forward state; cancelled and returned are always reachable for them.
// Same-state requests are the caller's concern (treated as no-ops by
// the lifecycle engine), not a transition.
func CanTransition(actor Actor, from, to Status) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	switch actor {
	case ActorUser:
		return to == StatusCancelled && (from == StatusPending || from == StatusConfirmed)
	case ActorAdmin:
		if to == StatusCancelled || to == StatusReturned {
			return true
		}
		if from == StatusDelivered {
			toRank, forward := forwardRank[to]
			if forward && toRank < forwardRank[StatusDelivered] {
				return false
			}
		}
		return true
	}
	return false
}
