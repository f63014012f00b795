package orders

import "testing"

func TestCanTransition_UserRules(t *testing.T) {
	// user may only cancel, and only early
	if !CanTransition(ActorUser, StatusPending, StatusCancelled) {
		t.Fatalf("user should cancel pending")
	}
	if !CanTransition(ActorUser, StatusConfirmed, StatusCancelled) {
		t.Fatalf("user should cancel confirmed")
	}
	if CanTransition(ActorUser, StatusShipped, StatusCancelled) {
		t.Fatalf("user must not cancel shipped")
	}
	if CanTransition(ActorUser, StatusDelivered, StatusCancelled) {
		t.Fatalf("user must not cancel delivered")
	}
	// any non-cancel target is rejected regardless of current state
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusShipped, StatusCancelled} {
		if CanTransition(ActorUser, from, StatusDelivered) {
			t.Fatalf("user must not set delivered from %s", from)
		}
		if CanTransition(ActorUser, from, StatusShipped) {
			t.Fatalf("user must not set shipped from %s", from)
		}
	}
}

func TestCanTransition_AdminRules(t *testing.T) {
	// forward path and free regressions below delivered
	for _, tc := range []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusConfirmed, StatusShipped},
		{StatusShipped, StatusDelivered},
		{StatusShipped, StatusConfirmed}, // intermediate regression allowed
		{StatusConfirmed, StatusPending},
		{StatusCancelled, StatusPending},
		{StatusDelivered, StatusReturned},
		{StatusDelivered, StatusCancelled},
		{StatusReturned, StatusShipped},
	} {
		if !CanTransition(ActorAdmin, tc.from, tc.to) {
			t.Fatalf("admin %s -> %s should be allowed", tc.from, tc.to)
		}
	}
	// no regression out of delivered onto the forward path
	for _, to := range []Status{StatusPending, StatusConfirmed, StatusShipped} {
		if CanTransition(ActorAdmin, StatusDelivered, to) {
			t.Fatalf("admin delivered -> %s must be rejected", to)
		}
	}
}

func TestCanTransition_Invalid(t *testing.T) {
	if CanTransition(ActorAdmin, StatusPending, Status("bogus")) {
		t.Fatalf("unknown target accepted")
	}
	if CanTransition(ActorAdmin, StatusPending, StatusPending) {
		t.Fatalf("same-state is not a transition")
	}
	if CanTransition(Actor("ghost"), StatusPending, StatusConfirmed) {
		t.Fatalf("unknown actor accepted")
	}
}
