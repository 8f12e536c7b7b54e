// README: Status transition policy used when appending timeline entries.
package order

import "fmt"

// Validator decides whether an order may move from one status to another.
// A nil Validator accepts every move.
type Validator func(from, to Status) error

// AllowedTransitions represents the order state flow (diagram) as code.
// StatusNone is the state of an order that has not been placed yet.
var AllowedTransitions = map[Status][]Status{
	StatusNone:      {StatusPending},
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPicked, StatusCancelled},
	StatusPicked:    {StatusOnway, StatusCancelled},
	StatusOnway:     {StatusDelivered, StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// DefaultValidator enforces AllowedTransitions.
func DefaultValidator(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, displayStatus(from), to)
	}
	return nil
}

// customerCancellable lists the statuses in which customers may still
// cancel on their own; later cancellations go through the team.
var customerCancellable = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
}

func displayStatus(s Status) string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}
