package reservations

import (
	"errors"
	"fmt"
)

// Action is a staff command applied to a reservation.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
	ActionArrive Action = "arrive"
)

// EventKind identifies the customer notification emitted for a transition.
type EventKind string

const (
	EventNew       EventKind = "new"
	EventConfirmed EventKind = "confirmed"
	EventRejected  EventKind = "rejected"
	EventCancelled EventKind = "cancelled"
)

// ErrIllegalTransition indicates an action that is not allowed from the current status.
var ErrIllegalTransition = errors.New("reservations: illegal status transition")

var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionAccept: StatusConfirmed,
		ActionReject: StatusRejected,
	},
	StatusConfirmed: {
		ActionArrive: StatusArrived,
		ActionCancel: StatusCancelled,
	},
}

// Effect describes the side effects that accompany a transition.
type Effect struct {
	CreateAssignments bool
	DeleteAssignments bool
	Event             EventKind
}

var effects = map[Action]Effect{
	ActionAccept: {CreateAssignments: true, Event: EventConfirmed},
	ActionReject: {DeleteAssignments: true, Event: EventRejected},
	ActionCancel: {DeleteAssignments: true, Event: EventCancelled},
	ActionArrive: {},
}

// Transition returns the status reached by applying action to from.
func Transition(from Status, action Action) (Status, error) {
	next, ok := transitions[from][action]
	if !ok {
		return "", fmt.Errorf("%w: %s from %s", ErrIllegalTransition, action, from)
	}
	return next, nil
}

// EffectOf returns the side effects of action.
func EffectOf(action Action) Effect {
	return effects[action]
}

// ParseAction maps a route segment to an Action.
func ParseAction(value string) (Action, error) {
	switch Action(value) {
	case ActionAccept, ActionReject, ActionCancel, ActionArrive:
		return Action(value), nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrIllegalTransition, value)
	}
}
