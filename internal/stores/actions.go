package stores

import (
	"errors"

	"dxt-admin/internal/domain"
)

var (
	ErrInvalidRouteStatus = errors.New("route product status cannot be requested")
	ErrConfirmRequired    = errors.New("suspension must be confirmed")
)

// SuspendStep is where the suspend/activate control stands.
type SuspendStep int

const (
	SuspendIdle SuspendStep = iota
	SuspendConfirming
)

// SuspendFlow gates suspension behind an inline confirmation. Activation
// goes through immediately.
type SuspendFlow struct {
	Active bool
	Step   SuspendStep
}

func NewSuspendFlow(store domain.StoreDetail) SuspendFlow {
	return SuspendFlow{Active: store.IsActive}
}

// Request starts the toggle. It reports whether the request can be sent
// now; suspending an active store moves to the confirmation step instead.
func (f SuspendFlow) Request() (SuspendFlow, bool) {
	if f.Active {
		f.Step = SuspendConfirming
		return f, false
	}
	return f, true
}

// Confirm accepts the confirmation and returns the suspend flag to send.
func (f SuspendFlow) Confirm() (SuspendFlow, bool, error) {
	if f.Active && f.Step != SuspendConfirming {
		return f, false, ErrConfirmRequired
	}
	f.Step = SuspendIdle
	return f, f.Active, nil
}

func (f SuspendFlow) Cancel() SuspendFlow {
	f.Step = SuspendIdle
	return f
}

// RouteAction is one route-product status button.
type RouteAction struct {
	Status   domain.RouteProductStatus
	Label    string
	Disabled bool
}

// RouteProductActions lists the requestable statuses, disabling the one
// the store already has.
func RouteProductActions(current domain.RouteProductStatus) []RouteAction {
	actions := make([]RouteAction, 0, len(domain.RequestableRouteStatuses))
	for _, s := range domain.RequestableRouteStatuses {
		actions = append(actions, RouteAction{
			Status:   s,
			Label:    RouteStatusLabel(s),
			Disabled: s == current,
		})
	}
	return actions
}

// RouteStatusLabel is the badge text for a route product status.
func RouteStatusLabel(s domain.RouteProductStatus) string {
	switch s {
	case domain.RouteProductActivated, "active":
		return "Activated"
	case domain.RouteProductUnderReview, "pending":
		return "Under Review"
	case domain.RouteProductRejected:
		return "Rejected"
	default:
		return "Not Requested"
	}
}
