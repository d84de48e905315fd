package statemachine

import (
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
)

// Subject is the slice of an order the transition policy looks at.
type Subject struct {
	Status            models.OrderStatus
	CustomerID        uint
	RestaurantOwnerID uint
	// PartnerUserID is the user behind the assigned delivery partner, nil when unassigned.
	PartnerUserID *uint
}

// Transition defines a valid state change and which role can perform it
type Transition struct {
	From models.OrderStatus `json:"from"`
	To   models.OrderStatus `json:"to"`
	Role models.UserRole    `json:"role"`
}

var nonTerminal = []models.OrderStatus{
	models.StatusPlaced,
	models.StatusConfirmed,
	models.StatusPreparing,
	models.StatusReadyForPickup,
	models.StatusOutForDelivery,
}

// roleTargets lists, per role, the targets it may request and the states it may request them from.
// Admin is not listed: it may move a non-terminal order anywhere.
var roleTargets = []struct {
	role    models.UserRole
	targets []models.OrderStatus
	from    []models.OrderStatus
}{
	{
		role:    models.RoleRestaurantOwner,
		targets: []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReadyForPickup},
		from:    nonTerminal,
	},
	{
		role:    models.RoleDeliveryPartner,
		targets: []models.OrderStatus{models.StatusOutForDelivery, models.StatusDelivered},
		from:    nonTerminal,
	},
	{
		role:    models.RoleCustomer,
		targets: []models.OrderStatus{models.StatusCancelled},
		from:    []models.OrderStatus{models.StatusPlaced, models.StatusConfirmed},
	},
}

// validTransitions is the authoritative role table, expanded to one row per (from, to, role).
var validTransitions = func() []Transition {
	var out []Transition
	for _, rt := range roleTargets {
		for _, from := range rt.from {
			for _, to := range rt.targets {
				if from == to {
					continue
				}
				out = append(out, Transition{From: from, To: to, Role: rt.role})
			}
		}
	}
	return out
}()

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
	Role models.UserRole
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Role}] = true
	}
	return m
}()

// adjacent is the step-by-step lifecycle used when strict mode is on.
var adjacent = map[models.OrderStatus]models.OrderStatus{
	models.StatusPlaced:         models.StatusConfirmed,
	models.StatusConfirmed:      models.StatusPreparing,
	models.StatusPreparing:      models.StatusReadyForPickup,
	models.StatusReadyForPickup: models.StatusOutForDelivery,
	models.StatusOutForDelivery: models.StatusDelivered,
}

// Adjacent reports whether to is the next lifecycle step after from. CANCELLED is adjacent to
// every non-terminal state.
func Adjacent(from, to models.OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	return to == models.StatusCancelled || adjacent[from] == to
}

// Decide is the pure transition policy. Checks run in order: terminal state, ownership, unknown
// target, same-state request, role table, then adjacency when strict is set.
// Admin skips ownership, the table and adjacency but never the terminal one.
func Decide(s Subject, actor models.Actor, target models.OrderStatus, strict bool) error {
	if s.Status.Terminal() {
		return apperr.ErrAlreadyTerminal
	}
	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin && !owns(s, actor) {
		return apperr.Forbidden("%s %d is not a party to this order", actor.Role, actor.UserID)
	}
	if !target.Valid() {
		return apperr.Validation("unknown order status %q", target)
	}
	if target == s.Status {
		return apperr.IllegalTransition("order is already %s", target)
	}
	if isAdmin {
		return nil
	}
	if !transitionMap[transitionKey{From: s.Status, To: target, Role: actor.Role}] {
		return apperr.Forbidden("%s may not move an order from %s to %s", actor.Role, s.Status, target)
	}
	if strict && !Adjacent(s.Status, target) {
		return apperr.IllegalTransition("%s -> %s skips a lifecycle step; valid next states: %s",
			s.Status, target, describeValidFrom(s.Status))
	}
	return nil
}

func owns(s Subject, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleCustomer:
		return s.CustomerID == actor.UserID
	case models.RoleRestaurantOwner:
		return s.RestaurantOwnerID == actor.UserID
	case models.RoleDeliveryPartner:
		return s.PartnerUserID != nil && *s.PartnerUserID == actor.UserID
	}
	return false
}

// AllowedTargets lists the statuses actor could move the order to right now.
func AllowedTargets(s Subject, actor models.Actor, strict bool) []models.OrderStatus {
	var out []models.OrderStatus
	for _, target := range models.OrderStatuses {
		if Decide(s, actor, target, strict) == nil {
			out = append(out, target)
		}
	}
	return out
}

// ValidTransitionsFrom returns the adjacent next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, to := range models.OrderStatuses {
		if Adjacent(status, to) {
			nexts = append(nexts, to)
		}
	}
	return nexts
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the role table for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
