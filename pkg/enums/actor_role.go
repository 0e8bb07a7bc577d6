package enums

import "fmt"

// ActorRole identifies who is acting on an order or cart.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RolePartner  ActorRole = "partner"
	RoleAdmin    ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	RoleCustomer,
	RolePartner,
	RoleAdmin,
}

// IsValid reports whether the value matches a known role.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
