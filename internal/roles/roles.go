// Package roles defines the closed set of dashboard roles and where each one lands.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

type Role int

const (
	Unknown Role = iota
	Admin
	ProductOwner
	Developer
	ScrumMaster
	SuperAdmin
	BillingAdmin
)

// All lists every assignable role.
var All = []Role{Admin, ProductOwner, Developer, ScrumMaster, SuperAdmin, BillingAdmin}

func (r Role) String() string {
	switch r {
	case Admin:
		return "admin"
	case ProductOwner:
		return "product_owner"
	case Developer:
		return "developer"
	case ScrumMaster:
		return "scrum_master"
	case SuperAdmin:
		return "superadmin"
	case BillingAdmin:
		return "billing_admin"
	default:
		return "unknown"
	}
}

// Label is the human-readable role name stored on the server.
func (r Role) Label() string {
	switch r {
	case Admin:
		return "Admin"
	case ProductOwner:
		return "Product Owner"
	case Developer:
		return "Developer"
	case ScrumMaster:
		return "Scrum Master"
	case SuperAdmin:
		return "Super Admin"
	case BillingAdmin:
		return "Billing Admin"
	default:
		return "Unknown"
	}
}

// Home is the landing route after login. This is the only role-to-route table.
func (r Role) Home() string {
	switch r {
	case Admin:
		return "/admin/dashboard"
	case ProductOwner:
		return "/product-owner/dashboard"
	case Developer:
		return "/developer/dashboard"
	case ScrumMaster:
		return "/scrum-master/dashboard"
	case SuperAdmin:
		return "/superadmin/dashboard"
	case BillingAdmin:
		return "/billing/dashboard"
	default:
		return LoginRoute
	}
}

// LoginRoute is where unauthenticated sessions are sent.
const LoginRoute = "/login"

// CanManageUsers reports whether the role sees the user management screens.
func (r Role) CanManageUsers() bool {
	switch r {
	case Admin, SuperAdmin:
		return true
	default:
		return false
	}
}

// CanManageBacklog reports whether the role may create and reorder backlog items.
func (r Role) CanManageBacklog() bool {
	switch r {
	case Admin, SuperAdmin, ProductOwner, ScrumMaster:
		return true
	default:
		return false
	}
}

// Parse accepts role names in any of the spellings used by the API
// ("Product Owner", "product_owner", "ProductOwner", "productowner").
func Parse(name string) (Role, error) {
	key := normalize(name)
	for _, r := range All {
		if normalize(r.String()) == key || normalize(r.Label()) == key {
			return r, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
