package user

type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleCashier  Role = "cashier"
	RoleEmployee Role = "employee"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleCashier, RoleEmployee:
		return true
	}
	return false
}

// Actor identifies who performs an operation and in which business.
type Actor struct {
	UserID     string
	BusinessID string
	Role       Role
}

// System is the actor used by scheduled jobs.
func System(businessID string) Actor {
	return Actor{UserID: "system", BusinessID: businessID, Role: RoleOwner}
}
