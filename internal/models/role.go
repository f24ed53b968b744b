package models

// Role is the set of roles a user record can carry
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
	RolePatient      Role = "patient"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist, RolePatient:
		return true
	default:
		return false
	}
}

// AdminAssignable reports whether an admin may assign this role when creating a user.
// Patient accounts are created through public registration, never by an admin.
func (r Role) AdminAssignable() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
