package identity

import "time"

// Role determines which portal surface a user sees and which routes
// they may call.
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleResearcher Role = "researcher"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]bool{
	RolePatient:    true,
	RoleDoctor:     true,
	RoleResearcher: true,
	RoleAdmin:      true,
}

// User is one platform account. Doctors additionally carry a short
// numeric code patients can quote instead of a name.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Specialty    string    `json:"specialty,omitempty"`
	DoctorCode   string    `json:"doctor_code,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public strips fields that must never leave the server. The hash is
// already excluded from JSON; this exists so callers that copy users
// around do not leak it by accident.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
