package model

import "time"

// Role is the authorisation role of a user account.
type Role string

const (
	RoleUser    Role = "user"
	RoleCaddy   Role = "caddy"
	RoleStarter Role = "starter"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCaddy, RoleStarter, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether the role may act on equipment and other people's
// bookings.
func (r Role) Staff() bool { return r == RoleStarter || r == RoleAdmin }

// CaddyStatus tracks the duty cycle of a caddy.
type CaddyStatus string

const (
	CaddyAvailable   CaddyStatus = "available"
	CaddyBooked      CaddyStatus = "booked"
	CaddyOnDuty      CaddyStatus = "onDuty"
	CaddyOffDuty     CaddyStatus = "offDuty"
	CaddyResting     CaddyStatus = "resting"
	CaddyUnavailable CaddyStatus = "unavailable"
	CaddyCleaning    CaddyStatus = "cleaning"
)

// Valid reports whether s is one of the enumerated caddy statuses.
func (s CaddyStatus) Valid() bool {
	switch s {
	case CaddyAvailable, CaddyBooked, CaddyOnDuty, CaddyOffDuty, CaddyResting, CaddyUnavailable, CaddyCleaning:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users`
// table.  Caddies are users with Role == RoleCaddy; their CaddyStatus is
// only meaningful for that role but is initialised to available for
// every account.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – user, caddy, starter or admin.
//  CaddyStatus  – duty-cycle state for caddies.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64      `json:"id"`            // users.id
	Name         string      `json:"name"`          // users.name
	Email        string      `json:"email"`         // users.email
	PasswordHash string      `json:"-"`             // users.password_hash
	Role         Role        `json:"role"`          // users.role
	CaddyStatus  CaddyStatus `json:"caddy_status"`  // users.caddy_status
	CreatedAt    time.Time   `json:"created_at"`    // users.created_at
	UpdatedAt    time.Time   `json:"updated_at"`    // users.updated_at
}

// IsCaddy reports whether the user carries the caddy capability.
func (u *User) IsCaddy() bool { return u != nil && u.Role == RoleCaddy }
