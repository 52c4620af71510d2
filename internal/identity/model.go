package identity

import "time"

// User is a registered account holder and the credential record used by
// login and password reset.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Registration is the input to Service.Register.
type Registration struct {
	Email    string
	Password string
	Name     string
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}

// PublicUser is the JSON view of a User returned to clients.
type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin"`
}

// Public strips credential fields.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt, LastLogin: u.LastLogin}
}
