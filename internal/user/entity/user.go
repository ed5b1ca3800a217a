package entity

import "time"

// User represents an account row in the `users` table.
type User struct {
	ID            string     `db:"id"`
	Email         string     `db:"email"`
	PasswordHash  string     `db:"password_hash"`
	PasswordAlgo  *string    `db:"password_algo"`
	Name          string     `db:"name"`
	Phone         *string    `db:"phone"`
	UserType      string     `db:"user_type"`
	Location      *string    `db:"location"`
	IsActive      bool       `db:"is_active"`
	EmailVerified bool       `db:"email_verified"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	LastLogin     *time.Time `db:"last_login"`
}

// Profile is the public projection returned to clients.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	UserType  string    `json:"user_type"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		UserType:  u.UserType,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
	}
}
