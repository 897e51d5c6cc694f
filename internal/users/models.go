package users

import "time"

// User is an account known to the authentication service
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LookupResponse is the public view of a user returned by the lookup endpoint
type LookupResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toLookupResponse(u *User) LookupResponse {
	return LookupResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}
