package dto

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}
