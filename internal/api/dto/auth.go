package dto

// LoginRequest is the dashboard login payload
type LoginRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
