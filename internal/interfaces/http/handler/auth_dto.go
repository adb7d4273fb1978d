package handler

import appidentity "github.com/cashflow/backend/internal/application/identity"

// LoginRequest is the login body
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshTokenRequest is the refresh body. The token may come from the
// refresh cookie instead.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse carries the issued tokens and the account
type LoginResponse struct {
	Token appidentity.TokenResult `json:"token"`
	User  appidentity.UserInfo    `json:"user"`
}

// RefreshTokenResponse carries the replacement tokens
type RefreshTokenResponse struct {
	Token appidentity.TokenResult `json:"token"`
}

// CurrentUserResponse describes the logged in account
type CurrentUserResponse struct {
	User appidentity.UserInfo `json:"user"`
}

// LogoutResponse confirms a logout
type LogoutResponse struct {
	Message string `json:"message"`
}
