package models

import "time"

// AccessClaims represents the claims carried by an issued access token
type AccessClaims struct {
	Subject   string     `json:"sub"`    // user ID
	ID        string     `json:"id"`     // duplicate of sub kept for clients that read it
	Email     string     `json:"email"`  // user email at issue time
	Name      string     `json:"name"`   // user name at issue time
	Status    UserStatus `json:"status"` // user status at issue time
	Issuer    string     `json:"iss"`
	IssuedAt  time.Time  `json:"iat"`
	ExpiresAt time.Time  `json:"exp"`
}
