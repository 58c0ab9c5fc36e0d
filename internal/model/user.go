package model

import "time"

// Role names carried in JWT claims.
type Role string

const (
	RoleStudent Role = "student"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// HasPremiumAccess reports whether the role may open premium content.
func (r Role) HasPremiumAccess() bool { return r == RolePremium || r == RoleAdmin }

// Subscription actions recorded when a learner changes plan.
const (
	SubscriptionStarted   = "subscribed"
	SubscriptionCancelled = "cancelled"
)

// User is a learner or administrator account.
type User struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// RegisterRequest is the payload for self-service student sign-up.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// UpdateProfileRequest changes the caller's display name and/or plan. Role
// switches a learner between the free and premium plans.
type UpdateProfileRequest struct {
	Name *string `json:"name" binding:"omitempty,min=2,max=255"`
	Role *Role   `json:"role" binding:"omitempty,oneof=student premium"`
}

// SubscriptionStatus is a learner's current plan.
type SubscriptionStatus struct {
	Plan         Role       `json:"plan"`
	Premium      bool       `json:"premium"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`
}

// SubscriptionEvent is one plan change.
type SubscriptionEvent struct {
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionOverview backs the admin subscription dashboard.
type SubscriptionOverview struct {
	Students     int64               `json:"students"`
	PremiumUsers int64               `json:"premium_users"`
	Recent       []SubscriptionEvent `json:"recent"`
}
