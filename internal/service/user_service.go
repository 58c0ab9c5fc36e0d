package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
)

// UserService handles account business logic.
type UserService struct {
	userRepo    *repository.UserRepository
	authService *AuthService
}

// NewUserService creates a new UserService.
func NewUserService(userRepo *repository.UserRepository, authService *AuthService) *UserService {
	return &UserService{userRepo: userRepo, authService: authService}
}

// Login checks credentials and issues a token.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.authService.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Register creates a student account and logs it in.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.LoginResponse, error) {
	u, err := s.create(ctx, req.Email, req.Name, req.Password, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// CreateAdmin creates an administrator account.
func (s *UserService) CreateAdmin(ctx context.Context, email, name, password string) (*model.User, error) {
	return s.create(ctx, email, name, password, model.RoleAdmin)
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ─── Profile & subscription ─────────────────────────────────────────────────

// ErrRoleChangeForbidden is returned when an administrator tries to switch
// plans through the profile endpoint.
var ErrRoleChangeForbidden = errors.New("role cannot be changed for this account")

const recentSubscriptionEvents = 20

// checkPlanChange validates a requested plan against the caller's role.
func checkPlanChange(current model.Role, requested *model.Role) error {
	if requested == nil || *requested == current {
		return nil
	}
	if current == model.RoleAdmin {
		return ErrRoleChangeForbidden
	}
	if *requested != model.RoleStudent && *requested != model.RolePremium {
		return ErrRoleChangeForbidden
	}
	return nil
}

// UpdateProfile applies req to the user and issues a token carrying the new
// role. currentRole is the role from the caller's token.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, currentRole model.Role, req model.UpdateProfileRequest) (*model.LoginResponse, error) {
	if err := checkPlanChange(currentRole, req.Role); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	u, err := s.userRepo.UpdateProfile(ctx, userID, req.Name, req.Role)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Subscription returns the user's current plan.
func (s *UserService) Subscription(ctx context.Context, userID int) (*model.SubscriptionStatus, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.SubscriptionStatus{
		Plan:         u.Role,
		Premium:      u.Role.HasPremiumAccess(),
		PremiumSince: u.PremiumSince,
	}, nil
}

// HasPremiumAccess reads the stored role, so a downgrade takes effect
// before the caller's token expires.
func (s *UserService) HasPremiumAccess(ctx context.Context, userID int) (bool, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Role.HasPremiumAccess(), nil
}

// SubscriptionOverview summarizes plans for administrators.
func (s *UserService) SubscriptionOverview(ctx context.Context) (*model.SubscriptionOverview, error) {
	return s.userRepo.SubscriptionOverview(ctx, recentSubscriptionEvents)
}

func (s *UserService) create(ctx context.Context, email, name, password string, role model.Role) (*model.User, error) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) issue(u *model.User) (*model.LoginResponse, error) {
	token, expires, err := s.authService.GenerateToken(u)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, ExpiresAt: expires, User: *u}, nil
}
