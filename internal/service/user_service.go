package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/store"
)

// UserInput creates or edits an account. Password may be empty on update to
// keep the current one. Nil Permissions fall back to the role defaults.
type UserInput struct {
	Username    string              `json:"username" validate:"required,min=3,max=64"`
	Password    string              `json:"password" validate:"omitempty,min=6"`
	Name        string              `json:"name" validate:"required"`
	Email       string              `json:"email" validate:"omitempty,email"`
	Role        domain.Role         `json:"role" validate:"required,oneof=admin user"`
	BranchID    string              `json:"branchId"`
	Permissions *domain.Permissions `json:"permissions"`
	IsActive    *bool               `json:"isActive"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

var (
	ErrAdminRoleImmutable = errors.New("the role of an admin account cannot change")
	ErrAdminUndeletable   = errors.New("admin accounts cannot be deleted")
	ErrSelfDelete         = errors.New("users cannot delete their own account")
)

type UserService struct {
	store  *store.Store
	tokens *TokenIssuer
	cost   int
	now    func() time.Time
}

func NewUserService(st *store.Store, tokens *TokenIssuer) *UserService {
	return &UserService{store: st, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *UserService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// EnsureAdmin creates the default admin account when no users exist. It
// reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, store.WriteResult, error) {
	hash, err := s.hash(password)
	if err != nil {
		return false, store.WriteResult{}, err
	}
	created := false
	res, err := s.store.Users.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		if len(users) > 0 {
			return users, nil
		}
		created = true
		return append(users, domain.User{
			ID:           uuid.NewString(),
			Username:     username,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			Name:         "Administrator",
			Permissions:  domain.DefaultPermissions(domain.RoleAdmin),
			IsActive:     true,
			CreatedAt:    s.now().UTC(),
		}), nil
	})
	if err != nil {
		return false, res, err
	}
	if created {
		log.Info().Str("username", username).Msg("seeded default admin account")
	}
	return created, res, nil
}

// Login checks credentials of an active account and issues a token.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	users, err := s.store.Users.Get(ctx)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	for _, u := range users {
		if !strings.EqualFold(u.Username, username) {
			continue
		}
		if !u.IsActive || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			break
		}
		token, exp, err := s.tokens.Issue(u)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Token: token, ExpiresAt: exp, User: u.Public()}, nil
	}
	return nil, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
}

// Authenticate resolves a token to the current state of its account.
// Deactivated or deleted users are rejected even with a valid token.
func (s *UserService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	actor, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, err
	}
	u, err := getByID(ctx, s.store.Users, "user", actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if !u.IsActive {
		return domain.User{}, fmt.Errorf("%w: account disabled", domain.ErrUnauthorized)
	}
	return u, nil
}

func requireUserAdmin(actor domain.User) error {
	if !actor.HasPermission(domain.PermManageUsers) {
		return fmt.Errorf("%w: managing users requires %s", domain.ErrForbidden, domain.PermManageUsers)
	}
	return nil
}

func (s *UserService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := requireUserAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.Users.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UserService) Create(ctx context.Context, actor domain.User, in UserInput) (*Saved[domain.User], error) {
	if err := requireUserAdmin(actor); err != nil {
		return nil, err
	}
	verr := validateStruct(in)
	if in.Password == "" {
		verr.Add("password", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
	}
	applyUserInput(&u, in)

	res, err := s.store.Users.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		if err := checkUsername(users, u.Username, ""); err != nil {
			return nil, err
		}
		return append(users, u), nil
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.User]{Record: u.Public(), Write: res}, nil
}

func (s *UserService) Update(ctx context.Context, actor domain.User, id string, in UserInput) (*Saved[domain.User], error) {
	if err := requireUserAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(in).OrNil(); err != nil {
		return nil, err
	}
	var hash string
	if in.Password != "" {
		h, err := s.hash(in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	var updated domain.User
	res, err := s.store.Users.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		i, ok := findByID(users, id)
		if !ok {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		u := users[i]
		if u.Role == domain.RoleAdmin && in.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, ErrAdminRoleImmutable)
		}
		name := strings.TrimSpace(in.Username)
		if err := checkUsername(users, name, id); err != nil {
			return nil, err
		}
		u.Username = name
		if hash != "" {
			u.PasswordHash = hash
		}
		applyUserInput(&u, in)
		users[i] = u
		updated = u
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.User]{Record: updated.Public(), Write: res}, nil
}

func (s *UserService) Delete(ctx context.Context, actor domain.User, id string) (store.WriteResult, error) {
	if err := requireUserAdmin(actor); err != nil {
		return store.WriteResult{}, err
	}
	if actor.ID == id {
		return store.WriteResult{}, fmt.Errorf("%w: %s", domain.ErrForbidden, ErrSelfDelete)
	}
	return s.store.Users.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		i, ok := findByID(users, id)
		if !ok {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		if users[i].Role == domain.RoleAdmin {
			return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, ErrAdminUndeletable)
		}
		return append(users[:i:i], users[i+1:]...), nil
	})
}

func applyUserInput(u *domain.User, in UserInput) {
	u.Name = strings.TrimSpace(in.Name)
	u.Email = strings.TrimSpace(in.Email)
	u.Role = in.Role
	u.BranchID = in.BranchID
	if in.Permissions != nil {
		u.Permissions = *in.Permissions
	} else {
		u.Permissions = domain.DefaultPermissions(in.Role)
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
}

func checkUsername(users []domain.User, username, selfID string) error {
	for _, u := range users {
		if u.ID != selfID && strings.EqualFold(u.Username, username) {
			return fmt.Errorf("username %q: %w", username, domain.ErrAlreadyExists)
		}
	}
	return nil
}
