package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Employee numbers are four digits.
const (
	MinENumber = 1000
	MaxENumber = 9999
)

// ErrInvalidCredentials is returned by Authenticate for an unknown
// employee number, a wrong password or an inactive account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrENumberTaken is returned when registering a duplicate employee number.
var ErrENumberTaken = errors.New("employee number already registered")

// UserStore persists staff accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByENumber(ctx context.Context, eNumber int) (model.User, error)
	GetUserByID(ctx context.Context, id uint64) (model.User, error)
}

// UserService registers staff and issues access tokens.
type UserService struct {
	store      UserStore
	secret     string
	tokenTTL   time.Duration
	bcryptCost int
	log        *slog.Logger
}

func NewUserService(store UserStore, secret string, tokenTTL time.Duration, bcryptCost int, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{store: store, secret: secret, tokenTTL: tokenTTL, bcryptCost: bcryptCost, log: log.With("component", "users")}
}

// Register creates an active user.  Role defaults to EMPLOYEE.
func (s *UserService) Register(ctx context.Context, eNumber int, password, role string) (model.User, error) {
	if eNumber < MinENumber || eNumber > MaxENumber {
		return model.User{}, invalidf("e_number must be between %d and %d", MinENumber, MaxENumber)
	}
	if err := utils.CheckPassword(password); err != nil {
		return model.User{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	switch role = strings.ToUpper(strings.TrimSpace(role)); role {
	case "":
		role = model.RoleEmployee
	case model.RoleEmployee, model.RoleAdmin:
	default:
		return model.User{}, invalidf("role must be %s or %s", model.RoleEmployee, model.RoleAdmin)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{ENumber: eNumber, PasswordHash: hash, Role: role, IsActive: true}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, ErrENumberTaken
		}
		return model.User{}, err
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate verifies credentials and returns a signed access token.
func (s *UserService) Authenticate(ctx context.Context, eNumber int, password string) (model.User, utils.AccessToken, error) {
	u, err := s.store.GetUserByENumber(ctx, eNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, utils.AccessToken{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, utils.AccessToken{}, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, utils.AccessToken{}, ErrInvalidCredentials
	}
	tok, err := utils.NewAccessToken(s.secret, u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return model.User{}, utils.AccessToken{}, err
	}
	return u, tok, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, notFound(err, "user")
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap administrator unless the employee
// number is already registered.
func (s *UserService) EnsureAdmin(ctx context.Context, eNumber int, password string) error {
	if _, err := s.store.GetUserByENumber(ctx, eNumber); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err := s.Register(ctx, eNumber, password, model.RoleAdmin)
	if errors.Is(err, ErrENumberTaken) {
		return nil
	}
	return err
}
