package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidAccount     = errors.New("auth: invalid account data")
	ErrAccountDisabled    = errors.New("auth: account is disabled")
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"

	minPasswordLength = 8
)

// Roles a user can pick at registration. Admins are only seeded.
var selfServiceRoles = map[string]bool{
	models.RoleDealer:   true,
	models.RoleSupplier: true,
	models.RoleTrader:   true,
}

type RegisterInput struct {
	Email       string `json:"email" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role" binding:"required"`
	CompanyName string `json:"companyName"`
	GSTNumber   string `json:"gstNumber"`
}

// Accounts manages login accounts in the accounts collection.
type Accounts struct {
	store  store.Store
	tokens *Tokens
	now    func() time.Time

	// email uniqueness is checked and written under mu
	mu sync.Mutex
}

func NewAccounts(st store.Store, tokens *Tokens) *Accounts {
	return &Accounts{store: st, tokens: tokens, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.Account{}, fmt.Errorf("%w: email %q", ErrInvalidAccount, in.Email)
	}
	if in.Name == "" {
		return models.Account{}, fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if len(in.Password) < minPasswordLength {
		return models.Account{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidAccount, minPasswordLength)
	}
	if !selfServiceRoles[in.Role] {
		return models.Account{}, fmt.Errorf("%w: role %q", ErrInvalidAccount, in.Role)
	}

	acc, err := a.create(ctx, in.Email, in.Name, in.Password, in.Role)
	if err != nil {
		return models.Account{}, err
	}

	// Hồ sơ công ty ban đầu, người dùng có thể cập nhật sau
	profile := map[string]interface{}{
		"uid":         acc.UserID,
		"companyName": firstNonEmpty(in.CompanyName, in.Name),
	}
	if in.GSTNumber != "" {
		profile["gstNumber"] = strings.ToUpper(strings.TrimSpace(in.GSTNumber))
	}
	if err := a.store.Merge(ctx, models.ProfilesCollection, acc.UserID, profile); err != nil {
		log.Warn().Err(err).Str("uid", acc.UserID).Msg("failed to create initial profile")
	}
	return acc, nil
}

func (a *Accounts) create(ctx context.Context, email, name, password, role string) (models.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.findByEmail(ctx, email); err == nil {
		return models.Account{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.Account{}, err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}
	acc := models.Account{
		UserID:    uuid.New().String(),
		Email:     email,
		Name:      name,
		Password:  hashed,
		Role:      role,
		Status:    StatusActive,
		CreatedAt: a.now().UTC(),
	}
	if err := a.store.Put(ctx, models.AccountsCollection, acc.UserID, acc); err != nil {
		return models.Account{}, fmt.Errorf("failed to save account: %w", err)
	}
	return acc, nil
}

// Login checks the password and returns a signed token.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, models.Account, error) {
	acc, err := a.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", models.Account{}, ErrInvalidCredentials
		}
		return "", models.Account{}, err
	}
	if !CheckPasswordHash(password, acc.Password) {
		return "", models.Account{}, ErrInvalidCredentials
	}
	if acc.Status != StatusActive {
		return "", models.Account{}, ErrAccountDisabled
	}
	token, err := a.tokens.GenerateJWT(acc)
	if err != nil {
		return "", models.Account{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, acc, nil
}

func (a *Accounts) Get(ctx context.Context, uid string) (models.Account, error) {
	var acc models.Account
	err := a.store.Get(ctx, models.AccountsCollection, uid, &acc)
	return acc, err
}

// EnsureAdmin creates the admin account once. It reports whether one was created.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, fmt.Errorf("%w: admin email and password are required", ErrInvalidAccount)
	}
	_, err := a.create(ctx, email, "Administrator", password, models.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}

func (a *Accounts) findByEmail(ctx context.Context, email string) (models.Account, error) {
	snaps, err := a.store.List(ctx, models.AccountsCollection, store.Where(store.Eq("email", email)))
	if err != nil {
		return models.Account{}, err
	}
	if len(snaps) == 0 {
		return models.Account{}, store.ErrNotFound
	}
	var acc models.Account
	if err := snaps[0].Decode(&acc); err != nil {
		return models.Account{}, err
	}
	return acc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
