package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/utils"
)

const (
	ResetTokenTTL  = 10 * time.Minute
	MinPasswordLen = 8

	// Recorded password-change times are backdated so a token issued in the
	// same instant as the change is not treated as stale.
	passwordChangeSkew = time.Second
)

// UserStore is the credential store the auth service works against.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, hashed string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
}

type Notifier interface {
	SendWelcome(ctx context.Context, u *models.User, url string) error
	SendPasswordReset(ctx context.Context, u *models.User, url string) error
}

type AuthService struct {
	users    UserStore
	tokens   *utils.TokenManager
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	cost     int
}

func NewAuthService(users UserStore, tokens *utils.TokenManager, notifier Notifier, log *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		cost:     utils.PasswordCost,
	}
}

// WithClock replaces the time source, for tests. The token manager should
// share the same clock.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// WithPasswordCost lowers the bcrypt cost, for tests.
func (s *AuthService) WithPasswordCost(cost int) *AuthService {
	s.cost = cost
	return s
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	AccountURL      string
}

func validatePassword(password, confirm string) error {
	if len(password) < MinPasswordLen {
		return apperr.Validation("Invalid input data. Password must be at least 8 characters long")
	}
	if password != confirm {
		return apperr.Validation("Invalid input data. Passwords are not the same!")
	}
	return nil
}

// Signup creates a user with role "user" and returns a session token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, "", apperr.Validation("Invalid input data. Please tell us your name")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, "", err
	}
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, "", apperr.Internal("Failed to hash password", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.notifier.SendWelcome(ctx, user, in.AccountURL); err != nil {
		s.log.Warn("welcome email failed", zap.String("user", user.ID.Hex()), zap.Error(err))
	}

	token, err := s.issue(user)
	return user, token, err
}

// Login checks credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperr.Validation("Please provide email and password!")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, "", err
	}
	if user == nil || !utils.CheckPasswordHash(password, user.Password) {
		return nil, "", apperr.Unauthorized("Incorrect email or password")
	}
	token, err := s.issue(user)
	return user, token, err
}

// Verify resolves a session token to its still-valid user.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized("You are not logged in! Please log in to get access.")
	}
	claims, err := s.tokens.ValidateJWT(token)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Your token has expired! Please log in again.", err)
	case err != nil:
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid token. Please log in again!", err)
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid token. Please log in again!", err)
	}
	user, err := s.users.FindByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("The user belonging to this token no longer exists.")
	}
	if err != nil {
		return nil, err
	}
	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperr.Unauthorized("User recently changed password! Please log in again.")
	}
	return user, nil
}

// RequireRole fails with Forbidden unless the user holds one of roles.
func (s *AuthService) RequireRole(user *models.User, roles ...string) error {
	if user == nil || !user.HasRole(roles...) {
		return apperr.Forbidden("You do not have permission to perform this action")
	}
	return nil
}

// IssuePasswordReset stores a hashed reset token for email and delivers the
// raw token through link. If delivery fails the stored token is cleared.
func (s *AuthService) IssuePasswordReset(ctx context.Context, email string, link func(raw string) string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", apperr.NotFound("There is no user with that email address.")
	}
	if err != nil {
		return "", err
	}

	raw, hashed, err := utils.NewResetToken()
	if err != nil {
		return "", apperr.Internal("Failed to generate reset token", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, hashed, s.now().Add(ResetTokenTTL)); err != nil {
		return "", err
	}

	if err := s.notifier.SendPasswordReset(ctx, user, link(raw)); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.log.Error("clear reset token", zap.String("user", user.ID.Hex()), zap.Error(clearErr))
		}
		return "", apperr.Internal("There was an error sending the email. Try again later!", err)
	}
	return raw, nil
}

// ConsumePasswordReset sets a new password for the holder of a live reset
// token. A token works once.
func (s *AuthService) ConsumePasswordReset(ctx context.Context, raw, password, confirm string) (*models.User, string, error) {
	user, err := s.users.FindByResetToken(ctx, utils.HashResetToken(raw), s.now())
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, "", apperr.InvalidInput("Token is invalid or has expired")
	}
	if err != nil {
		return nil, "", err
	}
	if err := s.setPassword(ctx, user, password, confirm); err != nil {
		return nil, "", err
	}
	token, err := s.issue(user)
	return user, token, err
}

// UpdatePassword changes the password of a logged-in user.
func (s *AuthService) UpdatePassword(ctx context.Context, userID primitive.ObjectID, current, password, confirm string) (*models.User, string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if !utils.CheckPasswordHash(current, user.Password) {
		return nil, "", apperr.Unauthorized("Your current password is wrong.")
	}
	if err := s.setPassword(ctx, user, password, confirm); err != nil {
		return nil, "", err
	}
	token, err := s.issue(user)
	return user, token, err
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password, confirm string) error {
	if err := validatePassword(password, confirm); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return apperr.Internal("Failed to hash password", err)
	}
	changedAt := s.now().Add(-passwordChangeSkew)
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return err
	}
	user.Password = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	return nil
}

func (s *AuthService) issue(user *models.User) (string, error) {
	token, err := s.tokens.GenerateJWT(user.ID.Hex())
	if err != nil {
		return "", apperr.Internal("Could not generate token", err)
	}
	return token, nil
}
