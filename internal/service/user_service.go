package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"careshare-service/internal/apperr"
	"careshare-service/internal/auth"
	"careshare-service/internal/models"
	"careshare-service/internal/store"
	"careshare-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ForgotPasswordNote = "If this email exists in our system, a password reset link will be sent."

type newPassword struct {
	Password string `binding:"required,min=6"`
}

// UserService handles registration, login and password resets
type UserService struct {
	users       UserStore
	tokens      *auth.TokenManager
	revoker     TokenRevoker
	notifier    Notifier
	bcryptCost  int
	resetExpiry time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewUserService creates a new user service. revoker may be nil, in which case
// logout only clears the client cookie.
func NewUserService(
	users UserStore,
	tokens *auth.TokenManager,
	revoker TokenRevoker,
	notifier Notifier,
	bcryptCost int,
	resetExpiry time.Duration,
) *UserService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &UserService{
		users:       users,
		tokens:      tokens,
		revoker:     revoker,
		notifier:    notifier,
		bcryptCost:  bcryptCost,
		resetExpiry: resetExpiry,
		logger:      util.Component("user"),
		now:         time.Now,
	}
}

// Registration is a sign-up form
type Registration struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
}

// Register creates a ROLE_USER account
func (s *UserService) Register(ctx context.Context, in Registration) (*UserView, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := validate(&in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to register user"))
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Roles:        []string{models.RoleUser},
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Email is already registered!")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to register user"))
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))

	view := newUserView(user)
	return &view, nil
}

// Login verifies credentials and issues an access token
func (s *UserService) Login(ctx context.Context, email, password string) (auth.AccessToken, *UserView, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return auth.AccessToken{}, nil, apperr.Validation("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return auth.AccessToken{}, nil, apperr.Unauthenticated("Invalid email or password")
	}
	if err != nil {
		return auth.AccessToken{}, nil, util.RecordError(span, apperr.Wrap(err, "Failed to log in"))
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return auth.AccessToken{}, nil, apperr.Unauthenticated("Invalid email or password")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return auth.AccessToken{}, nil, util.RecordError(span, apperr.Wrap(err, "Failed to log in"))
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))

	view := newUserView(user)
	return token, &view, nil
}

// Logout denylists the token until it would have expired anyway
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.Remaining()
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return apperr.Wrap(err, "Failed to log out")
	}
	return nil
}

// Me returns the caller's account
func (s *UserService) Me(ctx context.Context, identity models.Identity) (*UserView, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load user")
	}
	view := newUserView(user)
	return &view, nil
}

// ForgotPassword issues a reset token and emails a reset link. It reports
// success whether or not the email is registered.
func (s *UserService) ForgotPassword(ctx context.Context, email, baseURL string) error {
	ctx, span := util.StartSpan(ctx, "UserService.ForgotPassword")
	defer span.End()

	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Email is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return util.RecordError(span, apperr.Wrap(err, "Failed to process password reset"))
	}

	token := uuid.NewString()
	if err := s.users.SetResetToken(ctx, user.ID, token, s.now().Add(s.resetExpiry)); err != nil {
		return util.RecordError(span, apperr.Wrap(err, "Failed to process password reset"))
	}

	n := newNotification(models.EventTypePasswordReset, models.AudienceUser, user.Email, user.DisplayName())
	n.ReferenceID = user.ID
	n.Link = strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	s.notifier.Notify(ctx, n)

	s.logger.Info("Password reset token issued", zap.Int64("user_id", user.ID))
	return nil
}

// ValidateResetToken reports whether a reset token exists and is unexpired
func (s *UserService) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	_, err := s.userForResetToken(ctx, token)
	if apperr.Is(err, apperr.KindValidation) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ResetPassword sets a new password for the holder of a valid reset token
func (s *UserService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	ctx, span := util.StartSpan(ctx, "UserService.ResetPassword")
	defer span.End()

	if password != confirm {
		return apperr.Validation("Passwords do not match")
	}
	form := newPassword{Password: password}
	if err := validate(&form); err != nil {
		return err
	}

	user, err := s.userForResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return util.RecordError(span, apperr.Wrap(err, "Failed to reset password"))
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return util.RecordError(span, apperr.Wrap(err, "Failed to reset password"))
	}

	s.logger.Info("Password reset", zap.Int64("user_id", user.ID))
	return nil
}

func (s *UserService) userForResetToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation("Invalid or expired reset token")
	}
	user, err := s.users.GetUserByResetToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Validation("Invalid or expired reset token")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to validate reset token")
	}
	if user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(s.now()) {
		return nil, apperr.Validation("Invalid or expired reset token")
	}
	return user, nil
}
