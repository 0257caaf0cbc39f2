package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/authcore/internal/model"
	"github.com/templui/authcore/internal/repository"
	"github.com/templui/authcore/internal/validation"
)

// Notifier delivers account e-mails. Failures never fail the calling operation.
type Notifier interface {
	SendWelcomeEmail(ctx context.Context, email, name string) error
	SendAccountLinkedEmail(ctx context.Context, email, name, provider string) error
}

// Session is the result of a successful sign-in.
type Session struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
	// Resolution is set for federated sign-ins only.
	Resolution model.ResolutionCase
}

// ProfileUpdate carries the optional fields of a profile change.
type ProfileUpdate struct {
	Name     *string
	Password *string
}

type AuthService struct {
	userRepository        repository.UserRepository
	preferencesRepository repository.PreferencesRepository
	resolver              *IdentityResolver
	tokens                *TokenService
	hasher                PasswordHasher
	notifier              Notifier
	storeTimeout          time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	preferencesRepository repository.PreferencesRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	notifier Notifier,
	storeTimeout time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:        userRepository,
		preferencesRepository: preferencesRepository,
		resolver:              NewIdentityResolver(userRepository, hasher),
		tokens:                tokens,
		hasher:                hasher,
		notifier:              notifier,
		storeTimeout:          storeTimeout,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = NormalizeEmail(email)

	err := validateRegistration(email, password, name)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.resolver.ResolveLocalRegistration(storeCtx, email, password, name)
	if err != nil {
		return nil, s.fail("register", err, "email", email)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.notify(ctx, "welcome", user, func(ctx context.Context) error {
		return s.notifier.SendWelcomeEmail(ctx, user.Email, user.Name)
	})

	return session, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.resolver.ResolveLocalLogin(storeCtx, email, password)
	if err != nil {
		return nil, s.fail("login", err)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.ID)
	return session, nil
}

// FederatedLogin resolves a verified provider claim set and signs the user in.
func (s *AuthService) FederatedLogin(ctx context.Context, claims *model.FederatedClaims) (*Session, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	res, err := s.resolver.ResolveFederatedClaim(storeCtx, claims)
	if err != nil {
		if claims != nil {
			return nil, s.fail("federated login", err, "provider", claims.Provider, "subject_id", claims.SubjectID)
		}
		return nil, s.fail("federated login", err)
	}

	session, err := s.issue(res.User)
	if err != nil {
		return nil, err
	}
	session.Resolution = res.Case

	user := res.User
	slog.Info("federated login", "user_id", user.ID, "provider", claims.Provider, "resolution", res.Case)

	switch res.Case {
	case model.ResolutionCreated:
		s.notify(ctx, "welcome", user, func(ctx context.Context) error {
			return s.notifier.SendWelcomeEmail(ctx, user.Email, user.Name)
		})
	case model.ResolutionMerged:
		s.notify(ctx, "account_linked", user, func(ctx context.Context) error {
			return s.notifier.SendAccountLinkedEmail(ctx, user.Email, user.Name, claims.Provider)
		})
	}

	return session, nil
}

func (s *AuthService) GetProfile(ctx context.Context, token string) (*model.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.authenticate(storeCtx, token)
	if err != nil {
		return nil, s.fail("get profile", err)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (*model.User, error) {
	if update.Name != nil {
		err := validation.ValidateName(*update.Name)
		if err != nil {
			return nil, InvalidInput(err.Error())
		}
	}
	if update.Password != nil {
		err := validation.ValidatePassword(*update.Password)
		if err != nil {
			return nil, InvalidInput(err.Error())
		}
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.authenticate(storeCtx, token)
	if err != nil {
		return nil, s.fail("update profile", err)
	}

	if update.Name == nil && update.Password == nil {
		return user, nil
	}

	var change model.ProfileChange
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		change.Name = &name
	}
	if update.Password != nil {
		hash, err := hashPassword(s.hasher, *update.Password)
		if err != nil {
			return nil, s.fail("update profile", err, "user_id", user.ID)
		}
		change.PasswordHash = &hash
	}

	updated, err := s.userRepository.UpdateProfile(storeCtx, user.ID, change)
	if errors.Is(err, repository.ErrUserNotFound) {
		// Removed or deactivated since authentication
		_, err = s.authenticate(storeCtx, token)
		if err == nil {
			err = ErrNotFound
		}
		return nil, s.fail("update profile", err, "user_id", user.ID)
	}
	if err != nil {
		return nil, s.fail("update profile", storeError("update user", err), "user_id", user.ID)
	}

	slog.Info("profile updated", "user_id", user.ID, "name_changed", update.Name != nil, "password_changed", update.Password != nil)
	return updated, nil
}

// Preferences returns the user's preferences, creating the defaults on first access.
func (s *AuthService) Preferences(ctx context.Context, token string) (*model.Preferences, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.authenticate(storeCtx, token)
	if err != nil {
		return nil, s.fail("preferences", err)
	}

	err = s.userRepository.EnsurePreferences(storeCtx, user.ID)
	if err != nil {
		return nil, s.fail("preferences", storeError("ensure preferences", err), "user_id", user.ID)
	}

	prefs, err := s.preferencesRepository.ByUserID(storeCtx, user.ID)
	if err != nil {
		return nil, s.fail("preferences", storeError("load preferences", err), "user_id", user.ID)
	}
	return prefs, nil
}

// Logout only checks the token. Tokens are stateless and stay valid until they expire.
func (s *AuthService) Logout(_ context.Context, token string) error {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	slog.Info("user logged out", "user_id", userID)
	return nil
}

func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, false)
}

func (s *AuthService) Activate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, true)
}

// UserIDByEmail looks up a user id for operator tooling.
func (s *AuthService) UserIDByEmail(ctx context.Context, email string) (string, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.userRepository.ByEmail(storeCtx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", s.fail("lookup user", storeError("lookup email", err))
	}
	return user.ID, nil
}

func (s *AuthService) setActive(ctx context.Context, userID string, active bool) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	err := s.userRepository.SetActive(storeCtx, userID, active)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return s.fail("set active", storeError("set active", err), "user_id", userID)
	}

	slog.Info("user active flag changed", "user_id", userID, "active", active)
	return nil
}

// authenticate resolves a bearer token to an active user.
func (s *AuthService) authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepository.ByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("lookup user", err)
	}

	if !user.Active {
		return nil, ErrAccountDeactivated
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, s.tokens.TTL())
	if err != nil {
		slog.Error("failed to issue token", "error", err, "user_id", user.ID)
		return nil, ErrInternal
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// fail translates err into the public error set. Field validation errors keep
// their message; anything unknown is logged and hidden behind ErrInternal.
func (s *AuthService) fail(op string, err error, attrs ...any) error {
	if errors.Is(err, ErrInvalidInput) {
		return err
	}

	if !IsKnown(err) {
		slog.Error(op+" failed", append(attrs, "error", err)...)
		return ErrInternal
	}

	if errors.Is(err, ErrUpstreamUnavailable) {
		slog.Warn(op+" failed", append(attrs, "error", err)...)
	}
	return kindOf(err)
}

func (s *AuthService) notify(ctx context.Context, kind string, user *model.User, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	err := send(ctx)
	if err != nil {
		slog.Warn("failed to send email", "type", kind, "error", err, "user_id", user.ID)
	}
}

func validateRegistration(email, password, name string) error {
	err := validation.ValidateEmail(email)
	if err != nil {
		return InvalidInput(err.Error())
	}
	err = validation.ValidateName(name)
	if err != nil {
		return InvalidInput(err.Error())
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return InvalidInput(err.Error())
	}
	return nil
}
