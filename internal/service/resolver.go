package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/templui/authcore/internal/model"
	"github.com/templui/authcore/internal/repository"
	"github.com/templui/authcore/internal/service/password"
	"golang.org/x/crypto/bcrypt"
)

// IdentityStore is the subset of the account store the resolver needs.
type IdentityStore interface {
	ByEmail(ctx context.Context, email string) (*model.User, error)
	BySubject(ctx context.Context, provider, subjectID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	LinkSubject(ctx context.Context, id string, link model.SubjectLink) (*model.User, error)
}

type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, digest string) bool
}

// IdentityResolver maps inbound credentials and claim sets to exactly one user.
type IdentityResolver struct {
	store  IdentityStore
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewIdentityResolver(store IdentityStore, hasher PasswordHasher) *IdentityResolver {
	return &IdentityResolver{store: store, hasher: hasher}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// ResolveLocalRegistration creates a local identity for a new email.
func (r *IdentityResolver) ResolveLocalRegistration(ctx context.Context, email, password, name string) (*model.User, error) {
	email = NormalizeEmail(email)

	_, err := r.store.ByEmail(ctx, email)
	if err == nil {
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storeError("lookup email", err)
	}

	hash, err := hashPassword(r.hasher, password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: &hash,
		Origin:       model.OriginLocal,
		Active:       true,
	}

	err = r.store.Create(ctx, user)
	if errors.Is(err, repository.ErrUniqueViolation) {
		// Lost a race with a concurrent registration for the same email
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, storeError("create user", err)
	}

	return user, nil
}

// ResolveLocalLogin verifies an email/password pair. Unknown emails,
// passwordless accounts and wrong passwords all yield ErrInvalidCredentials.
func (r *IdentityResolver) ResolveLocalLogin(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)

	user, err := r.store.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		r.hasher.Verify([]byte(password), r.dummyDigest())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("lookup email", err)
	}

	if !user.HasPassword() {
		r.hasher.Verify([]byte(password), r.dummyDigest())
		return nil, ErrInvalidCredentials
	}

	if !r.hasher.Verify([]byte(password), *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDeactivated
	}

	return user, nil
}

// ResolveFederatedClaim links, merges or creates the identity for a verified
// claim set. A conflict with a concurrent writer re-runs the resolution once.
func (r *IdentityResolver) ResolveFederatedClaim(ctx context.Context, claims *model.FederatedClaims) (*model.FederatedResolution, error) {
	if claims == nil || claims.Provider == "" || claims.SubjectID == "" || NormalizeEmail(claims.Email) == "" {
		return nil, InvalidInput("incomplete federated claims")
	}

	res, err := r.resolveFederated(ctx, claims)
	if isConflict(err) {
		slog.Info("federated resolution conflict, retrying", "provider", claims.Provider, "subject_id", claims.SubjectID, "error", err)
		res, err = r.resolveFederated(ctx, claims)
		if isConflict(err) {
			return nil, fmt.Errorf("%w: federated resolution conflict persisted", ErrUpstreamUnavailable)
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *IdentityResolver) resolveFederated(ctx context.Context, claims *model.FederatedClaims) (*model.FederatedResolution, error) {
	email := NormalizeEmail(claims.Email)

	// Case 1: known subject
	user, err := r.store.BySubject(ctx, claims.Provider, claims.SubjectID)
	if err == nil {
		if !user.Active {
			return nil, ErrAccountDeactivated
		}
		return &model.FederatedResolution{User: user, Case: model.ResolutionLinked}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storeError("lookup subject", err)
	}

	// Case 2: same email, merge the federated link into the existing identity
	user, err = r.store.ByEmail(ctx, email)
	if err == nil {
		if !user.Active {
			return nil, ErrAccountDeactivated
		}
		if user.IsLinked() {
			// Already bound to another subject; never silently rebind an account
			return nil, fmt.Errorf("%w: email is linked to a different %s account", ErrAlreadyExists, claims.Provider)
		}

		// Only succeeds while the row is still active and unlinked
		merged, err := r.store.LinkSubject(ctx, user.ID, model.SubjectLink{
			Provider:      claims.Provider,
			SubjectID:     claims.SubjectID,
			PictureURL:    optionalString(claims.PictureURL),
			EmailVerified: claims.EmailVerified,
		})
		if err != nil {
			return nil, storeError("merge federated link", err)
		}
		return &model.FederatedResolution{User: merged, Case: model.ResolutionMerged}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storeError("lookup email", err)
	}

	// Case 3: wholly new identity
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = email
	}

	user = &model.User{
		Email:         email,
		Name:          name,
		Origin:        model.OriginFederated,
		Provider:      stringPtr(claims.Provider),
		SubjectID:     stringPtr(claims.SubjectID),
		PictureURL:    optionalString(claims.PictureURL),
		EmailVerified: claims.EmailVerified,
		Active:        true,
	}

	err = r.store.Create(ctx, user)
	if err != nil {
		return nil, storeError("create federated user", err)
	}
	return &model.FederatedResolution{User: user, Case: model.ResolutionCreated}, nil
}

// dummyDigest is compared against when no real digest exists so that
// unknown emails cost the same as wrong passwords.
func (r *IdentityResolver) dummyDigest() string {
	r.dummyOnce.Do(func() {
		hash, err := r.hasher.Hash([]byte("timing-equalization-placeholder"))
		if err != nil {
			slog.Warn("failed to compute dummy password hash", "error", err)
			return
		}
		r.dummyHash = hash
	})
	return r.dummyHash
}

// hashPassword hashes plain, reporting unhashable input as ErrInvalidInput.
func hashPassword(h PasswordHasher, plain string) (string, error) {
	hash, err := h.Hash([]byte(plain))
	if errors.Is(err, password.ErrEmptyPassword) {
		return "", InvalidInput("password is required")
	}
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", InvalidInput("password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// isConflict reports whether a concurrent writer changed the rows the
// resolution read.
func isConflict(err error) bool {
	return errors.Is(err, repository.ErrUniqueViolation) || errors.Is(err, repository.ErrLinkConflict)
}

// storeError wraps a store failure, classifying deadlines and lost
// connections as ErrUpstreamUnavailable. Conflicts pass through.
func storeError(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func stringPtr(s string) *string {
	return &s
}

// optionalString returns a pointer to s, or nil when s is empty.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
