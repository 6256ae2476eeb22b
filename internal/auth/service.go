package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/account-service/internal/account"
	"github.com/redmonkez12/account-service/internal/apperr"
	"github.com/redmonkez12/account-service/internal/email"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/token"
)

// PasswordResetTTL bounds both the reset record and the token it carries.
const PasswordResetTTL = 30 * time.Minute

var ErrInvalidCredentials = apperr.New(apperr.ErrAuthentication, "invalid email or password")

// Settings are the per-deployment values the flows need.
type Settings struct {
	FrontendURL            string
	AccessTokenTTL         time.Duration
	PendingRegistrationTTL time.Duration
}

// ProfileUpdate lists the self-service fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Email *string
	Role  *account.Role
}

// Service implements registration, login, password reset and profile changes.
type Service struct {
	accounts account.Store
	pending  PendingRegistrationStore
	resets   PasswordResetStore
	tokens   TokenService
	hasher   PasswordHasher
	mailer   email.Sender
	logger   *logging.Logger
	settings Settings

	now   func() time.Time
	newID func() (string, error)
}

func NewService(
	accounts account.Store,
	pending PendingRegistrationStore,
	resets PasswordResetStore,
	tokens TokenService,
	hasher PasswordHasher,
	mailer email.Sender,
	logger *logging.Logger,
	settings Settings,
) *Service {
	return &Service{
		accounts: accounts,
		pending:  pending,
		resets:   resets,
		tokens:   tokens,
		hasher:   hasher,
		mailer:   mailer,
		logger:   logger,
		settings: settings,
		now:      time.Now,
		newID:    newOpaqueID,
	}
}

func newOpaqueID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// BeginRegistration starts a signup for email. An address that already has an
// account gets a reminder instead, and the caller cannot tell the two apart.
func (s *Service) BeginRegistration(ctx context.Context, emailAddr string) error {
	emailAddr = account.NormalizeEmail(emailAddr)

	_, err := s.accounts.FindByEmail(ctx, emailAddr)
	if err == nil {
		s.notify(ctx, email.TemplateExistingAccount, emailAddr, map[string]string{
			email.KeyURL: s.settings.FrontendURL + "/forgot-password",
		})
		return nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	id, err := s.newID()
	if err != nil {
		return fmt.Errorf("failed to generate registration id: %w", err)
	}

	now := s.now()
	p := &PendingRegistration{
		ID:        id,
		Email:     emailAddr,
		CreatedAt: now,
		ExpiresAt: now.Add(s.settings.PendingRegistrationTTL),
	}
	if err := s.pending.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save pending registration: %w", err)
	}

	s.notify(ctx, email.TemplateNewUser, emailAddr, map[string]string{
		email.KeyURL: s.settings.FrontendURL + "/create-user/" + id,
	})
	return nil
}

// CompleteRegistration turns a pending registration into an account. No token is issued.
func (s *Service) CompleteRegistration(ctx context.Context, pendingID, username, password string) (*account.Account, error) {
	if err := account.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	p, err := s.pending.Get(ctx, pendingID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, username, p.Email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p, err = s.pending.Consume(ctx, pendingID)
	if err != nil {
		return nil, err
	}

	a := &account.Account{
		Username:     username,
		Email:        p.Email,
		PasswordHash: passwordHash,
		Role:         account.RoleStandard,
	}
	if err := s.accounts.Insert(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("account created", "account_id", a.ID, "username", a.Username)
	return a, nil
}

// ensureAvailable fails with account.ErrDuplicate before the pending record is spent.
func (s *Service) ensureAvailable(ctx context.Context, username, emailAddr string) error {
	if _, err := s.accounts.FindByUsername(ctx, username); err == nil {
		return account.ErrDuplicate
	} else if !errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("failed to look up username: %w", err)
	}

	if _, err := s.accounts.FindByEmail(ctx, emailAddr); err == nil {
		return account.ErrDuplicate
	} else if !errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("failed to look up email: %w", err)
	}

	return nil
}

// Login returns an access token. Every rejection is ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (string, error) {
	a, err := s.accounts.FindByEmail(ctx, account.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up account: %w", err)
	}

	if !s.hasher.Verify(password, a.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	if a.Disabled {
		s.logger.Warn("login rejected for disabled account", "account_id", a.ID)
		return "", ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(a.PasswordHash) {
		s.upgradeHash(ctx, a, password)
	}

	tok, err := s.tokens.Issue(a.Email, s.settings.AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return tok, nil
}

// upgradeHash rewrites a legacy digest. Failure leaves the old digest in place.
func (s *Service) upgradeHash(ctx context.Context, a *account.Account, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to rehash password", "account_id", a.ID, "error", err)
		return
	}

	if _, err := s.accounts.ApplyPartialUpdate(ctx, a.ID, account.Update{PasswordHash: &digest}); err != nil {
		s.logger.Error("failed to store rehashed password", "account_id", a.ID, "error", err)
		return
	}

	s.logger.Info("password hash upgraded", "account_id", a.ID)
}

// ForgotPassword replaces any outstanding reset for the account and mails a new link.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	a, err := s.accounts.FindByEmail(ctx, account.NormalizeEmail(emailAddr))
	if err != nil {
		return err
	}

	id, err := s.newID()
	if err != nil {
		return fmt.Errorf("failed to generate reset id: %w", err)
	}

	tok, err := s.tokens.Issue(a.Email, PasswordResetTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	now := s.now()
	req := &PasswordResetRequest{
		ID:        id,
		AccountID: a.ID,
		Token:     tok,
		CreatedAt: now,
		ExpiresAt: now.Add(PasswordResetTTL),
	}
	if err := s.resets.Save(ctx, req); err != nil {
		return fmt.Errorf("failed to save password reset: %w", err)
	}

	s.notify(ctx, email.TemplateForgotPassword, a.Email, map[string]string{
		email.KeyName: a.Username,
		email.KeyURL:  s.settings.FrontendURL + "/reset-password/" + id,
	})
	return nil
}

// ResetPassword redeems a reset id. The record is spent even when redemption fails.
func (s *Service) ResetPassword(ctx context.Context, resetID, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	req, err := s.resets.Consume(ctx, resetID)
	if err != nil {
		return err
	}

	subject, err := s.tokens.Verify(req.Token)
	if err != nil {
		return err
	}

	a, err := s.accounts.FindByEmail(ctx, subject)
	if err != nil {
		return err
	}
	if a.ID != req.AccountID {
		return token.ErrClaimsInvalid
	}

	if _, err := s.setPassword(ctx, a, newPassword); err != nil {
		return err
	}

	s.logger.Info("password reset", "account_id", a.ID)
	return nil
}

func (s *Service) GetDetails(ctx context.Context, bearer string) (account.Details, error) {
	a, err := s.authenticate(ctx, bearer)
	if err != nil {
		return account.Details{}, err
	}
	return a.Details(), nil
}

// EditProfile applies the non-nil fields of u. Changing the email orphans tokens
// issued for the old address.
func (s *Service) EditProfile(ctx context.Context, bearer string, u ProfileUpdate) (account.Details, error) {
	a, err := s.authenticate(ctx, bearer)
	if err != nil {
		return account.Details{}, err
	}

	update := account.Update{Role: u.Role}
	if u.Email != nil {
		normalized := account.NormalizeEmail(*u.Email)
		update.Email = &normalized
	}
	if update.Role != nil && !update.Role.Valid() {
		return account.Details{}, ErrInvalidRole
	}
	if update.IsEmpty() {
		return a.Details(), nil
	}

	updated, err := s.accounts.ApplyPartialUpdate(ctx, a.ID, update)
	if err != nil {
		return account.Details{}, err
	}

	// the address now belongs to an account, so a signup link for it is dead
	if update.Email != nil && *update.Email != a.Email {
		if _, err := s.pending.DeleteByEmail(ctx, *update.Email); err != nil {
			s.logger.Warn("failed to drop pending registration", "account_id", a.ID, "error", err)
		}
	}
	return updated.Details(), nil
}

// Disable blocks future logins. Tokens already issued stay valid until they expire.
func (s *Service) Disable(ctx context.Context, bearer string) (account.Details, error) {
	a, err := s.authenticate(ctx, bearer)
	if err != nil {
		return account.Details{}, err
	}

	disabled := true
	updated, err := s.accounts.ApplyPartialUpdate(ctx, a.ID, account.Update{Disabled: &disabled})
	if err != nil {
		return account.Details{}, err
	}

	s.dropResetRequest(ctx, a)

	s.logger.Info("account disabled", "account_id", a.ID)
	return updated.Details(), nil
}

func (s *Service) UpdatePassword(ctx context.Context, bearer, newPassword string) (account.Details, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return account.Details{}, err
	}

	a, err := s.authenticate(ctx, bearer)
	if err != nil {
		return account.Details{}, err
	}

	updated, err := s.setPassword(ctx, a, newPassword)
	if err != nil {
		return account.Details{}, err
	}

	s.dropResetRequest(ctx, a)
	return updated.Details(), nil
}

// dropResetRequest cancels an outstanding reset link for a.
func (s *Service) dropResetRequest(ctx context.Context, a *account.Account) {
	if _, err := s.resets.DeleteByAccount(ctx, a.ID); err != nil {
		s.logger.Warn("failed to drop password reset request", "account_id", a.ID, "error", err)
	}
}

func (s *Service) setPassword(ctx context.Context, a *account.Account, password string) (*account.Account, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.accounts.ApplyPartialUpdate(ctx, a.ID, account.Update{PasswordHash: &digest})
}

// authenticate resolves the account named by a bearer token's subject.
func (s *Service) authenticate(ctx context.Context, bearer string) (*account.Account, error) {
	subject, err := s.tokens.Verify(bearer)
	if err != nil {
		return nil, err
	}
	return s.accounts.FindByEmail(ctx, subject)
}

func (s *Service) notify(ctx context.Context, tmpl email.Template, recipient string, data map[string]string) {
	if err := s.mailer.Send(ctx, tmpl, recipient, data); err != nil {
		s.logger.Warn("failed to queue email", "template", tmpl, "email", recipient, "error", err)
	}
}
