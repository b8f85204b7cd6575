package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clauseease/internal/util"
	"clauseease/pkg/auth"
	"clauseease/pkg/domain"
	"clauseease/pkg/identity"
	"clauseease/pkg/mail"
	"clauseease/pkg/otp"
	"clauseease/pkg/store"
)

// RegisterRequest carries the sign-up form.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// Register creates an account and sends verification codes to each
// supplied contact channel. Delivery failures do not fail registration.
func (a *App) Register(req RegisterRequest) (domain.User, error) {
	email, err := identity.NormalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: email: %v", ErrValidation, err)
	}
	var phone string
	if strings.TrimSpace(req.Phone) != "" {
		phone, err = identity.NormalizePhone(req.Phone)
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: phone: %v", ErrValidation, err)
		}
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		Phone:        phone,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		if err == store.ErrDuplicate {
			return domain.User{}, ErrConflict
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	a.issueAndSendCode(user, domain.ChannelEmail)
	if user.Phone != "" {
		a.issueAndSendCode(user, domain.ChannelPhone)
	}
	return user, nil
}

// Authenticate checks credentials for an email or phone identifier and
// opens a session. The channel used to log in must be verified.
func (a *App) Authenticate(rawIdentifier, password string) (domain.User, string, error) {
	user, ch, err := a.lookupByIdentifier(rawIdentifier)
	if err != nil {
		return domain.User{}, "", err
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrBadCredential
	}
	if !user.Verified(ch) {
		return domain.User{}, "", ErrUnverified
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Logout closes the session for the given token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a session token to its user.
func (a *App) UserFromToken(token string) (domain.User, bool, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return a.store.GetUserByID(userID)
}

// VerifyChannel checks a submitted code for the identifier's channel and
// marks the channel verified on success. Wrong, expired, and missing codes
// are indistinguishable to the caller.
func (a *App) VerifyChannel(rawIdentifier, code string) (domain.User, error) {
	user, ch, err := a.lookupByIdentifier(rawIdentifier)
	if err != nil {
		return domain.User{}, err
	}
	if user.Verified(ch) {
		return domain.User{}, ErrAlreadyVerified
	}
	stored, expiry := channelCode(user, ch)
	if !otp.Verify(code, stored, expiry) {
		return domain.User{}, ErrInvalidCode
	}
	if err := a.store.MarkChannelVerified(user.ID, ch); err != nil {
		return domain.User{}, fmt.Errorf("mark verified: %w", err)
	}
	updated, _, err := a.store.GetUserByID(user.ID)
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// ResendCode issues a fresh code for an unverified channel, replacing any
// previous one. Resends are rate limited per identifier.
func (a *App) ResendCode(rawIdentifier string) error {
	user, ch, err := a.lookupByIdentifier(rawIdentifier)
	if err != nil {
		return err
	}
	if user.Verified(ch) {
		return ErrAlreadyVerified
	}
	ok, err := a.cooldowns.Acquire(cooldownKey(user.ID, ch), a.resendCooldown)
	if err != nil {
		return fmt.Errorf("check resend cooldown: %w", err)
	}
	if !ok {
		return ErrCooldown
	}
	a.issueAndSendCode(user, ch)
	return nil
}

// RequestPasswordReset emails a signed reset link to an existing account.
func (a *App) RequestPasswordReset(rawEmail string) error {
	email, err := identity.NormalizeEmail(rawEmail)
	if err != nil {
		return ErrNotFound
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	token, err := a.resetSigner.Sign(user.ID)
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}
	if err := a.mailer.Send(user.Email, "Password Reset Request", mail.PasswordResetBody(token)); err != nil {
		slog.Error("password reset email failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword sets a new password for the account named by a valid
// reset token. Reusing the current password is rejected.
func (a *App) ResetPassword(token, newPassword string) error {
	userID, err := a.resetSigner.Verify(token)
	if err != nil {
		return ErrInvalidResetToken
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ErrInvalidResetToken
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if auth.CheckPassword(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// ClearExpiredCodes drops verification codes past their expiry.
func (a *App) ClearExpiredCodes(now time.Time) (int64, error) {
	return a.store.ClearExpiredOTPs(now)
}

func (a *App) lookupByIdentifier(raw string) (domain.User, domain.Channel, error) {
	ident, err := identity.Parse(raw)
	if err != nil {
		return domain.User{}, "", ErrNotFound
	}
	var (
		user domain.User
		ok   bool
	)
	ch := domain.ChannelEmail
	switch ident.Kind {
	case identity.KindPhone:
		ch = domain.ChannelPhone
		user, ok, err = a.store.GetUserByPhone(ident.Value)
	default:
		user, ok, err = a.store.GetUserByEmail(ident.Value)
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrNotFound
	}
	return user, ch, nil
}

// issueAndSendCode writes a fresh code for the channel and attempts
// delivery. Delivery failures are logged and swallowed so the account
// flow continues; the operator can read the code from the user row.
func (a *App) issueAndSendCode(user domain.User, ch domain.Channel) {
	code, expiresAt, err := otp.Issue(0, a.otpTTL)
	if err != nil {
		slog.Error("issue verification code", "user_id", user.ID, "channel", ch, "error", err)
		return
	}
	if err := a.store.SetChannelOTP(user.ID, ch, code, expiresAt); err != nil {
		slog.Error("store verification code", "user_id", user.ID, "channel", ch, "error", err)
		return
	}
	var sendErr error
	if ch == domain.ChannelPhone {
		sendErr = a.sms.Send(user.Phone, "Your ClauseEase AI verification code is: "+code)
	} else {
		sendErr = a.mailer.Send(user.Email, "Verify Your Account", mail.VerificationCodeBody(code))
	}
	if sendErr != nil {
		slog.Error("verification code delivery failed", "user_id", user.ID, "channel", ch, "error", sendErr)
	}
}

func channelCode(user domain.User, ch domain.Channel) (*string, *time.Time) {
	if ch == domain.ChannelPhone {
		return user.PhoneOTP, user.PhoneOTPExpires
	}
	return user.EmailOTP, user.EmailOTPExpires
}

func cooldownKey(userID string, ch domain.Channel) string {
	return fmt.Sprintf("%s:%s", userID, ch)
}
