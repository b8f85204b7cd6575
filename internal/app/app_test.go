package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"clauseease/pkg/domain"
	"clauseease/pkg/store"
)

type sentMail struct {
	recipient string
	subject   string
	body      string
}

type recorderMailer struct {
	sent []sentMail
	fail bool
}

func (m *recorderMailer) Send(recipient, subject, body string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, sentMail{recipient: recipient, subject: subject, body: body})
	return nil
}

type recorderSMS struct {
	sent []string
	fail bool
}

func (s *recorderSMS) Send(to, text string) error {
	if s.fail {
		return errors.New("gateway unreachable")
	}
	s.sent = append(s.sent, to+": "+text)
	return nil
}

type fakeCooldown struct {
	taken map[string]bool
}

func (c *fakeCooldown) Acquire(key string, _ time.Duration) (bool, error) {
	if c.taken == nil {
		c.taken = make(map[string]bool)
	}
	if c.taken[key] {
		return false, nil
	}
	c.taken[key] = true
	return true, nil
}

type testEnv struct {
	app    *App
	store  *store.MemoryStore
	mailer *recorderMailer
	sms    *recorderSMS
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	redisSrv := miniredis.RunT(t)
	memStore := store.NewMemoryStore()
	mailer := &recorderMailer{}
	smsSender := &recorderSMS{}
	a, err := New(Config{
		Store:            memStore,
		Sessions:         store.NewRedisSessionStore(redisSrv.Addr(), "", time.Minute),
		Mailer:           mailer,
		SMS:              smsSender,
		Cooldowns:        &fakeCooldown{},
		ResetTokenSecret: "test-secret",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testEnv{app: a, store: memStore, mailer: mailer, sms: smsSender}
}

func registerAlice(t *testing.T, env *testEnv) domain.User {
	t.Helper()
	user, err := env.app.Register(RegisterRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@example.com",
		Phone:     "+1 202-555-0123",
		Password:  "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func storedUser(t *testing.T, env *testEnv, email string) domain.User {
	t.Helper()
	u, ok, err := env.store.GetUserByEmail(email)
	if err != nil || !ok {
		t.Fatalf("user %q not in store: ok=%v err=%v", email, ok, err)
	}
	return u
}

func TestRegisterIssuesCodesOnBothChannels(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)

	if user.Phone != "+12025550123" {
		t.Fatalf("phone not normalized: %q", user.Phone)
	}
	if user.EmailVerified || user.PhoneVerified {
		t.Fatal("new account must start unverified")
	}

	stored := storedUser(t, env, "alice@example.com")
	if stored.EmailOTP == nil || stored.EmailOTPExpires == nil {
		t.Fatal("email code and expiry must be set together")
	}
	if stored.PhoneOTP == nil || stored.PhoneOTPExpires == nil {
		t.Fatal("phone code and expiry must be set together")
	}
	if len(*stored.EmailOTP) != 6 {
		t.Fatalf("email code %q is not 6 digits", *stored.EmailOTP)
	}
	if len(env.mailer.sent) != 1 || !strings.Contains(env.mailer.sent[0].body, *stored.EmailOTP) {
		t.Fatalf("verification email not delivered with code: %+v", env.mailer.sent)
	}
	if len(env.sms.sent) != 1 || !strings.Contains(env.sms.sent[0], *stored.PhoneOTP) {
		t.Fatalf("verification sms not delivered with code: %v", env.sms.sent)
	}
}

func TestRegisterRejectsDuplicateEmailAndPhone(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	_, err := env.app.Register(RegisterRequest{
		Email:    "alice@example.com",
		Password: "other-pass-123",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: got %v, want ErrConflict", err)
	}

	_, err = env.app.Register(RegisterRequest{
		Email:    "bob@example.com",
		Phone:    "+12025550123",
		Password: "other-pass-123",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate phone: got %v, want ErrConflict", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	cases := []RegisterRequest{
		{Email: "not-an-email", Password: "s3cret-pass"},
		{Email: "ok@example.com", Phone: "12345", Password: "s3cret-pass"},
		{Email: "ok@example.com", Password: "short"},
	}
	for _, req := range cases {
		if _, err := env.app.Register(req); !errors.Is(err, ErrValidation) {
			t.Fatalf("register %+v: got %v, want ErrValidation", req, err)
		}
	}
}

func TestDeliveryFailureDoesNotFailRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.fail = true
	env.sms.fail = true

	registerAlice(t, env)

	stored := storedUser(t, env, "alice@example.com")
	if stored.EmailOTP == nil || stored.PhoneOTP == nil {
		t.Fatal("codes must be stored even when delivery fails")
	}
}

func TestLoginRequiresVerifiedChannel(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	if _, _, err := env.app.Authenticate("alice@example.com", "s3cret-pass"); !errors.Is(err, ErrUnverified) {
		t.Fatalf("unverified login: got %v, want ErrUnverified", err)
	}
	if _, _, err := env.app.Authenticate("alice@example.com", "wrong-pass-123"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("wrong password: got %v, want ErrBadCredential", err)
	}
	if _, _, err := env.app.Authenticate("nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown email: got %v, want ErrNotFound", err)
	}
	if _, _, err := env.app.Authenticate("%%garbage%%", "s3cret-pass"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unparseable identifier: got %v, want ErrNotFound", err)
	}
}

func TestVerifyChannelFlow(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	stored := storedUser(t, env, "alice@example.com")
	code := *stored.EmailOTP

	if _, err := env.app.VerifyChannel("alice@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code: got %v, want ErrInvalidCode", err)
	}

	user, err := env.app.VerifyChannel("alice@example.com", code)
	if err != nil {
		t.Fatalf("verify with correct code: %v", err)
	}
	if !user.EmailVerified {
		t.Fatal("email must be verified after correct code")
	}
	if user.EmailOTP != nil || user.EmailOTPExpires != nil {
		t.Fatal("code and expiry must be cleared on verification")
	}

	// The code is single-use: the channel is verified now.
	if _, err := env.app.VerifyChannel("alice@example.com", code); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("reused code: got %v, want ErrAlreadyVerified", err)
	}

	// Email login works; phone channel is still locked.
	if _, token, err := env.app.Authenticate("alice@example.com", "s3cret-pass"); err != nil || token == "" {
		t.Fatalf("verified email login: token=%q err=%v", token, err)
	}
	if _, _, err := env.app.Authenticate("+12025550123", "s3cret-pass"); !errors.Is(err, ErrUnverified) {
		t.Fatalf("unverified phone login: got %v, want ErrUnverified", err)
	}

	phoneCode := *storedUser(t, env, "alice@example.com").PhoneOTP
	if _, err := env.app.VerifyChannel("+1 (202) 555-0123", phoneCode); err != nil {
		t.Fatalf("verify phone: %v", err)
	}
	if _, token, err := env.app.Authenticate("+12025550123", "s3cret-pass"); err != nil || token == "" {
		t.Fatalf("verified phone login: token=%q err=%v", token, err)
	}
}

func TestExpiredCodeIsRejected(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)

	past := time.Now().UTC().Add(-time.Minute)
	if err := env.store.SetChannelOTP(user.ID, domain.ChannelEmail, "123456", past); err != nil {
		t.Fatalf("set expired code: %v", err)
	}
	if _, err := env.app.VerifyChannel("alice@example.com", "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expired code: got %v, want ErrInvalidCode", err)
	}
}

func TestResendReplacesCodeAndEnforcesCooldown(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	oldCode := *storedUser(t, env, "alice@example.com").EmailOTP

	if err := env.app.ResendCode("alice@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	newCode := *storedUser(t, env, "alice@example.com").EmailOTP
	if newCode == oldCode {
		t.Fatal("resend must replace the previous code")
	}
	if _, err := env.app.VerifyChannel("alice@example.com", oldCode); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("old code after resend: got %v, want ErrInvalidCode", err)
	}

	if err := env.app.ResendCode("alice@example.com"); !errors.Is(err, ErrCooldown) {
		t.Fatalf("second resend: got %v, want ErrCooldown", err)
	}

	if _, err := env.app.VerifyChannel("alice@example.com", newCode); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := env.app.ResendCode("+12025550123"); err != nil {
		t.Fatalf("phone resend has its own cooldown: %v", err)
	}
	if err := env.app.ResendCode("alice@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("resend after verify: got %v, want ErrAlreadyVerified", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)
	code := *storedUser(t, env, "alice@example.com").EmailOTP
	if _, err := env.app.VerifyChannel("alice@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, token, err := env.app.Authenticate("alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, ok, err := env.app.UserFromToken(token)
	if err != nil || !ok {
		t.Fatalf("resolve token: ok=%v err=%v", ok, err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("wrong user resolved: %q", user.Email)
	}

	if err := env.app.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := env.app.UserFromToken(token); ok {
		t.Fatal("token must not resolve after logout")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	registerAlice(t, env)

	if err := env.app.RequestPasswordReset("nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reset for unknown email: got %v, want ErrNotFound", err)
	}

	if err := env.app.RequestPasswordReset("alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	var resetMail sentMail
	for _, m := range env.mailer.sent {
		if m.subject == "Password Reset Request" {
			resetMail = m
		}
	}
	if resetMail.recipient != "alice@example.com" {
		t.Fatalf("reset email not delivered: %+v", env.mailer.sent)
	}
	token := extractToken(t, resetMail.body)

	if err := env.app.ResetPassword("bogus-token", "brand-new-pass"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("bogus token: got %v, want ErrInvalidResetToken", err)
	}
	if err := env.app.ResetPassword(token, "s3cret-pass"); !errors.Is(err, ErrSamePassword) {
		t.Fatalf("same password: got %v, want ErrSamePassword", err)
	}
	if err := env.app.ResetPassword(token, "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak password: got %v, want ErrValidation", err)
	}
	if err := env.app.ResetPassword(token, "brand-new-pass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	code := *storedUser(t, env, "alice@example.com").EmailOTP
	if _, err := env.app.VerifyChannel("alice@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, _, err := env.app.Authenticate("alice@example.com", "s3cret-pass"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("old password after reset: got %v, want ErrBadCredential", err)
	}
	if _, _, err := env.app.Authenticate("alice@example.com", "brand-new-pass"); err != nil {
		t.Fatalf("new password after reset: %v", err)
	}
}

func TestClearExpiredCodes(t *testing.T) {
	env := newTestEnv(t)
	user := registerAlice(t, env)

	past := time.Now().UTC().Add(-time.Minute)
	if err := env.store.SetChannelOTP(user.ID, domain.ChannelEmail, "111111", past); err != nil {
		t.Fatalf("set expired code: %v", err)
	}

	cleared, err := env.app.ClearExpiredCodes(time.Now().UTC())
	if err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}
	stored := storedUser(t, env, "alice@example.com")
	if stored.EmailOTP != nil || stored.EmailOTPExpires != nil {
		t.Fatal("expired email code must be cleared")
	}
	if stored.PhoneOTP == nil {
		t.Fatal("live phone code must survive the sweep")
	}
}

// extractToken pulls the reset token out of the email body.
func extractToken(t *testing.T, body string) string {
	t.Helper()
	const marker = "reset your password: "
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no reset link in body: %q", body)
	}
	rest := body[i+len(marker):]
	if j := strings.IndexAny(rest, " \r\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
