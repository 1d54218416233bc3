package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/otp/provider"
	intentrepo "github.com/Sambhav-gg/StreetBites/internal/otpintent/repository"
	"github.com/Sambhav-gg/StreetBites/internal/security"
	telemetrydomain "github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byPhone map[string]*userdomain.User
	err     error
}

func (r *memUserRepo) GetByPhone(ctx context.Context, phone string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.byPhone[phone], nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPhone[u.Phone]; ok {
		return userdomain.ErrPhoneTaken
	}
	u2 := *u
	r.byPhone[u.Phone] = &u2
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone)
}

// memOTPProvider issues sequential handles and accepts the code "123456" for every handle.
type memOTPProvider struct {
	mu        sync.Mutex
	next      int
	sendErr   error
	verifyErr error
	verifies  atomic.Int32
}

const goodCode = "123456"

func (p *memOTPProvider) SendCode(ctx context.Context, phone string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return "", p.sendErr
	}
	p.next++
	return fmt.Sprintf("handle-%d", p.next), nil
}

func (p *memOTPProvider) VerifyCode(ctx context.Context, handle, code string) error {
	p.verifies.Add(1)
	if p.verifyErr != nil {
		return p.verifyErr
	}
	if code != goodCode {
		return provider.ErrRejected
	}
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *memAudit) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action+":"+resource)
}

type memEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *memEmitter) Emit(ctx context.Context, ev *telemetrydomain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev.EventType)
	return nil
}

type testEnv struct {
	svc     *AuthService
	users   *memUserRepo
	intents *intentrepo.MemoryRepository
	otp     *memOTPProvider
	tokens  *security.TokenProvider
	audit   *memAudit
	events  *memEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	env := &testEnv{
		users:   &memUserRepo{byPhone: make(map[string]*userdomain.User)},
		intents: intentrepo.NewMemoryRepository(),
		otp:     &memOTPProvider{},
		tokens:  tokens,
		audit:   &memAudit{},
		events:  &memEmitter{},
	}
	env.svc = NewAuthService(env.users, env.intents, env.otp, tokens, 10*time.Minute, 3, env.audit, env.events, zerolog.Nop())
	return env
}

func (e *testEnv) seedUser(phone string, role userdomain.Role) *userdomain.User {
	u := &userdomain.User{ID: "user-" + phone, Phone: phone, Name: "Seeded", Role: role}
	e.users.byPhone[phone] = u
	return u
}

func TestAuthService_SignupRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	handle, err := env.svc.RequestCode(ctx, " 9990001111 ", "signup", &SignupInput{Name: "Asha", Email: "Asha@Example.com", Role: "vendor"})
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if handle == "" {
		t.Fatal("handle should be set")
	}

	res, err := env.svc.VerifyCode(ctx, handle, goodCode)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if res.Token == "" || res.ExpiresAt.IsZero() {
		t.Fatal("token and expiry should be set")
	}
	if res.User.Phone != "9990001111" || res.User.Name != "Asha" || res.User.Email != "asha@example.com" {
		t.Errorf("user = %+v", res.User)
	}
	if res.User.Role != userdomain.RoleVendor {
		t.Errorf("role = %q, want vendor", res.User.Role)
	}
	ident, err := env.tokens.ValidateAccess(res.Token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if ident.UserID != res.User.ID || ident.Role != "vendor" {
		t.Errorf("identity = %+v", ident)
	}
	if env.users.count() != 1 {
		t.Errorf("users = %d, want 1", env.users.count())
	}
	if len(env.audit.actions) != 1 || env.audit.actions[0] != "signup:user" {
		t.Errorf("audit = %v", env.audit.actions)
	}
	if len(env.events.events) != 2 || env.events.events[0] != telemetrydomain.EventOTPSent || env.events.events[1] != telemetrydomain.EventOTPVerified {
		t.Errorf("events = %v", env.events.events)
	}
}

func TestAuthService_LoginRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeded := env.seedUser("8880002222", userdomain.RoleCustomer)

	handle, err := env.svc.RequestCode(ctx, "8880002222", "LOGIN", nil)
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	res, err := env.svc.VerifyCode(ctx, handle, goodCode)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if res.User.ID != seeded.ID {
		t.Errorf("user id = %q, want %q", res.User.ID, seeded.ID)
	}
	if res.User.LikedStallIDs == nil {
		t.Error("liked stalls should be an empty list, not nil")
	}
}

func TestAuthService_RequestCode_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cases := []struct {
		name    string
		phone   string
		typ     string
		signup  *SignupInput
		wantErr error
	}{
		{"empty phone", "  ", "login", nil, ErrInvalidPhone},
		{"unknown type", "1", "reset", nil, ErrInvalidIntentType},
		{"signup without profile", "1", "signup", nil, ErrInvalidSignupProfile},
		{"signup without name", "1", "signup", &SignupInput{Role: "customer"}, ErrInvalidSignupProfile},
		{"signup bad role", "1", "signup", &SignupInput{Name: "A", Role: "admin"}, ErrInvalidSignupProfile},
		{"signup bad email", "1", "signup", &SignupInput{Name: "A", Role: "user", Email: "nope"}, ErrInvalidSignupProfile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.RequestCode(ctx, tc.phone, tc.typ, tc.signup)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
	if env.otp.next != 0 {
		t.Errorf("provider called %d times for invalid requests", env.otp.next)
	}
}

func TestAuthService_RequestCode_ProviderUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.otp.sendErr = provider.ErrUnavailable

	_, err := env.svc.RequestCode(context.Background(), "1", "login", nil)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if len(env.events.events) != 0 {
		t.Errorf("events = %v, want none", env.events.events)
	}
}

func TestAuthService_VerifyCode_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "login", nil)

	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); err != nil {
		t.Fatalf("first VerifyCode: %v", err)
	}
	_, err := env.svc.VerifyCode(ctx, handle, goodCode)
	if !errors.Is(err, ErrExpiredOrUnknownSession) {
		t.Fatalf("second VerifyCode err = %v, want ErrExpiredOrUnknownSession", err)
	}
	_, err = env.svc.VerifyCode(ctx, handle, "000000")
	if !errors.Is(err, ErrExpiredOrUnknownSession) {
		t.Fatalf("wrong code after use err = %v, want ErrExpiredOrUnknownSession", err)
	}
}

func TestAuthService_VerifyCode_UnknownHandleSkipsProvider(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.VerifyCode(context.Background(), "never-issued", goodCode)
	if !errors.Is(err, ErrExpiredOrUnknownSession) {
		t.Fatalf("err = %v, want ErrExpiredOrUnknownSession", err)
	}
	if env.otp.verifies.Load() != 0 {
		t.Error("provider should not be asked about unknown handles")
	}
}

func TestAuthService_VerifyCode_EmptyInput(t *testing.T) {
	env := newTestEnv(t)
	for _, in := range [][2]string{{"", goodCode}, {"h", ""}, {" ", " "}} {
		if _, err := env.svc.VerifyCode(context.Background(), in[0], in[1]); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("VerifyCode(%q, %q) err = %v, want ErrInvalidCode", in[0], in[1], err)
		}
	}
}

func TestAuthService_VerifyCode_Expired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "login", nil)

	env.svc.nowF = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); !errors.Is(err, ErrExpiredOrUnknownSession) {
		t.Fatalf("err = %v, want ErrExpiredOrUnknownSession", err)
	}
}

func TestAuthService_VerifyCode_WrongCodeThenRight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "login", nil)

	if _, err := env.svc.VerifyCode(ctx, handle, "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); err != nil {
		t.Fatalf("VerifyCode after one miss: %v", err)
	}
}

func TestAuthService_VerifyCode_TooManyAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "login", nil)

	for i := 0; i < 2; i++ {
		if _, err := env.svc.VerifyCode(ctx, handle, "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d err = %v, want ErrInvalidCode", i+1, err)
		}
	}
	if _, err := env.svc.VerifyCode(ctx, handle, "000000"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("third attempt err = %v, want ErrTooManyAttempts", err)
	}
	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); !errors.Is(err, ErrExpiredOrUnknownSession) {
		t.Fatalf("after lockout err = %v, want ErrExpiredOrUnknownSession", err)
	}
}

func TestAuthService_VerifyCode_ProviderUnavailableKeepsIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "login", nil)

	env.otp.verifyErr = provider.ErrUnavailable
	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	env.otp.verifyErr = nil
	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); err != nil {
		t.Fatalf("retry VerifyCode: %v", err)
	}
}

func TestAuthService_LoginWithoutAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	handle, _ := env.svc.RequestCode(ctx, "7770003333", "login", nil)

	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	if env.users.count() != 0 {
		t.Error("login must not create an account")
	}
}

func TestAuthService_SignupExistingAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "signup", &SignupInput{Name: "Dup", Role: "customer"})

	if _, err := env.svc.VerifyCode(ctx, handle, goodCode); !errors.Is(err, ErrAccountAlreadyExists) {
		t.Fatalf("err = %v, want ErrAccountAlreadyExists", err)
	}
	if env.users.count() != 1 {
		t.Errorf("users = %d, want 1", env.users.count())
	}
}

func TestAuthService_ConcurrentSignupsSamePhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h1, _ := env.svc.RequestCode(ctx, "1", "signup", &SignupInput{Name: "A", Role: "customer"})
	h2, _ := env.svc.RequestCode(ctx, "1", "signup", &SignupInput{Name: "B", Role: "customer"})

	var wg sync.WaitGroup
	var ok, exists atomic.Int32
	for _, h := range []string{h1, h2} {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			_, err := env.svc.VerifyCode(ctx, h, goodCode)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAccountAlreadyExists):
				exists.Add(1)
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}(h)
	}
	wg.Wait()
	if ok.Load() != 1 || exists.Load() != 1 {
		t.Errorf("ok = %d, exists = %d, want 1 and 1", ok.Load(), exists.Load())
	}
	if env.users.count() != 1 {
		t.Errorf("users = %d, want 1", env.users.count())
	}
}

func TestAuthService_ConcurrentVerifySingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser("1", userdomain.RoleCustomer)
	handle, _ := env.svc.RequestCode(ctx, "1", "login", nil)

	const n = 16
	var wg sync.WaitGroup
	var wins, gone atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.VerifyCode(ctx, handle, goodCode)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrExpiredOrUnknownSession):
				gone.Add(1)
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("wins = %d, want 1", wins.Load())
	}
	if wins.Load()+gone.Load() != n {
		t.Errorf("wins+gone = %d, want %d", wins.Load()+gone.Load(), n)
	}
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Logout(context.Background(), "")
	env.svc.Logout(context.Background(), "u1")
	if len(env.audit.actions) != 1 || env.audit.actions[0] != "logout:session" {
		t.Errorf("audit = %v", env.audit.actions)
	}
}
