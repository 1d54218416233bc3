package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sambhav-gg/StreetBites/internal/audit"
	"github.com/Sambhav-gg/StreetBites/internal/metrics"
	"github.com/Sambhav-gg/StreetBites/internal/otp/provider"
	intentdomain "github.com/Sambhav-gg/StreetBites/internal/otpintent/domain"
	"github.com/Sambhav-gg/StreetBites/internal/security"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
	telemetrydomain "github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

// Sentinel errors for auth service; handler maps them to HTTP statuses.
var (
	ErrInvalidPhone            = errors.New("phone is required")
	ErrInvalidIntentType       = errors.New("type must be login or signup")
	ErrInvalidSignupProfile    = errors.New("signup requires a name and a role of customer or vendor")
	ErrInvalidCode             = errors.New("invalid otp")
	ErrExpiredOrUnknownSession = errors.New("otp session expired or unknown")
	ErrTooManyAttempts         = errors.New("too many failed attempts; request a new code")
	ErrProviderUnavailable     = errors.New("otp provider unavailable")
	ErrAccountNotFound         = errors.New("no account for this phone; sign up first")
	ErrAccountAlreadyExists    = errors.New("an account with this phone already exists")
)

const eventSource = "identity"

var tracer = otel.Tracer("github.com/Sambhav-gg/StreetBites/internal/identity/service")

// SignupInput is the profile submitted with a signup code request.
type SignupInput struct {
	Name  string
	Email string
	Role  string
}

// AuthResult holds the session token and the account it belongs to.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      userdomain.PublicView
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByPhone(ctx context.Context, phone string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// IntentRepo is the minimal OTP intent store needed by the auth service.
type IntentRepo interface {
	Create(ctx context.Context, i *intentdomain.Intent) error
	GetByHandle(ctx context.Context, handle string) (*intentdomain.Intent, error)
	Take(ctx context.Context, handle string) (*intentdomain.Intent, error)
	RecordFailedAttempt(ctx context.Context, handle string) (int, error)
	Delete(ctx context.Context, handle string) error
}

// AuthService implements phone OTP signup and login: RequestCode sends a code and records a
// pending intent; VerifyCode checks the code, resolves the intent once, and issues a session token.
type AuthService struct {
	userRepo    UserRepo
	intentRepo  IntentRepo
	otp         provider.Provider
	tokens      *security.TokenProvider
	intentTTL   time.Duration
	maxAttempts int
	auditLogger audit.AuditLogger
	events      telemetry.EventEmitter
	log         zerolog.Logger
	nowF        func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLogger and events may be nil. maxAttempts below 1 is treated as 1.
func NewAuthService(
	userRepo UserRepo,
	intentRepo IntentRepo,
	otp provider.Provider,
	tokens *security.TokenProvider,
	intentTTL time.Duration,
	maxAttempts int,
	auditLogger audit.AuditLogger,
	events telemetry.EventEmitter,
	log zerolog.Logger,
) *AuthService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if events == nil {
		events = telemetry.Nop{}
	}
	return &AuthService{
		userRepo:    userRepo,
		intentRepo:  intentRepo,
		otp:         otp,
		tokens:      tokens,
		intentTTL:   intentTTL,
		maxAttempts: maxAttempts,
		auditLogger: auditLogger,
		events:      events,
		log:         log,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// RequestCode validates the request, asks the provider to send a code to phone, and stores
// a pending intent under the returned session handle.
func (s *AuthService) RequestCode(ctx context.Context, phone, intentType string, signup *SignupInput) (string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.RequestCode")
	defer span.End()

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrInvalidPhone
	}
	typ, ok := intentdomain.ParseType(intentType)
	if !ok {
		return "", ErrInvalidIntentType
	}
	span.SetAttributes(attribute.String("otp.intent", string(typ)))
	var profile *intentdomain.SignupProfile
	if typ == intentdomain.TypeSignup {
		p, err := validateSignup(signup)
		if err != nil {
			metrics.RecordOTPRequest(string(typ), "invalid")
			return "", err
		}
		profile = p
	}

	handle, err := s.otp.SendCode(ctx, phone)
	if err != nil {
		metrics.RecordOTPRequest(string(typ), "provider_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "send code")
		s.log.Warn().Err(err).Str("intent", string(typ)).Msg("otp: send failed")
		return "", fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	now := s.nowF()
	intent := &intentdomain.Intent{
		SessionHandle: handle,
		Phone:         phone,
		Type:          typ,
		Profile:       profile,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.intentTTL),
	}
	if err := s.intentRepo.Create(ctx, intent); err != nil {
		metrics.RecordOTPRequest(string(typ), "error")
		return "", fmt.Errorf("store otp intent: %w", err)
	}
	metrics.RecordOTPRequest(string(typ), "sent")
	s.emit(ctx, telemetrydomain.NewEvent(telemetrydomain.EventOTPSent, eventSource, map[string]string{"type": string(typ)}))
	return handle, nil
}

// VerifyCode checks code against the pending intent for handle. On success the intent is
// consumed, the account is found (login) or created (signup), and a session token is issued.
func (s *AuthService) VerifyCode(ctx context.Context, handle, code string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyCode")
	defer span.End()

	res, err := s.verify(ctx, strings.TrimSpace(handle), strings.TrimSpace(code))
	metrics.RecordOTPVerification(verificationResult(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify code")
	}
	return res, err
}

func (s *AuthService) verify(ctx context.Context, handle, code string) (*AuthResult, error) {
	if handle == "" || code == "" {
		return nil, ErrInvalidCode
	}
	pending, err := s.intentRepo.GetByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load otp intent: %w", err)
	}
	if pending == nil || pending.Expired(s.nowF()) {
		return nil, ErrExpiredOrUnknownSession
	}

	if err := s.otp.VerifyCode(ctx, handle, code); err != nil {
		if !errors.Is(err, provider.ErrRejected) {
			s.log.Warn().Err(err).Msg("otp: verify call failed")
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return nil, s.recordRejection(ctx, handle)
	}

	intent, err := s.intentRepo.Take(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("take otp intent: %w", err)
	}
	if intent == nil {
		return nil, ErrExpiredOrUnknownSession
	}

	var user *userdomain.User
	switch intent.Type {
	case intentdomain.TypeLogin:
		user, err = s.login(ctx, intent)
	case intentdomain.TypeSignup:
		user, err = s.signup(ctx, intent)
	default:
		err = ErrInvalidIntentType
	}
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	s.emit(ctx, telemetrydomain.NewEvent(telemetrydomain.EventOTPVerified, eventSource,
		map[string]string{"type": string(intent.Type)}).WithUser(user.ID))
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// recordRejection counts a rejected code and discards the intent once the limit is reached.
func (s *AuthService) recordRejection(ctx context.Context, handle string) error {
	attempts, err := s.intentRepo.RecordFailedAttempt(ctx, handle)
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if attempts == 0 {
		return ErrExpiredOrUnknownSession
	}
	if attempts >= s.maxAttempts {
		if err := s.intentRepo.Delete(ctx, handle); err != nil {
			s.log.Warn().Err(err).Msg("otp: failed to discard exhausted intent")
		}
		return ErrTooManyAttempts
	}
	return ErrInvalidCode
}

func (s *AuthService) login(ctx context.Context, intent *intentdomain.Intent) (*userdomain.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, intent.Phone)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrAccountNotFound
	}
	s.logAudit(ctx, user.ID, "login", "session")
	return user, nil
}

func (s *AuthService) signup(ctx context.Context, intent *intentdomain.Intent) (*userdomain.User, error) {
	if intent.Profile == nil {
		return nil, ErrInvalidSignupProfile
	}
	existing, err := s.userRepo.GetByPhone(ctx, intent.Phone)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, ErrAccountAlreadyExists
	}
	now := s.nowF()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Phone:     intent.Phone,
		Name:      intent.Profile.Name,
		Email:     intent.Profile.Email,
		Role:      intent.Profile.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, ErrInvalidSignupProfile
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, userdomain.ErrPhoneTaken) {
			return nil, ErrAccountAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logAudit(ctx, user.ID, "signup", "user")
	return user, nil
}

// Logout records the logout for an authenticated caller. Tokens are stateless; the handler clears the cookie.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	if userID != "" {
		s.logAudit(ctx, userID, "logout", "session")
	}
}

func (s *AuthService) logAudit(ctx context.Context, userID, action, resource string) {
	if s.auditLogger != nil {
		s.auditLogger.LogEvent(ctx, userID, action, resource, "")
	}
}

func (s *AuthService) emit(ctx context.Context, e *telemetrydomain.Event) {
	if err := s.events.Emit(ctx, e); err != nil {
		s.log.Debug().Err(err).Str("event", e.EventType).Msg("telemetry: emit failed")
	}
}

func validateSignup(in *SignupInput) (*intentdomain.SignupProfile, error) {
	if in == nil {
		return nil, ErrInvalidSignupProfile
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidSignupProfile
	}
	role, err := userdomain.ParseRole(in.Role)
	if err != nil {
		return nil, ErrInvalidSignupProfile
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email != "" && !userdomain.ValidEmail(email) {
		return nil, ErrInvalidSignupProfile
	}
	return &intentdomain.SignupProfile{Name: name, Email: email, Role: role}, nil
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, ErrExpiredOrUnknownSession):
		return "expired"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_error"
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrAccountAlreadyExists):
		return "account_conflict"
	default:
		return "error"
	}
}
