package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// fakeCodeStore keeps user records in memory and mirrors the column-level
// semantics of the users repository: SetCode overwrites the pair for the
// purpose, ClearCode nulls it.
type fakeCodeStore struct {
	users map[uuid.UUID]*domain.User

	setErr   error
	clearErr error
}

func newFakeCodeStore(users ...*domain.User) *fakeCodeStore {
	store := &fakeCodeStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (s *fakeCodeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeCodeStore) SetCode(_ context.Context, userID uuid.UUID, purpose domain.CodePurpose, code string, expiresAt time.Time) error {
	if s.setErr != nil {
		return s.setErr
	}
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	switch purpose {
	case domain.PurposeRegistration:
		user.VerificationCode = &code
		user.VerificationCodeExpiresAt = &expiresAt
	case domain.PurposeLoginTwoFactor:
		user.TwoFactorCode = &code
		user.TwoFactorExpiresAt = &expiresAt
	}
	return nil
}

func (s *fakeCodeStore) ClearCode(_ context.Context, userID uuid.UUID, purpose domain.CodePurpose) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	user, ok := s.users[userID]
	if !ok {
		return nil
	}
	switch purpose {
	case domain.PurposeRegistration:
		user.VerificationCode = nil
		user.VerificationCodeExpiresAt = nil
	case domain.PurposeLoginTwoFactor:
		user.TwoFactorCode = nil
		user.TwoFactorExpiresAt = nil
	}
	return nil
}

// fakeSender records sent codes.
type fakeSender struct {
	sent []sentCode
	err  error
}

type sentCode struct {
	to      string
	purpose domain.CodePurpose
	code    string
}

func (s *fakeSender) SendCode(to string, purpose domain.CodePurpose, code string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentCode{to: to, purpose: purpose, code: code})
	return nil
}

func newTestUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "shopper@example.com",
	}
}

func newTestService(store *fakeCodeStore, sender *fakeSender, now time.Time) *TwoFactorService {
	svc := NewTwoFactorService(TwoFactorConfig{}, store, sender)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGenerateCode_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error = %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("GenerateCode() = %q, want 6 characters", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("GenerateCode() = %q, not numeric", code)
		}
		if n < 0 || n > 999999 {
			t.Fatalf("GenerateCode() = %q, out of range", code)
		}
	}
}

func TestIssue_StoresAndSends(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	sender := &fakeSender{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, sender, now)

	if err := svc.Issue(context.Background(), user, domain.PurposeRegistration); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	stored := store.users[user.ID]
	if stored.VerificationCode == nil || stored.VerificationCodeExpiresAt == nil {
		t.Fatal("Issue() did not persist code and expiry")
	}
	if got, want := *stored.VerificationCodeExpiresAt, now.Add(10*time.Minute); !got.Equal(want) {
		t.Errorf("expiry = %v, want %v", got, want)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d codes, want 1", len(sender.sent))
	}
	if sender.sent[0].to != user.Email {
		t.Errorf("sent to %q, want %q", sender.sent[0].to, user.Email)
	}
	if sender.sent[0].code != *stored.VerificationCode {
		t.Errorf("sent code %q differs from stored %q", sender.sent[0].code, *stored.VerificationCode)
	}
}

func TestIssue_OverwritesPreviousCode(t *testing.T) {
	user := newTestUser()
	old := "111111"
	oldExpiry := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	user.VerificationCode = &old
	user.VerificationCodeExpiresAt = &oldExpiry

	store := newFakeCodeStore(user)
	sender := &fakeSender{}
	now := time.Date(2026, 3, 1, 12, 4, 0, 0, time.UTC)
	svc := newTestService(store, sender, now)

	if err := svc.Issue(context.Background(), user, domain.PurposeRegistration); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	stored := store.users[user.ID]
	if got, want := *stored.VerificationCodeExpiresAt, now.Add(10*time.Minute); !got.Equal(want) {
		t.Errorf("expiry = %v, want fresh %v", got, want)
	}

	// The old code must no longer verify, even though its expiry had not
	// passed, unless the new draw happened to repeat it.
	if *stored.VerificationCode != old {
		ok, err := svc.Verify(context.Background(), user.ID, domain.PurposeRegistration, old)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if ok {
			t.Error("Verify() accepted the overwritten code")
		}
	}
}

func TestIssue_SendFailureKeepsCode(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	sender := &fakeSender{err: errors.New("smtp down")}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, sender, now)

	err := svc.Issue(context.Background(), user, domain.PurposeRegistration)
	if err == nil {
		t.Fatal("Issue() error = nil, want send failure")
	}
	if store.users[user.ID].VerificationCode == nil {
		t.Error("send failure rolled back the stored code")
	}
}

func TestIssue_StoreFailure(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	store.setErr = errors.New("db down")
	sender := &fakeSender{}
	svc := newTestService(store, sender, time.Now())

	if err := svc.Issue(context.Background(), user, domain.PurposeRegistration); err == nil {
		t.Fatal("Issue() error = nil, want store failure")
	}
	if len(sender.sent) != 0 {
		t.Error("code was sent despite store failure")
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := issuedAt.Add(10 * time.Minute)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before expiry", issuedAt.Add(time.Minute), true},
		{"one second before expiry", expiresAt.Add(-time.Second), true},
		{"exactly at expiry", expiresAt, false},
		{"after expiry", expiresAt.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := newTestUser()
			code := "123456"
			user.VerificationCode = &code
			user.VerificationCodeExpiresAt = &expiresAt

			svc := newTestService(newFakeCodeStore(user), &fakeSender{}, tt.now)
			ok, err := svc.Verify(context.Background(), user.ID, domain.PurposeRegistration, "123456")
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Verify() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestVerify_ExactStringMatch(t *testing.T) {
	stored := "000042"
	tests := []struct {
		name      string
		submitted string
		want      bool
	}{
		{"exact match", "000042", true},
		{"unpadded digits", "42", false},
		{"wrong code", "000043", false},
		{"empty", "", false},
		{"prefix", "00004", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := newTestUser()
			expiresAt := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
			user.TwoFactorCode = &stored
			user.TwoFactorExpiresAt = &expiresAt

			svc := newTestService(newFakeCodeStore(user), &fakeSender{}, expiresAt.Add(-5*time.Minute))
			ok, err := svc.Verify(context.Background(), user.ID, domain.PurposeLoginTwoFactor, tt.submitted)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.submitted, ok, tt.want)
			}
		})
	}
}

func TestVerify_NoStoredCode(t *testing.T) {
	user := newTestUser()
	svc := newTestService(newFakeCodeStore(user), &fakeSender{}, time.Now())

	ok, err := svc.Verify(context.Background(), user.ID, domain.PurposeRegistration, "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("Verify() = true with no stored code")
	}
}

func TestVerify_UnknownUser(t *testing.T) {
	svc := newTestService(newFakeCodeStore(), &fakeSender{}, time.Now())

	_, err := svc.Verify(context.Background(), uuid.New(), domain.PurposeRegistration, "123456")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Verify() error = %v, want ErrUserNotFound", err)
	}
}

func TestVerify_DoesNotConsumeCode(t *testing.T) {
	user := newTestUser()
	code := "654321"
	expiresAt := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	user.VerificationCode = &code
	user.VerificationCodeExpiresAt = &expiresAt

	store := newFakeCodeStore(user)
	svc := newTestService(store, &fakeSender{}, expiresAt.Add(-time.Minute))

	for i := 0; i < 3; i++ {
		ok, err := svc.Verify(context.Background(), user.ID, domain.PurposeRegistration, code)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !ok {
			t.Fatalf("Verify() = false on attempt %d", i+1)
		}
	}
	if store.users[user.ID].VerificationCode == nil {
		t.Error("Verify() cleared the stored code")
	}
}

func TestPurposesAreIndependent(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	sender := &fakeSender{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, sender, now)

	ctx := context.Background()
	if err := svc.Issue(ctx, user, domain.PurposeRegistration); err != nil {
		t.Fatalf("Issue(registration) error = %v", err)
	}
	if err := svc.Issue(ctx, user, domain.PurposeLoginTwoFactor); err != nil {
		t.Fatalf("Issue(two-factor) error = %v", err)
	}

	stored := store.users[user.ID]
	regCode := *stored.VerificationCode
	tfaCode := *stored.TwoFactorCode

	// Clearing one purpose must not touch the other.
	if err := svc.Clear(ctx, user.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if stored.TwoFactorCode == nil {
		t.Fatal("clearing registration wiped the two-factor code")
	}
	ok, err := svc.Verify(ctx, user.ID, domain.PurposeLoginTwoFactor, tfaCode)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("two-factor code stopped verifying after registration clear")
	}

	// The registration code is gone.
	ok, err = svc.Verify(ctx, user.ID, domain.PurposeRegistration, regCode)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("registration code verified after clear")
	}
}

func TestClear_Idempotent(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	svc := newTestService(store, &fakeSender{}, time.Now())

	ctx := context.Background()
	if err := svc.Clear(ctx, user.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("Clear() on empty state error = %v", err)
	}
	if err := svc.Clear(ctx, user.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("second Clear() error = %v", err)
	}
}

func TestRegistrationVerificationFlow(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	sender := &fakeSender{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, sender, now)
	ctx := context.Background()

	if err := svc.Issue(ctx, user, domain.PurposeRegistration); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	code := sender.sent[0].code

	ok, err := svc.Verify(ctx, user.ID, domain.PurposeRegistration, code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Fatal("issued code did not verify")
	}

	if err := svc.Clear(ctx, user.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	// A replay of the same code fails once cleared.
	ok, err = svc.Verify(ctx, user.ID, domain.PurposeRegistration, code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("code verified after clear")
	}
}

func TestExpiredCodeThenReissue(t *testing.T) {
	user := newTestUser()
	store := newFakeCodeStore(user)
	sender := &fakeSender{}
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, sender, current)
	svc.now = func() time.Time { return current }
	ctx := context.Background()

	if err := svc.Issue(ctx, user, domain.PurposeLoginTwoFactor); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	first := sender.sent[0].code

	// Eleven minutes later the code has lapsed.
	current = current.Add(11 * time.Minute)
	ok, err := svc.Verify(ctx, user.ID, domain.PurposeLoginTwoFactor, first)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Fatal("expired code verified")
	}

	// Reissue succeeds and the fresh code works.
	if err := svc.Issue(ctx, user, domain.PurposeLoginTwoFactor); err != nil {
		t.Fatalf("reissue error = %v", err)
	}
	second := sender.sent[1].code
	ok, err = svc.Verify(ctx, user.ID, domain.PurposeLoginTwoFactor, second)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("reissued code did not verify")
	}
}

func TestDefaultTTLApplied(t *testing.T) {
	svc := NewTwoFactorService(TwoFactorConfig{}, newFakeCodeStore(), &fakeSender{})
	if svc.config.CodeTTL != DefaultCodeTTL {
		t.Errorf("CodeTTL = %v, want %v", svc.config.CodeTTL, DefaultCodeTTL)
	}

	custom := NewTwoFactorService(TwoFactorConfig{CodeTTL: 5 * time.Minute}, newFakeCodeStore(), &fakeSender{})
	if custom.config.CodeTTL != 5*time.Minute {
		t.Errorf("CodeTTL = %v, want 5m", custom.config.CodeTTL)
	}
}
