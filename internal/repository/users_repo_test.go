package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// testDB opens the database named by TEST_DATABASE_URL, skipping the test
// when it is unset. These are integration tests; run them against a scratch
// Postgres with the schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping repository test - set TEST_DATABASE_URL to run")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, repo *UsersRepository) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@test.example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$dGVzdA$dGVzdA",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		repo.SoftDelete(context.Background(), user.ID)
	})
	return user
}

func TestUsersRepository_SetCode_Overwrites(t *testing.T) {
	repo := NewUsersRepository(testDB(t))
	user := createTestUser(t, repo)
	ctx := context.Background()

	first := time.Now().Add(10 * time.Minute).Truncate(time.Millisecond)
	if err := repo.SetCode(ctx, user.ID, domain.PurposeRegistration, "111111", first); err != nil {
		t.Fatalf("SetCode() error = %v", err)
	}

	second := time.Now().Add(10 * time.Minute).Truncate(time.Millisecond)
	if err := repo.SetCode(ctx, user.ID, domain.PurposeRegistration, "222222", second); err != nil {
		t.Fatalf("second SetCode() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.VerificationCode == nil || *got.VerificationCode != "222222" {
		t.Errorf("stored code = %v, want 222222", got.VerificationCode)
	}
	if got.TwoFactorCode != nil {
		t.Error("registration SetCode touched the two-factor columns")
	}
}

func TestUsersRepository_SetCode_PurposeColumns(t *testing.T) {
	repo := NewUsersRepository(testDB(t))
	user := createTestUser(t, repo)
	ctx := context.Background()

	expiry := time.Now().Add(10 * time.Minute)
	if err := repo.SetCode(ctx, user.ID, domain.PurposeLoginTwoFactor, "333333", expiry); err != nil {
		t.Fatalf("SetCode() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TwoFactorCode == nil || *got.TwoFactorCode != "333333" {
		t.Errorf("two-factor code = %v, want 333333", got.TwoFactorCode)
	}
	if got.VerificationCode != nil {
		t.Error("two-factor SetCode touched the registration columns")
	}
}

func TestUsersRepository_ClearCode(t *testing.T) {
	repo := NewUsersRepository(testDB(t))
	user := createTestUser(t, repo)
	ctx := context.Background()

	if err := repo.SetCode(ctx, user.ID, domain.PurposeRegistration, "444444", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("SetCode() error = %v", err)
	}
	if err := repo.ClearCode(ctx, user.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("ClearCode() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.VerificationCode != nil || got.VerificationCodeExpiresAt != nil {
		t.Error("ClearCode left code or expiry set")
	}

	// Clearing an already-clear pair is a no-op.
	if err := repo.ClearCode(ctx, user.ID, domain.PurposeRegistration); err != nil {
		t.Errorf("repeated ClearCode() error = %v", err)
	}
}

func TestUsersRepository_SetCode_UnknownUser(t *testing.T) {
	repo := NewUsersRepository(testDB(t))

	err := repo.SetCode(context.Background(), uuid.New(), domain.PurposeRegistration, "555555", time.Now().Add(10*time.Minute))
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("SetCode() error = %v, want ErrUserNotFound", err)
	}
}

func TestUsersRepository_MarkEmailVerified(t *testing.T) {
	repo := NewUsersRepository(testDB(t))
	user := createTestUser(t, repo)
	ctx := context.Background()

	if err := repo.MarkEmailVerified(ctx, user.ID); err != nil {
		t.Fatalf("MarkEmailVerified() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.EmailVerified {
		t.Error("email_verified still false")
	}
}

func TestUsersRepository_GetByEmail(t *testing.T) {
	repo := NewUsersRepository(testDB(t))
	user := createTestUser(t, repo)
	ctx := context.Background()

	got, err := repo.GetByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByEmail() id = %v, want %v", got.ID, user.ID)
	}

	if _, err := repo.GetByEmail(ctx, "nobody@test.example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("GetByEmail(unknown) error = %v, want ErrUserNotFound", err)
	}
}
