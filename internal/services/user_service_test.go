package services

import (
	"testing"

	"caudal/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("ana@example.com", "secret123", "Ana", "Gomez")
		testutil.AssertNoError(t, err)

		if user.Password == "secret123" {
			t.Error("expected password to be hashed")
		}
		if !user.IsActive {
			t.Error("expected new user to be active")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("ana@example.com", "secret123", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("ana@example.com", "other456", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})
}

func TestAttemptLogin(t *testing.T) {
	t.Run("valid_credentials", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		created, err := svc.CreateUser("ana@example.com", "secret123", "", "")
		testutil.AssertNoError(t, err)

		user, err := svc.AttemptLogin("ana@example.com", "secret123")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Error("expected the created user back")
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("ana@example.com", "secret123", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.AttemptLogin("ana@example.com", "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown_email_is_indistinguishable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.AttemptLogin("nobody@example.com", "secret123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("inactive_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("ana@example.com", "secret123", "", "")
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, db.Model(user).Update("is_active", false).Error)

		_, err = svc.AttemptLogin("ana@example.com", "secret123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "abc123"))

		hash, err := svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "abc123" {
			t.Errorf("expected stored hash back, got %q", hash)
		}

		// A new login replaces the previous hash.
		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "def456"))
		hash, err = svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "def456" {
			t.Errorf("expected rotated hash, got %q", hash)
		}
	})

	t.Run("missing_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.GetRefreshTokenHash("00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}
