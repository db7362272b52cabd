// Package testutil builds throwaway sqlite databases and fixtures for tests.
package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"teamhub/models"
)

// Password is the plain-text password of every fixture user.
const Password = "password123"

var dbSeq int64

// NewDB returns a migrated in-memory database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("teamhub_test_%d", atomic.AddInt64(&dbSeq, 1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoErrorf(t, err, "gorm.Open failed: %s", err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "migration failed")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

var (
	hashOnce     sync.Once
	passwordHash string
	hashErr      error
)

func hashedPassword(t testing.TB) string {
	hashOnce.Do(func() {
		var hash []byte
		hash, hashErr = bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		passwordHash = string(hash)
	})
	require.NoError(t, hashErr)
	return passwordHash
}

// CreateUser inserts an active user whose password is Password.
func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword(t),
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
		TokenVersion: 1,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateStaff inserts a staff user.
func CreateStaff(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := CreateUser(t, db, email)
	require.NoError(t, db.Model(user).Update("is_staff", true).Error)
	user.IsStaff = true
	return user
}
