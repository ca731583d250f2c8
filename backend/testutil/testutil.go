// Package testutil provides an in-memory SQLite database with the service
// schema and small seeding helpers for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"storefront/backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database and migrates every model. A single
// connection serialises concurrent callers the way row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedCourse inserts a course with the given lectures attached.
func SeedCourse(t testing.TB, db *gorm.DB, title string, price string, lectures ...models.Lecture) models.Course {
	t.Helper()

	course := models.Course{
		Title:       title,
		Description: title + " description",
		Price:       decimal.RequireFromString(price),
		Level:       models.LevelBeginner,
		Instructor:  "Expert Trading Team",
		Duration:    "4 weeks",
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	for i := range lectures {
		lectures[i].CourseID = course.ID
		if err := db.Create(&lectures[i]).Error; err != nil {
			t.Fatalf("seed lecture: %v", err)
		}
	}
	course.Lectures = lectures
	return course
}

// SeedUser inserts a user whose password is "password".
func SeedUser(t testing.TB, db *gorm.DB, username, role string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedEnrollment inserts an enrollment row directly, bypassing the services.
func SeedEnrollment(t testing.TB, db *gorm.DB, userID, courseID uint, status models.PaymentStatus, enrolledAt time.Time) models.Enrollment {
	t.Helper()

	enrollment := models.Enrollment{
		UserID:        userID,
		CourseID:      courseID,
		PaymentStatus: status,
		EnrolledAt:    enrolledAt,
	}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	return enrollment
}

// Lectures returns n lectures; the first demo ones are flagged as demos.
func Lectures(n, demo int) []models.Lecture {
	out := make([]models.Lecture, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Lecture{
			Title:      fmt.Sprintf("Lecture %d", i+1),
			Duration:   "15:00",
			IsDemo:     i < demo,
			OrderIndex: (i + 1) * 10,
		})
	}
	return out
}
