package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Completion is written together with the pending → completed transition.
type Completion struct {
	At        time.Time
	Reference string
	Amount    decimal.Decimal
}

// InsertPending inserts the enrollment unless a row for the same (user, course)
// already exists. It reports whether this call created the row; the unique
// index arbitrates between concurrent callers.
func (s *Store) InsertPending(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	enrollment.PaymentStatus = models.PaymentPending

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(enrollment)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("insert enrollment: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetEnrollment returns nil when the user holds no enrollment for the course.
func (s *Store) GetEnrollment(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Take(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &enrollment, nil
}

// CompletePending moves the (user, course) enrollment from pending to completed
// in a single conditional update. It reports false when no pending row matched.
func (s *Store) CompletePending(ctx context.Context, userID, courseID uint, c Completion) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND payment_status = ?", userID, courseID, models.PaymentPending).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentCompleted,
			"completed_at":      c.At,
			"payment_reference": c.Reference,
			"amount_paid":       decimal.NewNullDecimal(c.Amount),
			"charge_claim":      "",
			"charging_at":       nil,
			"updated_at":        c.At,
		})
	if res.Error != nil {
		return false, fmt.Errorf("complete enrollment: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClaimCharge marks a pending enrollment as being charged by the holder of
// claim. It fails while another unexpired claim is held, so at most one
// processor call runs per (user, course). Claims older than staleBefore are
// taken over.
func (s *Store) ClaimCharge(ctx context.Context, userID, courseID uint, claim string, at, staleBefore time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND payment_status = ?", userID, courseID, models.PaymentPending).
		Where("(charging_at IS NULL OR charging_at < ?)", staleBefore).
		Updates(map[string]interface{}{
			"charge_claim": claim,
			"charging_at":  at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim charge: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseCharge drops claim if it is still the one held on a pending row.
func (s *Store) ReleaseCharge(ctx context.Context, userID, courseID uint, claim string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND payment_status = ? AND charge_claim = ?", userID, courseID, models.PaymentPending, claim).
		Updates(map[string]interface{}{
			"charge_claim": "",
			"charging_at":  nil,
		}).Error
	if err != nil {
		return fmt.Errorf("release charge: %w", err)
	}
	return nil
}

// ListCompleted returns the user's completed enrollments, most recent first.
func (s *Store) ListCompleted(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND payment_status = ?", userID, models.PaymentCompleted).
		Order("enrolled_at DESC").
		Order("id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("list completed enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *Store) CountEnrollments(ctx context.Context, status models.PaymentStatus) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("payment_status = ?", status).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count %s enrollments: %w", status, err)
	}
	return n, nil
}
