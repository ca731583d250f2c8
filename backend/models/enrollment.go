package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Enrollment binds a user to a course. The (user_id, course_id) unique index
// guarantees a single row per pair; rows are never deleted.
type Enrollment struct {
	ID               uint                `json:"id" gorm:"primarykey"`
	UserID           uint                `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollments_user_course"`
	CourseID         uint                `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollments_user_course;index"`
	PaymentStatus    PaymentStatus       `json:"payment_status" gorm:"type:varchar(16);not null;default:pending;index"`
	EnrolledAt       time.Time           `json:"enrolled_at" gorm:"not null"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	AmountPaid       decimal.NullDecimal `json:"amount_paid,omitempty" gorm:"type:numeric(12,2)"`
	// ChargeClaim is held by the request currently charging this enrollment.
	ChargeClaim string     `json:"-" gorm:"type:varchar(64)"`
	ChargingAt  *time.Time `json:"-"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (e Enrollment) Completed() bool {
	return e.PaymentStatus == PaymentCompleted
}
