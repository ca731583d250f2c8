package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course is maintained by the admin routes and read-only for enrollment and payment.
type Course struct {
	gorm.Model
	Title       string          `json:"title" gorm:"not null"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Level       Level           `json:"level" gorm:"type:varchar(16);index;not null"`
	Instructor  string          `json:"instructor"`
	Duration    string          `json:"duration"` // e.g. "6 weeks"
	Lectures    []Lecture       `json:"-"`
}

type Lecture struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_lectures_course_order"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	IsDemo      bool   `json:"is_demo" gorm:"default:false;index"`
	OrderIndex  int    `json:"order_index" gorm:"not null;uniqueIndex:idx_lectures_course_order"`
}
