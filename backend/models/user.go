package models

import "gorm.io/gorm"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Username     string `json:"username" gorm:"unique;not null"`
	Email        string `json:"email" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"default:user"` // user, admin
}

// All lists every model the service migrates.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Lecture{},
		&Enrollment{},
	}
}
