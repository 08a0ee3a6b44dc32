package models

// User represents a back-office administrator account.
// Domain data is not scoped per user; users exist for authentication only.
type User struct {
	Base
	Email            string `gorm:"uniqueIndex;not null" json:"email"`
	Password         string `gorm:"not null" json:"-"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string `json:"-"`
}
