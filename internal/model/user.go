package model

import "time"

// User is an account holder. Every intervention belongs to exactly one user
// and all intervention queries are scoped by the owning user id.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(191);not null" json:"fullName"`
	Email     string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash; legacy rows may hold plaintext
	CreatedOn time.Time `gorm:"autoCreateTime" json:"createdOn"`

	Interventions []Intervention `gorm:"foreignKey:UserID" json:"-"`
}
