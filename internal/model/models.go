package model

import "time"

// Intervention is the core helpdesk work item: what needs doing, for which
// company, and free-text detail. Pinned interventions sort before the rest
// in list responses.
type Intervention struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"type:varchar(191);not null" json:"title"`
	CompanyName   string    `gorm:"type:varchar(191);not null" json:"companyName"`
	CompanyNumber string    `gorm:"type:varchar(64);not null" json:"companyNumber"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Tags          []string  `gorm:"serializer:json" json:"tags"`
	IsPinned      bool      `gorm:"default:false" json:"isPinned"`
	UserID        uint      `gorm:"not null;index" json:"userId"` // owner, set at creation and never reassigned
	CreatedOn     time.Time `gorm:"autoCreateTime" json:"createdOn"`
}
