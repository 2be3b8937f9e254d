package models

import "time"

// Collaboration is a directed edge between two tracked profiles, derived from
// a post's collaborator list. PostedAt is denormalized from the originating
// post for time-window queries.
type Collaboration struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID         int64     `gorm:"not null;index;column:post_id"`
	CollaboratorID int64     `gorm:"not null;index;column:collaborator_id"`
	CollaboratedID int64     `gorm:"not null;index;column:collaborated_id"`
	PostedAt       time.Time `gorm:"not null;index;column:posted_at"`
	CreatedAt      time.Time `gorm:"not null;column:created_at"`

	Post         *Post           `gorm:"foreignKey:PostID;references:ID"`
	Collaborator *TrackedProfile `gorm:"foreignKey:CollaboratorID;references:ID"`
	Collaborated *TrackedProfile `gorm:"foreignKey:CollaboratedID;references:ID"`
}

// TableName specifies the table name for Collaboration
func (Collaboration) TableName() string {
	return "collaborations"
}
