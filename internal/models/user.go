// Package models defines domain models for the badge evaluation engine.
package models

import (
	"time"
)

// Role identifies the two actor kinds badges are defined for.
type Role string

// Role constants.
const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether the role is one the catalog can define badges for.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// User represents a doctor or patient known to the engine. The engine does
// not own user lifecycle; rows are written by the account subsystem and
// read here for role and specialty lookups.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Role      Role      `gorm:"size:20;not null;index" json:"role"`
	Specialty string    `gorm:"size:100;index" json:"specialty"` // doctors only
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
