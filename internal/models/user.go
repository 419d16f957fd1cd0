package models

import "time"

// UserRole discriminates the polymorphic user variants.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleCoach   UserRole = "COACH"
	RoleStudent UserRole = "STUDENT"
)

// User is the base account record shared by every role.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Name         string     `db:"name" json:"name"`
	PhoneNumber  string     `db:"phone_number" json:"phone_number"`
	Country      string     `db:"country" json:"country"`
	Region       string     `db:"region" json:"region"`
	Avatar       string     `db:"avatar" json:"avatar"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsDeleted    bool       `db:"is_deleted" json:"is_deleted"`
	LastVisit    *time.Time `db:"last_visit" json:"last_visit,omitempty"`
	CreatedBy    *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
