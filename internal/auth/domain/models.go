// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin           Role = "admin"
	RoleCollectionAgent Role = "collection_agent"
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCollectionAgent:
		return RoleCollectionAgent, true
	}
	return "", false
}

// User is an operator account: an administrator or a collection agent.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"not null" json:"username"`
	Name         string       `gorm:"not null" json:"name"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Role         Role         `gorm:"type:text;not null" json:"role"`
	PasswordHash string       `gorm:"column:password_hash;not null" json:"-"`
	Active       bool         `gorm:"not null" json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID snowflake.ID
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
