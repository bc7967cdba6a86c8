package domain

import (
	"context"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	FullName     string    `gorm:"size:128;not null" json:"fullName"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Phone        string    `gorm:"size:32" json:"phone"`
	RoomNumber   *string   `gorm:"uniqueIndex;size:32" json:"roomNumber"`
	PasswordHash string    `gorm:"size:191;not null" json:"-"`
	Role         string    `gorm:"size:16;not null" json:"role"` // "user"/"admin"
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor 当前请求的身份（来自 JWT）
type Actor struct {
	UserID string
	Role   string
	Name   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*User, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	RoomTaken(ctx context.Context, room, exceptID string) (bool, error)
	List(ctx context.Context, keyword string, offset, limit int) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
}
