package models

import (
	"time"
)

// User 用户模型
type User struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Username   string     `json:"username" gorm:"unique;not null"`
	Password   string     `json:"-" gorm:"not null"` // 密码不返回给前端
	Email      string     `json:"email" gorm:"unique;not null"`
	Avatar     string     `json:"avatar"`
	NativeLang string     `json:"native_lang"` // 母语
	TargetLang string     `json:"target_lang"` // 学习目标语言
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UserResponse 用户响应模型（不包含敏感信息）
type UserResponse struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
	TargetLang string `json:"target_lang,omitempty"`
	Online     bool   `json:"online"`
}
