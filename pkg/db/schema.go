package db

import (
	"time"
)

type Record struct {
	ID        string    `json:"_id" gorm:"primaryKey;size:24"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"size:320;not null"`
	Phone     string    `json:"phone" gorm:"not null"`
	Product   string    `json:"product"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	SourceIP  string    `json:"sourceIp"`
	UserAgent string    `json:"userAgent"`
}
