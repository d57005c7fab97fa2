package models

import "time"

// Program is a training program applicants register for.
type Program struct {
	Code      string    `json:"code" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:191;not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
