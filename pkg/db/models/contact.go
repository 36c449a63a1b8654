package models

import "time"

// Contact is a reusable person to reach about a delivery.
type Contact struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID   int64     `gorm:"column:company_id;not null"`
	Alias       string    `gorm:"column:alias;not null"`
	ContactName string    `gorm:"column:contact_name;not null"`
	PhoneNumber string    `gorm:"column:phone_number;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Contact) TableName() string { return "contacts" }
