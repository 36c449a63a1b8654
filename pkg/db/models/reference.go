package models

import "time"

// Company is a buying organisation. Client users act on its behalf.
type Company struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Company) TableName() string { return "companies" }

// Supplier lists products and receives purchase orders.
type Supplier struct {
	ID                     int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name                   string    `gorm:"column:name;not null"`
	Email                  string    `gorm:"column:email;not null"`
	NotificationWebhookURL *string   `gorm:"column:notification_webhook_url"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Supplier) TableName() string { return "suppliers" }
