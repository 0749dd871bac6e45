package models

import "time"

// Customer is a shop customer. Customers are shared by every user.
type Customer struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FirstName   string    `gorm:"column:first_name;not null"`
	LastName    string    `gorm:"column:last_name;not null;default:''"`
	Email       *string   `gorm:"column:email"`
	PhoneNumber *string   `gorm:"column:phone_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName joins first and last name.
func (c Customer) DisplayName() string {
	switch {
	case c.LastName == "":
		return c.FirstName
	case c.FirstName == "":
		return c.LastName
	default:
		return c.FirstName + " " + c.LastName
	}
}
