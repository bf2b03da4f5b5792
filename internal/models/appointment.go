package models

import "time"

// Appointment represents a confirmed clinic visit. The Date field always
// holds the storage format (YYYY-MM-DD); user-facing formatting happens at
// the flow layer.
type Appointment struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserPhone    string    `json:"user_phone" gorm:"index:idx_appointments_user_phone"`
	ServiceID    string    `json:"service_id"`
	ServiceTitle string    `json:"service_title"`
	Date         string    `json:"date" gorm:"index"`
	Time         string    `json:"time"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Default service assigned to bookings made through the chat flow.
const (
	DefaultServiceID    = "default"
	DefaultServiceTitle = "Eye Care Appointment"
)
