package models

import (
	"gorm.io/datatypes"
)

// SessionState names a step in the booking conversation.
type SessionState string

const (
	StateMainMenu          SessionState = "mainMenu"
	StateAwaitingName      SessionState = "awaitingName"
	StateAwaitingDate      SessionState = "awaitingDate"
	StateAwaitingSession   SessionState = "awaitingSession"
	StateAwaitingTime      SessionState = "awaitingTime"
	StateAwaitingConfirm   SessionState = "awaitingConfirm"
	StateRescheduleNewDate SessionState = "rescheduleNewDate"
	StateRescheduleSession SessionState = "rescheduleSession"
	StateRescheduleNewTime SessionState = "rescheduleNewTime"
	StateRescheduleCheck   SessionState = "rescheduleCheck"
	StateConfirmCancel     SessionState = "confirmCancel"
)

// SlotPreference is the morning/evening choice a user makes before picking
// an exact slot.
type SlotPreference string

const (
	PreferenceMorning SlotPreference = "morning"
	PreferenceEvening SlotPreference = "evening"
)

// SessionData is the per-phone conversation state. DateOptions and
// SlotOptions are frozen at prompt time so a numeric reply always resolves
// against exactly the list the user saw, even if availability shifted in
// between.
type SessionData struct {
	State                 SessionState   `json:"state"`
	Name                  string         `json:"name,omitempty"`
	SelectedDate          string         `json:"selectedDate,omitempty"` // display format DD/MM/YYYY
	SelectedTime          string         `json:"selectedTime,omitempty"`
	SlotPreference        SlotPreference `json:"slotPreference,omitempty"`
	DateOptions           []string       `json:"dateOptions,omitempty"`
	SlotOptions           []string       `json:"slotOptions,omitempty"`
	LastInteractionUnixMs int64          `json:"lastInteractionUnixMs"`
}

// SessionRecord stores a SessionData blob per phone number.
type SessionRecord struct {
	PhoneNumber string         `json:"phone_number" gorm:"primaryKey"`
	Data        datatypes.JSON `json:"data"`
}

// TableName keeps the table name compatible with the original deployment.
func (SessionRecord) TableName() string { return "sessions" }
