package storage

import (
	"sync"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
)

var (
	storeInstance Store
	storeMu       sync.RWMutex
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return storeInstance
}

// SessionStore persists per-phone conversation state. Implementations must
// tolerate concurrent handler invocations: UpdateSession applies the partial
// mutation on top of the current record (or a fresh mainMenu session when
// none exists) so two near-simultaneous updates to different fields are not
// lost.
type SessionStore interface {
	// GetSession returns the session for phone, or nil when none exists.
	GetSession(phone string) (*models.SessionData, error)
	// SetSession stores the full session for phone, replacing any existing one.
	SetSession(phone string, session *models.SessionData) error
	// UpdateSession loads the current session (defaulting to a fresh
	// mainMenu session), applies the mutation, refreshes the interaction
	// timestamp unless the mutation set it explicitly, and writes it back.
	UpdateSession(phone string, apply func(*models.SessionData)) error
	// DeleteSession removes the session for phone. Removing a missing
	// session is not an error.
	DeleteSession(phone string) error
	// ExpiredSessionPhones returns the phones whose sessions were last
	// touched strictly before cutoffMs.
	ExpiredSessionPhones(cutoffMs int64) ([]string, error)
}

// AppointmentStore persists appointment records.
type AppointmentStore interface {
	// GetAppointmentByPhone returns the user's upcoming appointment
	// (date >= today), or nil when none exists.
	GetAppointmentByPhone(phone string) (*models.Appointment, error)
	// GetAppointmentsByDate returns every appointment on the given ISO date.
	GetAppointmentsByDate(isoDate string) ([]*models.Appointment, error)
	// CreateAppointment stores a new appointment, assigning an ID when empty.
	CreateAppointment(appt *models.Appointment) error
	// UpdateAppointment rewrites the appointment matching appt.UserPhone.
	UpdateAppointment(appt *models.Appointment) error
	// DeleteAppointmentByPhone removes the user's appointment.
	DeleteAppointmentByPhone(phone string) error
}

// Store combines the session and appointment stores for backends that
// implement both.
type Store interface {
	SessionStore
	AppointmentStore
}

type compositeStore struct {
	SessionStore
	AppointmentStore
}

// Compose builds a Store from separate session and appointment backends,
// e.g. Redis sessions over database appointments.
func Compose(sessions SessionStore, appointments AppointmentStore) Store {
	return &compositeStore{SessionStore: sessions, AppointmentStore: appointments}
}
