package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

// MemoryStore holds all data in memory for local development and tests
type MemoryStore struct {
	sessions     map[string]*models.SessionData
	appointments map[string]*models.Appointment // keyed by appointment ID

	sessionMu sync.RWMutex
	apptMu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:     make(map[string]*models.SessionData),
		appointments: make(map[string]*models.Appointment),
	}
}

// Session operations

func (m *MemoryStore) GetSession(phone string) (*models.SessionData, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	session, exists := m.sessions[phone]
	if !exists {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) SetSession(phone string, session *models.SessionData) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	copied := *session
	m.sessions[phone] = &copied
	return nil
}

func (m *MemoryStore) UpdateSession(phone string, apply func(*models.SessionData)) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	session, exists := m.sessions[phone]
	if !exists {
		session = &models.SessionData{
			State:                 models.StateMainMenu,
			LastInteractionUnixMs: time.Now().UnixMilli(),
		}
		m.sessions[phone] = session
	}

	before := session.LastInteractionUnixMs
	apply(session)
	if session.LastInteractionUnixMs == before {
		session.LastInteractionUnixMs = time.Now().UnixMilli()
	}
	return nil
}

func (m *MemoryStore) DeleteSession(phone string) error {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	delete(m.sessions, phone)
	return nil
}

func (m *MemoryStore) ExpiredSessionPhones(cutoffMs int64) ([]string, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	var phones []string
	for phone, session := range m.sessions {
		if session.LastInteractionUnixMs < cutoffMs {
			phones = append(phones, phone)
		}
	}
	sort.Strings(phones)
	return phones, nil
}

// Appointment operations

func (m *MemoryStore) GetAppointmentByPhone(phone string) (*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	today := time.Now().Format(utils.ISODateLayout)
	for _, appt := range m.appointments {
		if appt.UserPhone == phone && appt.Date >= today {
			copied := *appt
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetAppointmentsByDate(isoDate string) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	var results []*models.Appointment
	for _, appt := range m.appointments {
		if appt.Date == isoDate {
			copied := *appt
			results = append(results, &copied)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.Before(results[j].CreatedAt) })
	return results, nil
}

func (m *MemoryStore) CreateAppointment(appt *models.Appointment) error {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}

	copied := *appt
	m.appointments[appt.ID] = &copied
	return nil
}

func (m *MemoryStore) UpdateAppointment(appt *models.Appointment) error {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	for id, existing := range m.appointments {
		if existing.UserPhone == appt.UserPhone {
			copied := *appt
			copied.ID = existing.ID
			m.appointments[id] = &copied
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) DeleteAppointmentByPhone(phone string) error {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	for id, existing := range m.appointments {
		if existing.UserPhone == phone {
			delete(m.appointments, id)
		}
	}
	return nil
}
