package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

// DatabaseStore persists sessions and appointments through GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given GORM connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Session operations

func (s *DatabaseStore) GetSession(phone string) (*models.SessionData, error) {
	var record models.SessionRecord
	err := s.db.First(&record, "phone_number = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.SessionData
	if err := json.Unmarshal(record.Data, &session); err != nil {
		return nil, fmt.Errorf("decode session for %s: %w", phone, err)
	}
	return &session, nil
}

func (s *DatabaseStore) SetSession(phone string, session *models.SessionData) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session for %s: %w", phone, err)
	}

	record := models.SessionRecord{PhoneNumber: phone, Data: data}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *DatabaseStore) UpdateSession(phone string, apply func(*models.SessionData)) error {
	session, err := s.GetSession(phone)
	if err != nil {
		return err
	}
	if session == nil {
		session = &models.SessionData{
			State:                 models.StateMainMenu,
			LastInteractionUnixMs: time.Now().UnixMilli(),
		}
	}

	before := session.LastInteractionUnixMs
	apply(session)
	if session.LastInteractionUnixMs == before {
		session.LastInteractionUnixMs = time.Now().UnixMilli()
	}
	return s.SetSession(phone, session)
}

func (s *DatabaseStore) DeleteSession(phone string) error {
	err := s.db.Delete(&models.SessionRecord{}, "phone_number = ?", phone).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *DatabaseStore) ExpiredSessionPhones(cutoffMs int64) ([]string, error) {
	var records []models.SessionRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var phones []string
	for _, record := range records {
		var session models.SessionData
		if err := json.Unmarshal(record.Data, &session); err != nil {
			// Unreadable sessions count as expired so the sweep clears them.
			phones = append(phones, record.PhoneNumber)
			continue
		}
		if session.LastInteractionUnixMs < cutoffMs {
			phones = append(phones, record.PhoneNumber)
		}
	}
	return phones, nil
}

// Appointment operations

func (s *DatabaseStore) GetAppointmentByPhone(phone string) (*models.Appointment, error) {
	today := time.Now().Format(utils.ISODateLayout)

	var appt models.Appointment
	err := s.db.Where("user_phone = ? AND date >= ?", phone, today).
		Order("date, time").
		First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment by phone: %w", err)
	}
	return &appt, nil
}

func (s *DatabaseStore) GetAppointmentsByDate(isoDate string) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := s.db.Where("date = ?", isoDate).Order("created_at").Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("get appointments by date: %w", err)
	}
	return appts, nil
}

func (s *DatabaseStore) CreateAppointment(appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}
	if err := s.db.Create(appt).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (s *DatabaseStore) UpdateAppointment(appt *models.Appointment) error {
	err := s.db.Model(&models.Appointment{}).
		Where("user_phone = ?", appt.UserPhone).
		Updates(map[string]interface{}{
			"service_id":    appt.ServiceID,
			"service_title": appt.ServiceTitle,
			"date":          appt.Date,
			"time":          appt.Time,
			"name":          appt.Name,
		}).Error
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (s *DatabaseStore) DeleteAppointmentByPhone(phone string) error {
	err := s.db.Delete(&models.Appointment{}, "user_phone = ?", phone).Error
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}
