package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
)

func TestSessionRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	session, err := store.GetSession("919000000001")
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, store.SetSession("919000000001", &models.SessionData{
		State: models.StateAwaitingName,
		Name:  "Asha",
	}))

	session, err = store.GetSession("919000000001")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.StateAwaitingName, session.State)
	assert.Equal(t, "Asha", session.Name)
}

func TestGetSessionReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SetSession("919000000001", &models.SessionData{
		State: models.StateAwaitingDate,
	}))

	session, err := store.GetSession("919000000001")
	require.NoError(t, err)
	session.State = models.StateConfirmCancel

	again, err := store.GetSession("919000000001")
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingDate, again.State)
}

func TestUpdateSessionCreatesDefault(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.UpdateSession("919000000001", func(s *models.SessionData) {
		s.Name = "Asha"
	}))

	session, err := store.GetSession("919000000001")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.StateMainMenu, session.State)
	assert.Equal(t, "Asha", session.Name)
	assert.NotZero(t, session.LastInteractionUnixMs)
}

func TestUpdateSessionMergesAndBumpsTimestamp(t *testing.T) {
	store := NewMemoryStore()
	stale := time.Now().Add(-time.Hour).UnixMilli()
	require.NoError(t, store.SetSession("919000000001", &models.SessionData{
		State:                 models.StateAwaitingDate,
		Name:                  "Asha",
		DateOptions:           []string{"05/02/2030"},
		LastInteractionUnixMs: stale,
	}))

	require.NoError(t, store.UpdateSession("919000000001", func(s *models.SessionData) {
		s.SelectedDate = "05/02/2030"
	}))

	session, err := store.GetSession("919000000001")
	require.NoError(t, err)
	assert.Equal(t, "Asha", session.Name)
	assert.Equal(t, []string{"05/02/2030"}, session.DateOptions)
	assert.Equal(t, "05/02/2030", session.SelectedDate)
	assert.Greater(t, session.LastInteractionUnixMs, stale)
}

func TestUpdateSessionKeepsExplicitTimestamp(t *testing.T) {
	store := NewMemoryStore()
	explicit := int64(12345)

	require.NoError(t, store.UpdateSession("919000000001", func(s *models.SessionData) {
		s.LastInteractionUnixMs = explicit
	}))

	session, err := store.GetSession("919000000001")
	require.NoError(t, err)
	assert.Equal(t, explicit, session.LastInteractionUnixMs)
}

func TestExpiredSessionPhones(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UnixMilli()
	require.NoError(t, store.SetSession("919000000002", &models.SessionData{
		State: models.StateMainMenu, LastInteractionUnixMs: now - 20*60*1000,
	}))
	require.NoError(t, store.SetSession("919000000001", &models.SessionData{
		State: models.StateMainMenu, LastInteractionUnixMs: now - 30*60*1000,
	}))
	require.NoError(t, store.SetSession("919000000003", &models.SessionData{
		State: models.StateMainMenu, LastInteractionUnixMs: now,
	}))

	phones, err := store.ExpiredSessionPhones(now - 15*60*1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"919000000001", "919000000002"}, phones)
}

func TestDeleteSessionMissingIsNoError(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.DeleteSession("919000000001"))
}

func TestAppointmentLifecycle(t *testing.T) {
	store := NewMemoryStore()
	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")

	appt := &models.Appointment{
		UserPhone: "919000000001", Date: date, Time: "10:00 AM", Name: "Asha",
	}
	require.NoError(t, store.CreateAppointment(appt))
	assert.NotEmpty(t, appt.ID)

	got, err := store.GetAppointmentByPhone("919000000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, appt.ID, got.ID)

	updated := *got
	updated.Time = "10:20 AM"
	updated.ID = "ignored"
	require.NoError(t, store.UpdateAppointment(&updated))

	got, err = store.GetAppointmentByPhone("919000000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, "10:20 AM", got.Time)

	require.NoError(t, store.DeleteAppointmentByPhone("919000000001"))
	got, err = store.GetAppointmentByPhone("919000000001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAppointmentByPhoneIgnoresPastDates(t *testing.T) {
	store := NewMemoryStore()
	past := time.Now().AddDate(0, 0, -2).Format("2006-01-02")
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: past, Time: "10:00 AM", Name: "Asha",
	}))

	got, err := store.GetAppointmentByPhone("919000000001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAppointmentsByDateSortsByCreation(t *testing.T) {
	store := NewMemoryStore()
	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	first := &models.Appointment{
		UserPhone: "919000000001", Date: date, Time: "10:00 AM", Name: "First",
		CreatedAt: time.Now().Add(-time.Minute),
	}
	second := &models.Appointment{
		UserPhone: "919000000002", Date: date, Time: "10:20 AM", Name: "Second",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateAppointment(second))
	require.NoError(t, store.CreateAppointment(first))

	appts, err := store.GetAppointmentsByDate(date)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "First", appts[0].Name)
	assert.Equal(t, "Second", appts[1].Name)
}
