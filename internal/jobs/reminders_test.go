package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/services"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
)

type sentTemplate struct {
	To       string
	Template string
	Params   []services.TemplateParameter
}

type recordingMessenger struct {
	mu        sync.Mutex
	templates []sentTemplate
}

func (m *recordingMessenger) SendText(context.Context, string, string) error { return nil }

func (m *recordingMessenger) SendTemplate(_ context.Context, to, templateName, _ string, params []services.TemplateParameter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, sentTemplate{To: to, Template: templateName, Params: params})
	return nil
}

func (m *recordingMessenger) SendReadReceipt(context.Context, string) error { return nil }

func (m *recordingMessenger) sent() []sentTemplate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentTemplate, len(m.templates))
	copy(out, m.templates)
	return out
}

func newTestJob(t *testing.T, now time.Time) (*ReminderJob, *storage.MemoryStore, *recordingMessenger) {
	t.Helper()
	store := storage.NewMemoryStore()
	messenger := &recordingMessenger{}
	job := NewReminderJob(store, messenger, nil, time.UTC)
	job.now = func() time.Time { return now }
	return job, store, messenger
}

func paramTexts(params []services.TemplateParameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.Text)
	}
	return out
}

func TestSendRemindersToday(t *testing.T) {
	now := time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC)
	job, store, messenger := newTestJob(t, now)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: "2026-02-05", Time: "10:00 AM", Name: "Asha",
	}))

	require.NoError(t, job.SendReminders("2026-02-05"))

	sent := messenger.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "919000000001", sent[0].To)
	assert.Equal(t, services.TemplateAppointmentReminder, sent[0].Template)
	texts := paramTexts(sent[0].Params)
	assert.Equal(t, []string{"Asha", "Today", "05/02/2026 (Thursday)", "10:00 AM", "G.Ramesh Babu"}, texts)
}

func TestSendRemindersTomorrow(t *testing.T) {
	now := time.Date(2026, 2, 5, 20, 0, 0, 0, time.UTC)
	job, store, messenger := newTestJob(t, now)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000002", Date: "2026-02-06", Time: "04:30 PM", Name: "Ravi",
	}))

	require.NoError(t, job.SendReminders("2026-02-06"))

	sent := messenger.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, paramTexts(sent[0].Params), "Tomorrow")
}

func TestSendRemindersNoAppointments(t *testing.T) {
	job, _, messenger := newTestJob(t, time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC))

	require.NoError(t, job.SendReminders("2026-02-05"))

	assert.Empty(t, messenger.sent())
}

func TestHourAheadPassSendsOnce(t *testing.T) {
	// 09:10, with an appointment at 10:00.
	now := time.Date(2026, 2, 5, 9, 10, 0, 0, time.UTC)
	job, store, messenger := newTestJob(t, now)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: "2026-02-05", Time: "10:00 AM", Name: "Asha",
	}))

	job.hourAheadPass()
	require.Len(t, messenger.sent(), 1)

	// The next pass inside the window must not repeat the reminder.
	job.now = func() time.Time { return now.Add(10 * time.Minute) }
	job.hourAheadPass()
	assert.Len(t, messenger.sent(), 1)
}

func TestHourAheadPassSkipsDistantAndPastSlots(t *testing.T) {
	now := time.Date(2026, 2, 5, 9, 10, 0, 0, time.UTC)
	job, store, messenger := newTestJob(t, now)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: "2026-02-05", Time: "12:40 PM", Name: "Later",
	}))
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000002", Date: "2026-02-05", Time: "10:00 AM", Name: "Soon",
	}))

	job.hourAheadPass()

	sent := messenger.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "919000000002", sent[0].To)
}

func TestMarkRemindedExpires(t *testing.T) {
	now := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	job, _, _ := newTestJob(t, now)

	assert.True(t, job.markReminded("a|10:00 AM"))
	assert.False(t, job.markReminded("a|10:00 AM"))

	job.now = func() time.Time { return now.Add(4 * time.Hour) }
	assert.True(t, job.markReminded("a|10:00 AM"))
}

func TestSessionSweepDeletesIdle(t *testing.T) {
	now := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	job, store, _ := newTestJob(t, now)

	require.NoError(t, store.SetSession("919000000001", &models.SessionData{
		State:                 models.StateAwaitingDate,
		LastInteractionUnixMs: now.Add(-20 * time.Minute).UnixMilli(),
	}))
	require.NoError(t, store.SetSession("919000000002", &models.SessionData{
		State:                 models.StateMainMenu,
		LastInteractionUnixMs: now.Add(-2 * time.Minute).UnixMilli(),
	}))

	job.sweepSessions()

	gone, err := store.GetSession("919000000001")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := store.GetSession("919000000002")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
