package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/services"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

const (
	// Daily reminder batches, clinic local time.
	morningReminderHour = 7
	eveningReminderHour = 20

	sessionSweepInterval = 5 * time.Minute
	sessionIdleWindow    = 15 * time.Minute

	hourAheadInterval = 10 * time.Minute
	hourAheadWindow   = time.Hour
	dedupeRetention   = 3 * time.Hour

	reminderDoctorName = "G.Ramesh Babu"
	sendTimeout        = 10 * time.Second
)

// ReminderJob runs the background schedules: the 07:00 and 20:00 reminder
// batches, the hour-ahead reminder pass and the idle session sweep.
type ReminderJob struct {
	store     storage.Store
	messenger services.Messenger
	adminFlow *services.AdminFlow
	location  *time.Location
	now       func() time.Time

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}

	dedupeMu sync.Mutex
	reminded map[string]time.Time
}

func NewReminderJob(store storage.Store, messenger services.Messenger, adminFlow *services.AdminFlow, location *time.Location) *ReminderJob {
	if location == nil {
		location = time.Local
	}
	return &ReminderJob{
		store:     store,
		messenger: messenger,
		adminFlow: adminFlow,
		location:  location,
		now:       time.Now,
		reminded:  make(map[string]time.Time),
	}
}

// Start launches the background loops. Calling Start on a running job is a no-op.
func (j *ReminderJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		log.Println("⚠️ Reminder job already running")
		return
	}
	j.isRunning = true
	j.stopChan = make(chan struct{})

	go j.runDailyBatch(morningReminderHour, 0)
	go j.runDailyBatch(eveningReminderHour, 1)
	go j.runSessionSweep()
	go j.runHourAheadPass()

	log.Println("🔔 Reminder job started")
}

// Stop signals all loops to exit.
func (j *ReminderJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stopChan)
	log.Println("🔕 Reminder job stopped")
}

// runDailyBatch sleeps until the next occurrence of hour:00 local time,
// then sends reminders for today plus dayOffset.
func (j *ReminderJob) runDailyBatch(hour, dayOffset int) {
	for {
		now := j.now().In(j.location)
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, j.location)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		select {
		case <-time.After(next.Sub(now)):
			target := j.now().In(j.location).AddDate(0, 0, dayOffset).Format(utils.ISODateLayout)
			if err := j.SendReminders(target); err != nil {
				log.Printf("❌ Reminder batch for %s failed: %v", target, err)
			}
		case <-j.stopChan:
			return
		}
	}
}

// SendReminders sends the reminder template to every appointment on the
// given ISO date.
func (j *ReminderJob) SendReminders(isoDate string) error {
	appointments, err := j.store.GetAppointmentsByDate(isoDate)
	if err != nil {
		return err
	}

	today := j.now().In(j.location).Format(utils.ISODateLayout)
	dayWord := "Tomorrow"
	if isoDate == today {
		dayWord = "Today"
	}

	for _, appt := range appointments {
		reminder := services.AppointmentReminder{
			Name:    appt.Name,
			DayWord: dayWord,
			Date:    utils.FormatISODateWithDay(appt.Date),
			Time:    appt.Time,
			Doctor:  reminderDoctorName,
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := services.SendNotification(ctx, j.messenger, appt.UserPhone, reminder)
		cancel()
		if err != nil {
			log.Printf("❌ Reminder to %s failed: %v", appt.UserPhone, err)
			continue
		}
		log.Printf("🔔 Reminder sent to %s for %s %s", appt.UserPhone, appt.Date, appt.Time)
	}
	return nil
}

// runSessionSweep deletes conversations idle longer than the idle window.
func (j *ReminderJob) runSessionSweep() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.sweepSessions()
			if j.adminFlow != nil {
				j.adminFlow.SweepIdleSessions(sessionIdleWindow)
			}
		case <-j.stopChan:
			return
		}
	}
}

func (j *ReminderJob) sweepSessions() {
	cutoff := j.now().UnixMilli() - sessionIdleWindow.Milliseconds()
	phones, err := j.store.ExpiredSessionPhones(cutoff)
	if err != nil {
		log.Printf("❌ Session sweep failed: %v", err)
		return
	}
	for _, phone := range phones {
		if err := j.store.DeleteSession(phone); err != nil {
			log.Printf("❌ Deleting expired session %s failed: %v", phone, err)
		}
	}
	if len(phones) > 0 {
		log.Printf("🧹 Swept %d expired sessions", len(phones))
	}
}

// runHourAheadPass sends a same-day reminder roughly an hour before the
// appointment time. A dedupe cache keeps each appointment from being
// reminded more than once per pass window.
func (j *ReminderJob) runHourAheadPass() {
	ticker := time.NewTicker(hourAheadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.hourAheadPass()
		case <-j.stopChan:
			return
		}
	}
}

func (j *ReminderJob) hourAheadPass() {
	now := j.now().In(j.location)
	isoDate := now.Format(utils.ISODateLayout)
	appointments, err := j.store.GetAppointmentsByDate(isoDate)
	if err != nil {
		log.Printf("❌ Hour-ahead pass failed: %v", err)
		return
	}

	for _, appt := range appointments {
		hour, minute, err := utils.SlotClockTime(appt.Time)
		if err != nil {
			continue
		}
		slotTime := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, j.location)
		until := slotTime.Sub(now)
		if until <= 0 || until > hourAheadWindow {
			continue
		}
		if !j.markReminded(appt.ID + "|" + appt.Time) {
			continue
		}

		reminder := services.AppointmentReminder{
			Name:    appt.Name,
			DayWord: "Today",
			Date:    utils.FormatISODateWithDay(appt.Date),
			Time:    appt.Time,
			Doctor:  reminderDoctorName,
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err = services.SendNotification(ctx, j.messenger, appt.UserPhone, reminder)
		cancel()
		if err != nil {
			log.Printf("❌ Hour-ahead reminder to %s failed: %v", appt.UserPhone, err)
			continue
		}
		log.Printf("🔔 Hour-ahead reminder sent to %s for %s", appt.UserPhone, appt.Time)
	}
}

// markReminded records a reminder key, returning false if it was already
// recorded recently. Stale entries age out on each call.
func (j *ReminderJob) markReminded(key string) bool {
	now := j.now()
	j.dedupeMu.Lock()
	defer j.dedupeMu.Unlock()
	for k, at := range j.reminded {
		if now.Sub(at) > dedupeRetention {
			delete(j.reminded, k)
		}
	}
	if _, seen := j.reminded[key]; seen {
		return false
	}
	j.reminded[key] = now
	return true
}
