package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

const adminMainMenuMessage = "Hello Admin 👋\n" +
	"Choose an option:\n" +
	"1. View today's appointments\n" +
	"2. View appointments by date"

type adminState string

const (
	adminStateMainMenu     adminState = "mainMenu"
	adminStateAwaitingDate adminState = "awaitingDate"
	adminStateAwaitingPick adminState = "awaitingAppointmentChoice"
)

type adminSession struct {
	state                 adminState
	lastInteractionUnixMs int64
	dateOptions           []string
	selectedDate          string
	currentList           []*models.Appointment
}

// AdminFlow is the clinic-staff conversation. Admin sessions live in
// process memory only; losing them on restart just means the admin sees
// the menu again.
type AdminFlow struct {
	appointments storage.AppointmentStore
	messenger    Messenger
	adminPhone   string
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*adminSession
}

func NewAdminFlow(appointments storage.AppointmentStore, messenger Messenger, adminPhone string) *AdminFlow {
	return &AdminFlow{
		appointments: appointments,
		messenger:    messenger,
		adminPhone:   adminPhone,
		now:          time.Now,
		sessions:     make(map[string]*adminSession),
	}
}

func (a *AdminFlow) sendText(to, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), cloudAPITimeout)
	defer cancel()
	if err := a.messenger.SendText(ctx, to, body); err != nil {
		log.Printf("admin sendText error: %v", err)
	}
}

// HandleAdminReply processes one inbound message from the configured admin.
func (a *AdminFlow) HandleAdminReply(text, messageID string) {
	if a.adminPhone == "" {
		log.Println("⚠️ ADMIN_PHONE_NUMBER is not set")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cloudAPITimeout)
		defer cancel()
		if err := a.messenger.SendReadReceipt(ctx, messageID); err != nil {
			log.Printf("admin sendReadReceipt error: %v", err)
		}
	}()

	now := a.now().UnixMilli()
	message := strings.ToLower(strings.TrimSpace(text))

	a.mu.Lock()
	defer a.mu.Unlock()

	if message == "exit" || message == "menu" {
		a.sessions[a.adminPhone] = &adminSession{state: adminStateMainMenu, lastInteractionUnixMs: now}
		a.sendText(a.adminPhone, adminMainMenuMessage)
		return
	}

	session := a.sessions[a.adminPhone]
	if session == nil {
		a.sessions[a.adminPhone] = &adminSession{state: adminStateMainMenu, lastInteractionUnixMs: now}
		a.sendText(a.adminPhone, adminMainMenuMessage)
		return
	}
	session.lastInteractionUnixMs = now

	switch session.state {
	case adminStateMainMenu:
		a.handleMainMenu(session, message)
	case adminStateAwaitingDate:
		a.handleAwaitingDate(session, message)
	default:
		a.handleAwaitingPick(session, message)
	}
}

// SweepIdleSessions drops admin sessions idle longer than maxIdle.
func (a *AdminFlow) SweepIdleSessions(maxIdle time.Duration) {
	cutoff := a.now().UnixMilli() - maxIdle.Milliseconds()
	a.mu.Lock()
	defer a.mu.Unlock()
	for phone, session := range a.sessions {
		if session.lastInteractionUnixMs < cutoff {
			delete(a.sessions, phone)
		}
	}
}

func (a *AdminFlow) handleMainMenu(session *adminSession, message string) {
	switch {
	case message == "1" || strings.Contains(message, "today"):
		isoDate := a.now().Format(utils.ISODateLayout)
		appointments, err := a.appointments.GetAppointmentsByDate(isoDate)
		if err != nil {
			log.Printf("getAppointmentsByDate error: %v", err)
			a.sendText(a.adminPhone, "Sorry, couldn't fetch today's appointments. Please try again.")
			return
		}
		if len(appointments) == 0 {
			a.sendText(a.adminPhone, "No appointments today.")
			a.sendText(a.adminPhone, adminMainMenuMessage)
			return
		}
		session.selectedDate = isoDate
		session.currentList = appointments
		session.state = adminStateAwaitingPick
		a.sendText(a.adminPhone, formatDayOverview(isoDate, appointments))

	case message == "2" || strings.Contains(message, "date"):
		session.dateOptions = utils.Next7Days(a.now())
		session.state = adminStateAwaitingDate
		a.sendText(a.adminPhone, "Choose a date:\n"+formatDateOptions(session.dateOptions))

	default:
		a.sendText(a.adminPhone, adminMainMenuMessage)
	}
}

func (a *AdminFlow) handleAwaitingDate(session *adminSession, message string) {
	index, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || index < 1 || index > 7 {
		a.sendText(a.adminPhone, "Invalid choice. Select 1-7, or type 'menu' to go back.")
		return
	}
	if index > len(session.dateOptions) {
		a.sendText(a.adminPhone, "Invalid choice. Please select a valid date number.")
		return
	}

	isoDate, err := utils.ToISODate(session.dateOptions[index-1])
	if err != nil {
		log.Printf("convert admin date error: %v", err)
		a.sendText(a.adminPhone, "Invalid choice. Please select a valid date number.")
		return
	}

	appointments, err := a.appointments.GetAppointmentsByDate(isoDate)
	if err != nil {
		log.Printf("getAppointmentsByDate error: %v", err)
		a.sendText(a.adminPhone, "Sorry, couldn't fetch appointments for the selected date. Please try again.")
		return
	}

	session.selectedDate = isoDate
	session.currentList = appointments

	if len(appointments) == 0 {
		a.sendText(a.adminPhone, fmt.Sprintf("No appointments for %s.", utils.FormatISODateWithDay(isoDate)))
		session.state = adminStateMainMenu
		a.sendText(a.adminPhone, adminMainMenuMessage)
		return
	}

	session.state = adminStateAwaitingPick
	a.sendText(a.adminPhone, formatDayOverview(isoDate, appointments))
}

func (a *AdminFlow) handleAwaitingPick(session *adminSession, message string) {
	index, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || index < 1 || index > len(session.currentList) {
		a.sendText(a.adminPhone, "Invalid choice. Reply with a valid number, or type 'menu'.")
		return
	}

	chosen := session.currentList[index-1]
	a.sendText(a.adminPhone, fmt.Sprintf(
		"Name: %s\nPhone: +%s\nDate: %s\nTime: %s\n\nType 'menu' to view the main menu.",
		chosen.Name, chosen.UserPhone, utils.FormatISODateWithDay(chosen.Date), chosen.Time))
}

func formatDayOverview(isoDate string, appointments []*models.Appointment) string {
	lines := make([]string, 0, len(appointments))
	for i, appt := range appointments {
		name := appt.Name
		if name == "" {
			name = "(no name)"
		}
		lines = append(lines, fmt.Sprintf(" %d. %s - %s", i+1, name, appt.Time))
	}
	return fmt.Sprintf("Appointments for %s:\n\n%s\n\nReply with a number to view details, or type 'menu'.",
		utils.FormatISODateWithDay(isoDate), strings.Join(lines, "\n"))
}
