package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

const mainMenuMessage = "Hello! 👋 Welcome to Shivas Eye Care 🏥 \n" +
	"How can we assist you today? \n\n" +
	"Please choose an option number below:\n" +
	"1. Book an Appointment \n" +
	"2. Reschedule Appointment \n" +
	"3. Cancel Appointment \n" +
	"4. View Appointment Details \n" +
	"5. Contact Support "

const contactDetails = "🏥 Shivas Eye Care Contact:\n" +
	"📞 Phone: +919840088522 or +919840174184 or +918667302776\n" +
	"📍 Address:134/1818, 13th Main Rd, Thiruvalluvar Colony, Anna Nagar, Chennai, Tamil Nadu 600040\n\n" +
	"📌 Maps: https://maps.app.goo.gl/BpiRvFM1e9ZukTvW8"

const (
	exitNote        = "\n\nNote: Please enter the word 'EXIT' to exit."
	menuHint        = "\n\nSend a message to view the main menu."
	genericSlotsErr = "Sorry, we couldn't load available slots. Please try again later."
)

var nameCleaner = regexp.MustCompile(`[^\p{L} .'-]`)

// Flow is the per-user booking conversation state machine. Every inbound
// message runs through HandleUserReply, which loads the session, advances
// exactly one step, persists (or deletes) the session, and sends the
// outbound replies. Store and messenger failures never escape: they are
// logged and answered with a generic retry message.
type Flow struct {
	sessions     storage.SessionStore
	appointments storage.AppointmentStore
	resolver     *SlotResolver
	messenger    Messenger
	adminPhone   string
	now          func() time.Time
}

// NewFlow creates the booking flow
func NewFlow(sessions storage.SessionStore, appointments storage.AppointmentStore, messenger Messenger, adminPhone string) *Flow {
	return &Flow{
		sessions:     sessions,
		appointments: appointments,
		resolver:     NewSlotResolver(appointments),
		messenger:    messenger,
		adminPhone:   adminPhone,
		now:          time.Now,
	}
}

// sendText delivers a text reply, best-effort.
func (f *Flow) sendText(to, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), cloudAPITimeout)
	defer cancel()
	if err := f.messenger.SendText(ctx, to, body); err != nil {
		log.Printf("sendText to %s error: %v", to, err)
	}
}

// notifyAdmin sends a template to the admin in the background. Its failure
// never blocks or fails the user-facing flow.
func (f *Flow) notifyAdmin(n Notification) {
	if f.adminPhone == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cloudAPITimeout)
		defer cancel()
		if err := SendNotification(ctx, f.messenger, f.adminPhone, n); err != nil {
			log.Printf("admin notification %s error: %v", n.TemplateName(), err)
		}
	}()
}

func (f *Flow) updateSession(phone string, apply func(*models.SessionData)) {
	if err := f.sessions.UpdateSession(phone, apply); err != nil {
		log.Printf("updateSession error: %v", err)
	}
}

func (f *Flow) deleteSession(phone string) {
	if err := f.sessions.DeleteSession(phone); err != nil {
		log.Printf("deleteSession error: %v", err)
	}
}

// HandleUserReply processes one inbound message from a patient.
func (f *Flow) HandleUserReply(userPhone, text, messageID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cloudAPITimeout)
		defer cancel()
		if err := f.messenger.SendReadReceipt(ctx, messageID); err != nil {
			log.Printf("sendReadReceipt error: %v", err)
		}
	}()

	now := f.now().UnixMilli()
	message := strings.ToLower(strings.TrimSpace(text))

	if message == "exit" {
		f.handleExit(userPhone)
		return
	}

	session, err := f.sessions.GetSession(userPhone)
	if err != nil {
		log.Printf("getSession error: %v", err)
		f.sendText(userPhone, "Sorry, something went wrong. Please try again later.")
		return
	}

	// Global shortcuts: "reschedule" and "cancel" jump straight into the
	// matching main-menu branch, with or without an active session.
	if message == "reschedule" || message == "cancel" {
		if session == nil {
			session = &models.SessionData{State: models.StateMainMenu, LastInteractionUnixMs: now}
			if err := f.sessions.SetSession(userPhone, session); err != nil {
				log.Printf("setSession error: %v", err)
			}
		} else {
			f.updateSession(userPhone, func(s *models.SessionData) { s.LastInteractionUnixMs = now })
		}
		f.handleMainMenu(session, userPhone, message)
		return
	}

	// First contact: open a session and show the menu. The message itself
	// is consumed; menu evaluation starts with the next reply.
	if session == nil {
		session = &models.SessionData{State: models.StateMainMenu, LastInteractionUnixMs: now}
		if err := f.sessions.SetSession(userPhone, session); err != nil {
			log.Printf("setSession error: %v", err)
		}
		f.sendText(userPhone, mainMenuMessage)
		return
	}

	session.LastInteractionUnixMs = now
	f.updateSession(userPhone, func(s *models.SessionData) { s.LastInteractionUnixMs = now })

	switch session.State {
	case models.StateMainMenu:
		f.handleMainMenu(session, userPhone, message)
	case models.StateAwaitingName:
		f.handleAwaitName(session, userPhone, text)
	case models.StateAwaitingDate:
		f.handleAwaitingDate(session, userPhone, message)
	case models.StateAwaitingSession:
		f.handleAwaitingSession(session, userPhone, message)
	case models.StateAwaitingTime:
		f.handleAwaitingTime(session, userPhone, message)
	case models.StateAwaitingConfirm:
		f.handleAwaitingConfirm(session, userPhone, message)
	case models.StateRescheduleNewDate:
		f.handleRescheduleNewDate(session, userPhone, message)
	case models.StateRescheduleSession:
		f.handleRescheduleSession(session, userPhone, message)
	case models.StateRescheduleNewTime:
		f.handleRescheduleNewTime(session, userPhone, message)
	case models.StateRescheduleCheck:
		f.handleRescheduleCheck(session, userPhone, message)
	case models.StateConfirmCancel:
		f.handleConfirmCancel(session, userPhone, message)
	default:
		// Unknown state: reset to the main menu.
		f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateMainMenu })
		f.sendText(userPhone, mainMenuMessage)
	}
}

func (f *Flow) handleExit(userPhone string) {
	f.deleteSession(userPhone)
	f.sendText(userPhone, "Your request has been canceled. "+menuHint)
}

func (f *Flow) handleMainMenu(session *models.SessionData, userPhone, message string) {
	switch {
	case message == "1" || strings.Contains(message, "book"):
		userAppt, err := f.appointments.GetAppointmentByPhone(userPhone)
		if err != nil {
			log.Printf("getAppointmentByPhone error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't check your appointment right now. Please try again later.")
			return
		}
		if userAppt != nil {
			f.sendText(userPhone, "You already have an appointment. Please reschedule or cancel it first. "+menuHint)
			f.deleteSession(userPhone)
			return
		}
		f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateAwaitingName })
		f.sendText(userPhone, "Welcome! To book an appointment, please enter your full name:")

	case message == "2" || strings.Contains(message, "reschedule"):
		userAppt, err := f.appointments.GetAppointmentByPhone(userPhone)
		if err != nil {
			log.Printf("getAppointmentByPhone error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't check your appointment right now. Please try again later."+menuHint)
			return
		}
		if userAppt == nil {
			f.sendText(userPhone, "No appointment found. Please book a new appointment. "+menuHint)
			return
		}
		dateOptions := utils.Next7Days(f.now())
		session.DateOptions = dateOptions
		session.State = models.StateRescheduleNewDate
		f.updateSession(userPhone, func(s *models.SessionData) {
			s.DateOptions = dateOptions
			s.State = models.StateRescheduleNewDate
		})
		f.sendText(userPhone, fmt.Sprintf(
			"Your current appointment:\n%s at %s\n\nPlease choose a new date:\n %s%s",
			utils.FormatISODateWithDay(userAppt.Date), userAppt.Time,
			formatDateOptions(dateOptions), exitNote))

	case message == "3" || strings.Contains(message, "cancel"):
		userAppt, err := f.appointments.GetAppointmentByPhone(userPhone)
		if err != nil {
			log.Printf("getAppointmentByPhone error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't check your appointment right now. Please try again later."+menuHint)
			return
		}
		if userAppt == nil {
			f.sendText(userPhone, "No appointment found to cancel. "+menuHint)
			return
		}
		f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateConfirmCancel })
		f.sendText(userPhone, fmt.Sprintf(
			"Are you sure you want to cancel your appointment on %s at %s? (yes/no)",
			utils.FormatISODateWithDay(userAppt.Date), userAppt.Time))

	case message == "4" || strings.Contains(message, "view"):
		f.showAppointments(userPhone)
		f.deleteSession(userPhone)

	case message == "5" || strings.Contains(message, "contact"):
		f.sendText(userPhone, contactDetails)
		f.deleteSession(userPhone)

	default:
		f.sendText(userPhone, mainMenuMessage)
	}
}

func (f *Flow) handleAwaitName(session *models.SessionData, userPhone, text string) {
	name := strings.TrimSpace(nameCleaner.ReplaceAllString(text, ""))
	if name == "" {
		f.sendText(userPhone, "Please provide your full name.")
		return
	}

	dateOptions := utils.Next7Days(f.now())
	session.Name = name
	session.State = models.StateAwaitingDate
	session.DateOptions = dateOptions
	f.updateSession(userPhone, func(s *models.SessionData) {
		s.Name = name
		s.State = models.StateAwaitingDate
		s.DateOptions = dateOptions
	})
	f.sendText(userPhone, fmt.Sprintf(
		"Welcome, %s! Please choose a date from the next 7 days:\n%s", name, formatDateOptions(dateOptions)))
}

func (f *Flow) handleAwaitingDate(session *models.SessionData, userPhone, message string) {
	index, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || index < 1 || index > 7 {
		f.sendText(userPhone, "Invalid choice. Please select 1-7. "+exitNote)
		return
	}

	dateOptions := session.DateOptions
	if len(dateOptions) == 0 {
		f.sendText(userPhone, "Session expired. Please start again by sending a message to view the main menu.")
		f.deleteSession(userPhone)
		return
	}
	if index > len(dateOptions) {
		f.sendText(userPhone, "Invalid choice. Please select a valid date number."+exitNote)
		return
	}

	pickedDate := dateOptions[index-1]
	session.SelectedDate = pickedDate
	f.updateSession(userPhone, func(s *models.SessionData) { s.SelectedDate = pickedDate })

	if utils.DayOfWeekLabel(pickedDate) == "Sunday" {
		// Only the morning session exists on Sundays, skip the preference step.
		slots, err := f.resolver.Available(pickedDate, models.PreferenceMorning)
		if err != nil {
			log.Printf("available slots error: %v", err)
			f.sendText(userPhone, genericSlotsErr)
			return
		}
		if len(slots) == 0 {
			f.sendText(userPhone, fmt.Sprintf(
				"Sorry, no slots available on %s. Please choose another date.%s", pickedDate, exitNote))
			f.updateSession(userPhone, func(s *models.SessionData) {
				s.State = models.StateAwaitingDate
				s.SlotPreference = ""
				s.SlotOptions = nil
			})
			return
		}
		session.State = models.StateAwaitingTime
		session.SlotPreference = models.PreferenceMorning
		session.SlotOptions = slots
		f.updateSession(userPhone, func(s *models.SessionData) {
			s.State = models.StateAwaitingTime
			s.SlotPreference = models.PreferenceMorning
			s.SlotOptions = slots
		})
		f.sendText(userPhone, fmt.Sprintf(
			"Available slots for %s (Sunday):\n\n%s\n\nReply with the slot option number.%s",
			pickedDate, formatSlotOptions(slots), exitNote))
		return
	}

	session.State = models.StateAwaitingSession
	session.SlotPreference = ""
	session.SlotOptions = nil
	f.updateSession(userPhone, func(s *models.SessionData) {
		s.State = models.StateAwaitingSession
		s.SlotPreference = ""
		s.SlotOptions = nil
	})
	f.sendText(userPhone, "Please choose your preference:\n1. Morning\n2. Evening "+exitNote)
}

func (f *Flow) handleAwaitingSession(session *models.SessionData, userPhone, message string) {
	if message != "1" && message != "2" {
		f.sendText(userPhone, "Invalid choice. Reply 1 for Morning or 2 for Evening."+exitNote)
		return
	}
	if session.SelectedDate == "" {
		f.sendText(userPhone, "No date selected. Please choose a date first. "+exitNote)
		f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateAwaitingDate })
		return
	}

	pref := models.PreferenceMorning
	if message == "2" {
		pref = models.PreferenceEvening
	}
	slots, err := f.resolver.Available(session.SelectedDate, pref)
	if err != nil {
		log.Printf("available slots error: %v", err)
		f.sendText(userPhone, genericSlotsErr)
		return
	}
	if len(slots) == 0 {
		f.sendText(userPhone, fmt.Sprintf(
			"Sorry, no %s slots available on %s. Please choose another date.%s",
			pref, session.SelectedDate, exitNote))
		f.updateSession(userPhone, func(s *models.SessionData) {
			s.State = models.StateAwaitingDate
			s.SlotPreference = ""
			s.SlotOptions = nil
		})
		return
	}

	session.State = models.StateAwaitingTime
	session.SlotPreference = pref
	session.SlotOptions = slots
	f.updateSession(userPhone, func(s *models.SessionData) {
		s.State = models.StateAwaitingTime
		s.SlotPreference = pref
		s.SlotOptions = slots
	})
	f.sendText(userPhone, fmt.Sprintf(
		"Available %s slots for %s (%s):\n\n%s\n\nReply with the slot number.%s",
		pref, session.SelectedDate, utils.DayOfWeekLabel(session.SelectedDate),
		formatSlotOptions(slots), exitNote))
}

func (f *Flow) handleAwaitingTime(session *models.SessionData, userPhone, message string) {
	if session.SelectedDate == "" {
		f.sendText(userPhone, "No date selected. Please choose a date first."+exitNote)
		f.updateSession(userPhone, func(s *models.SessionData) {
			s.State = models.StateAwaitingDate
			s.SlotPreference = ""
			s.SlotOptions = nil
		})
		return
	}

	// Resolve the reply against the options the user actually saw; only
	// recompute when the frozen list is missing.
	slots := session.SlotOptions
	if len(slots) == 0 {
		var err error
		slots, err = f.resolver.Available(session.SelectedDate, session.SlotPreference)
		if err != nil {
			log.Printf("available slots error: %v", err)
			f.sendText(userPhone, genericSlotsErr)
			return
		}
	}

	index, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || index < 1 || index > len(slots) {
		f.sendText(userPhone, "Invalid choice. Please select a valid slot number."+exitNote)
		return
	}

	selectedTime := slots[index-1]
	session.SelectedTime = selectedTime
	session.State = models.StateAwaitingConfirm
	f.updateSession(userPhone, func(s *models.SessionData) {
		s.State = models.StateAwaitingConfirm
		s.SelectedTime = selectedTime
		s.SlotOptions = nil
		s.SlotPreference = ""
	})
	f.sendText(userPhone, fmt.Sprintf(
		"Confirm your booking:\n👤Name: %s\n📅 Date: %s (%s)\n🕒 Time: %s\n\nReply with Yes or No.",
		session.Name, session.SelectedDate, utils.DayOfWeekLabel(session.SelectedDate), selectedTime))
}

func (f *Flow) handleAwaitingConfirm(session *models.SessionData, userPhone, message string) {
	switch message {
	case "yes":
		// Re-validate right before the write: another booking may have
		// claimed the slot since it was offered.
		available, err := f.resolver.Available(session.SelectedDate, "")
		if err != nil {
			log.Printf("available slots error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't confirm your booking due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}
		if !containsSlot(available, session.SelectedTime) {
			f.sendText(userPhone, "Sorry, that slot was just booked by someone else. Please choose another time.\n\n"+
				formatSlotOptions(available)+"\n\nReply with the slot option number."+exitNote)
			f.updateSession(userPhone, func(s *models.SessionData) {
				s.State = models.StateAwaitingTime
				s.SelectedTime = ""
				s.SlotOptions = available
			})
			return
		}

		isoDate, err := utils.ToISODate(session.SelectedDate)
		if err != nil {
			log.Printf("convert selected date error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't confirm your booking due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}
		appt := &models.Appointment{
			UserPhone:    userPhone,
			ServiceID:    models.DefaultServiceID,
			ServiceTitle: models.DefaultServiceTitle,
			Date:         isoDate,
			Time:         session.SelectedTime,
			Name:         session.Name,
			CreatedAt:    f.now(),
		}
		if err := f.appointments.CreateAppointment(appt); err != nil {
			log.Printf("createAppointment error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't confirm your booking due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}

		f.sendText(userPhone, fmt.Sprintf(
			"✅ Appointment confirmed for %s at %s.\nWe will send a reminder a day before your appointment.%s",
			utils.FormatDisplayDateWithDay(session.SelectedDate), session.SelectedTime, menuHint))
		f.notifyAdmin(BookingNotification{
			Name:  session.Name,
			Phone: "+" + userPhone,
			Date:  utils.FormatDisplayDateWithDay(session.SelectedDate),
			Time:  session.SelectedTime,
		})
		f.deleteSession(userPhone)

	case "no":
		f.sendText(userPhone, "❌ Booking cancelled."+menuHint)
		f.deleteSession(userPhone)

	default:
		f.sendText(userPhone, "Please reply with Yes or No to confirm your booking."+exitNote)
	}
}

func (f *Flow) handleRescheduleNewDate(session *models.SessionData, userPhone, message string) {
	index, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || index < 1 || index > 7 {
		f.sendText(userPhone, "Invalid choice. Please select 1-7."+exitNote)
		return
	}

	dateOptions := session.DateOptions
	if len(dateOptions) == 0 {
		f.sendText(userPhone, "Session expired. Please start again by sending a message to view the main menu.")
		f.deleteSession(userPhone)
		return
	}
	if index > len(dateOptions) {
		f.sendText(userPhone, "Invalid choice. Please select a valid date option. "+exitNote)
		return
	}

	pickedDate := dateOptions[index-1]
	session.SelectedDate = pickedDate
	f.updateSession(userPhone, func(s *models.SessionData) { s.SelectedDate = pickedDate })

	if utils.DayOfWeekLabel(pickedDate) == "Sunday" {
		slots, err := f.resolver.Available(pickedDate, models.PreferenceMorning)
		if err != nil {
			log.Printf("available slots error: %v", err)
			f.sendText(userPhone, genericSlotsErr+menuHint)
			return
		}
		if len(slots) == 0 {
			f.sendText(userPhone, fmt.Sprintf(
				"Sorry, no slots available on %s. Please choose another date.%s", pickedDate, exitNote))
			f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateRescheduleNewDate })
			return
		}
		session.State = models.StateRescheduleNewTime
		session.SlotPreference = models.PreferenceMorning
		session.SlotOptions = slots
		f.updateSession(userPhone, func(s *models.SessionData) {
			s.State = models.StateRescheduleNewTime
			s.SlotPreference = models.PreferenceMorning
			s.SlotOptions = slots
		})
		f.sendText(userPhone, fmt.Sprintf(
			"Available slots for %s (Sunday):\n\n%s\n\nReply with the slot option number.%s",
			pickedDate, formatSlotOptions(slots), exitNote))
		return
	}

	session.State = models.StateRescheduleSession
	f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateRescheduleSession })
	f.sendText(userPhone, "Please choose your preference:\n 1. Morning\n 2. Evening "+exitNote)
}

func (f *Flow) handleRescheduleSession(session *models.SessionData, userPhone, message string) {
	if message != "1" && message != "2" {
		f.sendText(userPhone, "Invalid choice. Reply 1 for Morning or 2 for Evening. "+exitNote)
		return
	}

	pref := models.PreferenceMorning
	if message == "2" {
		pref = models.PreferenceEvening
	}
	slots, err := f.resolver.Available(session.SelectedDate, pref)
	if err != nil {
		log.Printf("available slots error: %v", err)
		f.sendText(userPhone, genericSlotsErr+menuHint)
		return
	}
	if len(slots) == 0 {
		f.sendText(userPhone, fmt.Sprintf(
			"Sorry, no %s slots available on %s. \nPlease choose another date.%s",
			pref, session.SelectedDate, exitNote))
		f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateRescheduleNewDate })
		return
	}

	session.State = models.StateRescheduleNewTime
	session.SlotPreference = pref
	session.SlotOptions = slots
	f.updateSession(userPhone, func(s *models.SessionData) {
		s.State = models.StateRescheduleNewTime
		s.SlotPreference = pref
		s.SlotOptions = slots
	})
	f.sendText(userPhone, fmt.Sprintf(
		"Available %s slots for %s (%s):\n\n%s\n\nReply with the slot option number.%s",
		pref, session.SelectedDate, utils.DayOfWeekLabel(session.SelectedDate),
		formatSlotOptions(slots), exitNote))
}

func (f *Flow) handleRescheduleNewTime(session *models.SessionData, userPhone, message string) {
	if session.SelectedDate == "" {
		f.sendText(userPhone, "No date selected. Please choose a date first."+exitNote)
		f.updateSession(userPhone, func(s *models.SessionData) { s.State = models.StateRescheduleNewDate })
		return
	}

	slots := session.SlotOptions
	if len(slots) == 0 {
		var err error
		slots, err = f.resolver.Available(session.SelectedDate, session.SlotPreference)
		if err != nil {
			log.Printf("available slots error: %v", err)
			f.sendText(userPhone, genericSlotsErr+menuHint)
			return
		}
	}

	index, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || index < 1 || index > len(slots) {
		f.sendText(userPhone, "Invalid choice. Please select a valid slot number."+exitNote)
		return
	}

	selectedTime := slots[index-1]
	session.SelectedTime = selectedTime
	session.State = models.StateRescheduleCheck
	f.updateSession(userPhone, func(s *models.SessionData) {
		s.SelectedTime = selectedTime
		s.State = models.StateRescheduleCheck
		s.SlotOptions = nil
		s.SlotPreference = ""
	})
	f.sendText(userPhone, fmt.Sprintf(
		"Confirm your new appointment:\n📅 Date: %s (%s)\n🕒 Time: %s\n\nReply with Yes or No.",
		session.SelectedDate, utils.DayOfWeekLabel(session.SelectedDate), selectedTime))
}

func (f *Flow) handleRescheduleCheck(session *models.SessionData, userPhone, message string) {
	switch message {
	case "yes":
		if session.SelectedDate == "" || session.SelectedTime == "" {
			f.sendText(userPhone, "Missing date or time. Please reschedule again."+menuHint)
			f.deleteSession(userPhone)
			return
		}

		// Same optimistic re-check as a fresh booking: the new slot may
		// have been claimed since it was offered.
		available, err := f.resolver.Available(session.SelectedDate, "")
		if err != nil {
			log.Printf("available slots error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't reschedule your appointment due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}
		if !containsSlot(available, session.SelectedTime) {
			f.sendText(userPhone, "Sorry, that slot was just booked by someone else. Please choose another time.\n\n"+
				formatSlotOptions(available)+"\n\nReply with the slot option number."+exitNote)
			f.updateSession(userPhone, func(s *models.SessionData) {
				s.State = models.StateRescheduleNewTime
				s.SelectedTime = ""
				s.SlotOptions = available
			})
			return
		}

		existing, err := f.appointments.GetAppointmentByPhone(userPhone)
		if err != nil || existing == nil {
			if err != nil {
				log.Printf("getAppointmentByPhone error: %v", err)
			}
			f.sendText(userPhone, "Sorry, we couldn't reschedule your appointment due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}

		isoDate, err := utils.ToISODate(session.SelectedDate)
		if err != nil {
			log.Printf("convert selected date error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't reschedule your appointment due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}

		prevDate, prevTime := existing.Date, existing.Time
		updated := *existing
		updated.Date = isoDate
		updated.Time = session.SelectedTime
		if err := f.appointments.UpdateAppointment(&updated); err != nil {
			log.Printf("reschedule update error: %v", err)
			f.sendText(userPhone, "Sorry, we couldn't reschedule your appointment due to a system error. Please try again."+menuHint)
			f.deleteSession(userPhone)
			return
		}

		f.sendText(userPhone, fmt.Sprintf(
			"✅ Appointment successfully rescheduled to: \n\nNew Date: %s \nNew Time: %s%s",
			utils.FormatDisplayDateWithDay(session.SelectedDate), session.SelectedTime, menuHint))
		f.notifyAdmin(RescheduleNotification{
			Name:     existing.Name,
			Phone:    "+" + userPhone,
			PrevDate: utils.FormatISODateWithDay(prevDate),
			PrevTime: prevTime,
			NewDate:  utils.FormatDisplayDateWithDay(session.SelectedDate),
			NewTime:  session.SelectedTime,
		})
		f.deleteSession(userPhone)

	case "no":
		f.sendText(userPhone, "❌ Reschedule cancelled. "+menuHint)
		f.deleteSession(userPhone)

	default:
		f.sendText(userPhone, "Please reply with Yes or No to confirm your new appointment."+exitNote)
	}
}

func (f *Flow) handleConfirmCancel(session *models.SessionData, userPhone, message string) {
	if message != "yes" {
		f.sendText(userPhone, "Your appointment is not cancelled. ❌ "+menuHint)
		f.deleteSession(userPhone)
		return
	}

	appt, err := f.appointments.GetAppointmentByPhone(userPhone)
	if err != nil {
		log.Printf("getAppointmentByPhone (cancel) error: %v", err)
	}

	if err := f.appointments.DeleteAppointmentByPhone(userPhone); err != nil {
		log.Printf("cancel appointment error: %v", err)
		f.sendText(userPhone, "Sorry, we couldn't cancel your appointment right now. Please try again later."+menuHint)
		f.deleteSession(userPhone)
		return
	}

	notification := CancellationNotification{Phone: "+" + userPhone}
	if appt != nil {
		notification.Name = appt.Name
		notification.Date = utils.FormatISODateWithDay(appt.Date)
		notification.Time = appt.Time
	} else {
		notification.Name = session.Name
		notification.Date = utils.FormatDisplayDateWithDay(session.SelectedDate)
		notification.Time = session.SelectedTime
	}
	f.notifyAdmin(notification)

	f.sendText(userPhone, "✅ Appointment cancelled successfully."+menuHint)
	f.deleteSession(userPhone)
}

func (f *Flow) showAppointments(userPhone string) {
	appt, err := f.appointments.GetAppointmentByPhone(userPhone)
	if err != nil {
		log.Printf("getAppointmentByPhone error: %v", err)
		f.sendText(userPhone, "Sorry, we couldn't retrieve your appointment right now. Please try again later."+menuHint)
		return
	}
	if appt == nil {
		f.sendText(userPhone, "No appointments found. Please book a new appointment. "+menuHint)
		return
	}
	f.sendText(userPhone, fmt.Sprintf(
		"Your appointments:\n\n1. %s at %s — %s (%s) %s",
		utils.FormatISODateWithDay(appt.Date), appt.Time, appt.ServiceTitle, appt.Name, menuHint))
}

func formatDateOptions(dateOptions []string) string {
	lines := make([]string, 0, len(dateOptions))
	for i, d := range dateOptions {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, d, utils.DayOfWeekLabel(d)))
	}
	return strings.Join(lines, "\n")
}

func formatSlotOptions(slots []string) string {
	lines := make([]string, 0, len(slots))
	for i, s := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, s))
	}
	return strings.Join(lines, "\n")
}

func containsSlot(slots []string, wanted string) bool {
	normalized := NormalizeTimeLabel(wanted)
	for _, s := range slots {
		if NormalizeTimeLabel(s) == normalized {
			return true
		}
	}
	return false
}
