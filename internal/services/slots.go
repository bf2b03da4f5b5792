package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

// Clinic slot catalog. Sundays run the morning session only.
var (
	MorningSlots = []string{
		"10:00 AM",
		"10:20 AM",
		"10:40 AM",
		"11:00 AM",
		"11:20 AM",
		"11:40 AM",
		"12:00 PM",
		"12:20 PM",
		"12:40 PM",
	}

	EveningSlots = []string{
		"04:30 PM",
		"04:50 PM",
		"05:10 PM",
		"05:30 PM",
		"05:50 PM",
		"06:10 PM",
		"06:30 PM",
		"06:50 PM",
		"07:10 PM",
		"07:30 PM",
		"07:50 PM",
	}
)

// NormalizeTimeLabel canonicalizes a slot label for comparison:
// upper-cased and single-spaced.
func NormalizeTimeLabel(input string) string {
	return strings.ToUpper(strings.Join(strings.Fields(input), " "))
}

// SlotResolver computes bookable slots for a date. It never mutates
// anything and is safe to call repeatedly and concurrently.
type SlotResolver struct {
	appointments storage.AppointmentStore
	now          func() time.Time
}

// NewSlotResolver creates a resolver over the given appointment store
func NewSlotResolver(appointments storage.AppointmentStore) *SlotResolver {
	return &SlotResolver{
		appointments: appointments,
		now:          time.Now,
	}
}

// Available returns the bookable slot labels for a display date, in catalog
// order: the base catalog for that weekday and preference, minus slots
// already booked on that date, minus slots already in the past when the
// date is today. An empty preference means both sessions (morning first).
func (r *SlotResolver) Available(displayDate string, preference models.SlotPreference) ([]string, error) {
	selected, err := utils.ParseDisplayDate(displayDate)
	if err != nil {
		return nil, err
	}

	var baseSlots []string
	if selected.Weekday() == time.Sunday {
		// Sunday = only morning slots, whatever the preference says
		baseSlots = MorningSlots
	} else {
		switch preference {
		case models.PreferenceMorning:
			baseSlots = MorningSlots
		case models.PreferenceEvening:
			baseSlots = EveningSlots
		default:
			baseSlots = append(append([]string{}, MorningSlots...), EveningSlots...)
		}
	}

	isoDate := selected.Format(utils.ISODateLayout)
	appointmentsOnDate, err := r.appointments.GetAppointmentsByDate(isoDate)
	if err != nil {
		return nil, fmt.Errorf("fetch appointments for %s: %w", isoDate, err)
	}

	booked := make(map[string]bool, len(appointmentsOnDate))
	for _, appt := range appointmentsOnDate {
		booked[NormalizeTimeLabel(appt.Time)] = true
	}

	now := r.now()
	isToday := selected.Year() == now.Year() && selected.YearDay() == now.YearDay()

	available := make([]string, 0, len(baseSlots))
	for _, slot := range baseSlots {
		if booked[NormalizeTimeLabel(slot)] {
			continue
		}
		if isToday {
			hour, minute, err := utils.SlotClockTime(slot)
			if err != nil {
				continue
			}
			slotTime := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			if !slotTime.After(now) {
				continue
			}
		}
		available = append(available, slot)
	}
	return available, nil
}
