package services

import "context"

// Template names registered with the WhatsApp Business account.
const (
	TemplateBookingNotification      = "am_notification_appointment"
	TemplateRescheduleNotification   = "am_notification_reschedule"
	TemplateCancellationNotification = "am_notification_cancellation"
	TemplateAppointmentReminder      = "appointment"

	templateLanguage = "en"
)

// Notification is a typed template payload. Each notification kind knows
// its template name and how to render its body parameters, so callers never
// assemble loose parameter maps.
type Notification interface {
	TemplateName() string
	Params() []TemplateParameter
}

// BookingNotification tells the admin about a new booking.
type BookingNotification struct {
	Name  string
	Phone string // E.164 with leading +
	Date  string // display date with weekday
	Time  string
}

func (n BookingNotification) TemplateName() string { return TemplateBookingNotification }

func (n BookingNotification) Params() []TemplateParameter {
	return []TemplateParameter{
		{Name: "name", Text: n.Name},
		{Name: "phone", Text: n.Phone},
		{Name: "date", Text: n.Date},
		{Name: "time", Text: n.Time},
	}
}

// RescheduleNotification tells the admin an appointment moved.
type RescheduleNotification struct {
	Name     string
	Phone    string
	PrevDate string
	PrevTime string
	NewDate  string
	NewTime  string
}

func (n RescheduleNotification) TemplateName() string { return TemplateRescheduleNotification }

func (n RescheduleNotification) Params() []TemplateParameter {
	return []TemplateParameter{
		{Name: "name", Text: n.Name},
		{Name: "phone", Text: n.Phone},
		{Name: "prev_date", Text: n.PrevDate},
		{Name: "prev_time", Text: n.PrevTime},
		{Name: "new_date", Text: n.NewDate},
		{Name: "new_time", Text: n.NewTime},
	}
}

// CancellationNotification tells the admin an appointment was cancelled.
type CancellationNotification struct {
	Name  string
	Phone string
	Date  string
	Time  string
}

func (n CancellationNotification) TemplateName() string { return TemplateCancellationNotification }

func (n CancellationNotification) Params() []TemplateParameter {
	return []TemplateParameter{
		{Name: "name", Text: n.Name},
		{Name: "phone", Text: n.Phone},
		{Name: "date", Text: n.Date},
		{Name: "time", Text: n.Time},
	}
}

// AppointmentReminder is sent to the patient before their visit. The
// template uses positional parameters.
type AppointmentReminder struct {
	Name    string
	DayWord string // "Today" or "Tomorrow"
	Date    string // display date with weekday
	Time    string
	Doctor  string
}

func (n AppointmentReminder) TemplateName() string { return TemplateAppointmentReminder }

func (n AppointmentReminder) Params() []TemplateParameter {
	return []TemplateParameter{
		{Text: n.Name},
		{Text: n.DayWord},
		{Text: n.Date},
		{Text: n.Time},
		{Text: n.Doctor},
	}
}

// SendNotification dispatches a typed notification through the messenger.
func SendNotification(ctx context.Context, m Messenger, to string, n Notification) error {
	return m.SendTemplate(ctx, to, n.TemplateName(), templateLanguage, n.Params())
}
