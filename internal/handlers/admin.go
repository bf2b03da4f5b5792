package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/utils"
)

// AdminHandler exposes the read-only appointment listing for clinic staff
// tooling.
type AdminHandler struct {
	appointments storage.AppointmentStore
}

func NewAdminHandler(appointments storage.AppointmentStore) *AdminHandler {
	return &AdminHandler{appointments: appointments}
}

// ListAppointments returns the appointments for ?date=YYYY-MM-DD,
// defaulting to today.
func (h *AdminHandler) ListAppointments(c *fiber.Ctx) error {
	isoDate := c.Query("date")
	if isoDate == "" {
		isoDate = time.Now().Format(utils.ISODateLayout)
	} else if _, err := utils.ParseISODate(isoDate); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "date must be YYYY-MM-DD",
		})
	}

	appointments, err := h.appointments.GetAppointmentsByDate(isoDate)
	if err != nil {
		log.Printf("❌ List appointments error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch appointments",
		})
	}

	return c.JSON(fiber.Map{
		"date":         isoDate,
		"count":        len(appointments),
		"appointments": appointments,
	})
}
