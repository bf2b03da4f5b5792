package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
)

func newAdminApp(t *testing.T) (*fiber.App, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	app := fiber.New()
	app.Get("/admin/appointments", NewAdminHandler(store).ListAppointments)
	return app, store
}

func TestListAppointmentsByDate(t *testing.T) {
	app, store := newAdminApp(t)
	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: date, Time: "10:00 AM", Name: "Asha",
	}))

	req := httptest.NewRequest("GET", "/admin/appointments?date="+date, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Date         string                `json:"date"`
		Count        int                   `json:"count"`
		Appointments []models.Appointment  `json:"appointments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, date, body.Date)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Appointments, 1)
	assert.Equal(t, "Asha", body.Appointments[0].Name)
}

func TestListAppointmentsDefaultsToToday(t *testing.T) {
	app, _ := newAdminApp(t)

	req := httptest.NewRequest("GET", "/admin/appointments", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, time.Now().Format("2006-01-02"), body.Date)
	assert.Equal(t, 0, body.Count)
}

func TestListAppointmentsRejectsBadDate(t *testing.T) {
	app, _ := newAdminApp(t)

	req := httptest.NewRequest("GET", "/admin/appointments?date=05/02/2030", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
