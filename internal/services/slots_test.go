package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
)

func newTestResolver(t *testing.T, now time.Time) (*SlotResolver, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	resolver := NewSlotResolver(store)
	resolver.now = func() time.Time { return now }
	return resolver, store
}

func TestAvailableExcludesBookedSlots(t *testing.T) {
	resolver, store := newTestResolver(t, testNow)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: "2026-02-05", Time: "10:20 AM", Name: "Asha",
	}))

	slots, err := resolver.Available("05/02/2026", models.PreferenceMorning)
	require.NoError(t, err)
	assert.Len(t, slots, len(MorningSlots)-1)
	assert.NotContains(t, slots, "10:20 AM")
}

func TestAvailableNormalizesBookedLabels(t *testing.T) {
	resolver, store := newTestResolver(t, testNow)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: "2026-02-05", Time: "10:20  am", Name: "Asha",
	}))

	slots, err := resolver.Available("05/02/2026", models.PreferenceMorning)
	require.NoError(t, err)
	assert.NotContains(t, slots, "10:20 AM")
}

func TestAvailableSundayIsMorningOnly(t *testing.T) {
	resolver, _ := newTestResolver(t, testNow)

	// 08/02/2026 is a Sunday. The evening preference is ignored there.
	slots, err := resolver.Available("08/02/2026", models.PreferenceEvening)
	require.NoError(t, err)
	assert.Equal(t, MorningSlots, slots)
}

func TestAvailableNoPreferenceCombinesSessions(t *testing.T) {
	resolver, _ := newTestResolver(t, testNow)

	slots, err := resolver.Available("05/02/2026", "")
	require.NoError(t, err)
	assert.Len(t, slots, len(MorningSlots)+len(EveningSlots))
	assert.Equal(t, MorningSlots[0], slots[0])
	assert.Equal(t, EveningSlots[len(EveningSlots)-1], slots[len(slots)-1])
}

func TestAvailableFiltersPastSlotsToday(t *testing.T) {
	// 11:05 on the selected day itself.
	now := time.Date(2026, 2, 5, 11, 5, 0, 0, time.UTC)
	resolver, _ := newTestResolver(t, now)

	slots, err := resolver.Available("05/02/2026", models.PreferenceMorning)
	require.NoError(t, err)
	assert.NotContains(t, slots, "10:00 AM")
	assert.NotContains(t, slots, "11:00 AM")
	assert.Contains(t, slots, "11:20 AM")
	assert.Contains(t, slots, "12:40 PM")
}

func TestAvailableFutureDateUnfiltered(t *testing.T) {
	now := time.Date(2026, 2, 5, 23, 0, 0, 0, time.UTC)
	resolver, _ := newTestResolver(t, now)

	slots, err := resolver.Available("06/02/2026", models.PreferenceMorning)
	require.NoError(t, err)
	assert.Equal(t, MorningSlots, slots)
}

func TestAvailablePreservesCatalogOrder(t *testing.T) {
	resolver, store := newTestResolver(t, testNow)
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		UserPhone: "919000000001", Date: "2026-02-05", Time: "10:00 AM", Name: "A",
	}))

	slots, err := resolver.Available("05/02/2026", models.PreferenceMorning)
	require.NoError(t, err)
	assert.Equal(t, MorningSlots[1:], slots)
}

func TestAvailableIsReadOnly(t *testing.T) {
	resolver, store := newTestResolver(t, testNow)

	first, err := resolver.Available("05/02/2026", models.PreferenceEvening)
	require.NoError(t, err)
	second, err := resolver.Available("05/02/2026", models.PreferenceEvening)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	appts, err := store.GetAppointmentsByDate("2026-02-05")
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestAvailableRejectsBadDate(t *testing.T) {
	resolver, _ := newTestResolver(t, testNow)

	slots, err := resolver.Available("2026-02-05", models.PreferenceMorning)
	assert.Error(t, err)
	assert.Nil(t, slots)
}

func TestNormalizeTimeLabel(t *testing.T) {
	assert.Equal(t, "10:00 AM", NormalizeTimeLabel(" 10:00   am "))
	assert.Equal(t, "04:30 PM", NormalizeTimeLabel("04:30 pm"))
}
