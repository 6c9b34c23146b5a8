package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/Agenda/internal/memstore"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/view"
)

func newTestService(t *testing.T, opts Options) (*Service, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	return NewService(s.Appointments, s.Calendars, s.Reminders, s.Settings, opts, nil), s
}

func june(day, hour int) time.Time {
	return time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC)
}

func weekly(count int) *models.RecurrenceRule {
	return &models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 1, Boundary: models.CountOf(count)}
}

func titlesAndStarts(occs []models.Occurrence) ([]string, []time.Time) {
	var titles []string
	var starts []time.Time
	for _, o := range occs {
		titles = append(titles, o.Title)
		starts = append(starts, o.Start)
	}
	return titles, starts
}

func TestCreateAppointmentUsesDefaultCalendar(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	appt := &models.Appointment{OwnerID: 1, Title: "dentist", Start: june(2, 9), End: june(2, 10)}
	require.NoError(t, svc.CreateAppointment(ctx, models.OwnerScope(1), appt, nil))
	assert.Equal(t, models.StatusScheduled, appt.Status)

	cal, err := store.Calendars.GetDefault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultCalendarName, cal.Name)
	assert.Equal(t, cal.CalendarID, appt.CalendarID)

	second := &models.Appointment{OwnerID: 1, Title: "lunch", Start: june(2, 12), End: june(2, 13)}
	require.NoError(t, svc.CreateAppointment(ctx, models.OwnerScope(1), second, nil))
	assert.Equal(t, cal.CalendarID, second.CalendarID)

	cals, err := svc.Calendars(ctx, models.OwnerScope(1), 1)
	require.NoError(t, err)
	assert.Len(t, cals, 1)
}

func TestSetDefaultCalendar(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	home := &models.Calendar{OwnerID: 1, Name: "Home", Visible: true}
	work := &models.Calendar{OwnerID: 1, Name: "Work", Category: models.CategoryBusiness, Visible: true}
	require.NoError(t, svc.CreateCalendar(ctx, scope, home))
	require.NoError(t, svc.CreateCalendar(ctx, scope, work))
	assert.Equal(t, models.CategoryPersonal, home.Category)

	require.NoError(t, svc.SetDefaultCalendar(ctx, scope, 1, work.CalendarID))

	appt := &models.Appointment{OwnerID: 1, Title: "standup", Start: june(3, 9), End: june(3, 10)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, appt, nil))
	assert.Equal(t, work.CalendarID, appt.CalendarID)

	cals, err := svc.Calendars(ctx, scope, 1)
	require.NoError(t, err)
	defaults := 0
	for _, c := range cals {
		if c.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestCreateCalendarRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	err := svc.CreateCalendar(ctx, nil, &models.Calendar{OwnerID: 1})
	assert.True(t, models.IsValidation(err))

	err = svc.CreateCalendar(ctx, nil, &models.Calendar{OwnerID: 1, Name: "x", Category: "hobby"})
	assert.True(t, models.IsValidation(err))

	err = svc.CreateCalendar(ctx, models.OwnerScope(2), &models.Calendar{OwnerID: 1, Name: "x"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCreateAppointmentRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	first := &models.Appointment{OwnerID: 1, Title: "review", Start: june(2, 9), End: june(2, 10)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, first, nil))

	err := svc.CreateAppointment(ctx, scope, &models.Appointment{OwnerID: 1, Title: "clash", Start: june(2, 9).Add(30 * time.Minute), End: june(2, 11)}, nil)
	var ce *models.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, first.AppointmentID, ce.With.AppointmentID)

	rows, err := store.Appointments.GetByWindow(ctx, models.AppointmentFilter{CalendarIDs: []int64{first.CalendarID}, From: june(1, 0), To: june(30, 0)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	touching := &models.Appointment{OwnerID: 1, Title: "next", Start: june(2, 10), End: june(2, 11)}
	assert.NoError(t, svc.CreateAppointment(ctx, scope, touching, nil))

	cancelled := &models.Appointment{OwnerID: 1, Title: "off", Start: june(2, 9), End: june(2, 10), Status: models.StatusCancelled}
	assert.NoError(t, svc.CreateAppointment(ctx, scope, cancelled, nil))
}

func TestAllowConflictsStoresOverlap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{AllowConflicts: true})

	require.NoError(t, svc.CreateAppointment(ctx, nil, &models.Appointment{OwnerID: 1, Title: "a", Start: june(2, 9), End: june(2, 10)}, nil))
	assert.NoError(t, svc.CreateAppointment(ctx, nil, &models.Appointment{OwnerID: 1, Title: "b", Start: june(2, 9), End: june(2, 10)}, nil))
}

func TestUpdateAppointmentIgnoresItself(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	appt := &models.Appointment{OwnerID: 1, Title: "review", Start: june(2, 9), End: june(2, 10)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, appt, nil))
	other := &models.Appointment{OwnerID: 1, Title: "lunch", Start: june(2, 12), End: june(2, 13)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, other, nil))

	moved := *appt
	moved.OwnerID = 99
	moved.Start = june(2, 9).Add(15 * time.Minute)
	moved.End = june(2, 10).Add(15 * time.Minute)
	require.NoError(t, svc.UpdateAppointment(ctx, scope, &moved))
	assert.Equal(t, int64(1), moved.OwnerID)

	moved.Start = june(2, 12)
	moved.End = june(2, 13)
	var ce *models.ConflictError
	assert.True(t, errors.As(svc.UpdateAppointment(ctx, scope, &moved), &ce))

	got, err := svc.GetAppointment(ctx, scope, appt.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, june(2, 9).Add(15*time.Minute), got.Start)
}

func TestScopeRejectsOtherOwners(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	appt := &models.Appointment{OwnerID: 1, Title: "private", Start: june(2, 9), End: june(2, 10)}
	require.NoError(t, svc.CreateAppointment(ctx, models.OwnerScope(1), appt, nil))

	intruder := models.OwnerScope(2)
	_, err := svc.GetAppointment(ctx, intruder, appt.AppointmentID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.ErrorIs(t, svc.DeleteAppointment(ctx, intruder, appt.AppointmentID), models.ErrUnauthorized)

	err = svc.CreateAppointment(ctx, intruder, &models.Appointment{OwnerID: 1, Title: "x", Start: june(3, 9), End: june(3, 10)}, nil)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = svc.CreateAppointment(ctx, intruder, &models.Appointment{OwnerID: 2, CalendarID: appt.CalendarID, Title: "x", Start: june(3, 9), End: june(3, 10)}, nil)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.View(ctx, intruder, 1, view.TypeDay, june(2, 0), june(2, 0))
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCreateAppointmentValidates(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})

	err := svc.CreateAppointment(ctx, nil, &models.Appointment{OwnerID: 1, Title: "backwards", Start: june(2, 10), End: june(2, 9)}, nil)
	assert.True(t, models.IsValidation(err))

	err = svc.CreateAppointment(ctx, nil, &models.Appointment{OwnerID: 1, Title: "x", Start: june(2, 9), End: june(2, 10)},
		[]*models.Reminder{{MinutesBefore: 10, Channel: "pager"}})
	assert.True(t, models.IsValidation(err))

	cals, err := store.Calendars.GetByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cals, "nothing is created for rejected input")
}

func TestEditOccurrenceForksSeries(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	series := &models.Appointment{OwnerID: 1, Title: "standup", Start: june(2, 9), End: june(2, 10), RecurrenceRule: weekly(4)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, series, nil))

	newStart, newEnd := june(9, 11), june(9, 12)
	title := "standup (moved)"
	child, err := svc.EditOccurrence(ctx, scope, series.AppointmentID, june(9, 9), OccurrencePatch{Title: &title, Start: &newStart, End: &newEnd})
	require.NoError(t, err)
	require.NotNil(t, child.RecurrenceParentID)
	assert.Equal(t, series.AppointmentID, *child.RecurrenceParentID)
	assert.Equal(t, june(9, 9), *child.OriginalStart)

	_, err = svc.CancelOccurrence(ctx, scope, series.AppointmentID, june(16, 9))
	require.NoError(t, err)

	v, err := svc.View(ctx, scope, 1, view.TypeList, june(1, 0), june(1, 0))
	require.NoError(t, err)
	titles, starts := titlesAndStarts(v.List)
	assert.Equal(t, []string{"standup", "standup (moved)", "standup", "standup"}, titles)
	assert.Equal(t, []time.Time{june(2, 9), june(9, 11), june(16, 9), june(23, 9)}, starts)
	assert.Equal(t, models.StatusCancelled, v.List[2].Status)

	// editing the same occurrence again reuses the child
	later := june(9, 13)
	laterEnd := june(9, 14)
	again, err := svc.EditOccurrence(ctx, scope, series.AppointmentID, june(9, 9), OccurrencePatch{Start: &later, End: &laterEnd})
	require.NoError(t, err)
	assert.Equal(t, child.AppointmentID, again.AppointmentID)

	children, err := store.Appointments.GetChildren(ctx, series.AppointmentID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	_, err = svc.EditOccurrence(ctx, scope, series.AppointmentID, june(10, 9), OccurrencePatch{Title: &title})
	assert.True(t, models.IsValidation(err))
}

func TestEditOccurrenceMovedOutOfWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	series := &models.Appointment{OwnerID: 1, Title: "weekly", Start: june(2, 9), End: june(2, 10), RecurrenceRule: weekly(5)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, series, nil))

	newStart := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	newEnd := newStart.Add(time.Hour)
	_, err := svc.EditOccurrence(ctx, scope, series.AppointmentID, june(9, 9), OccurrencePatch{Start: &newStart, End: &newEnd})
	require.NoError(t, err)

	day, err := svc.View(ctx, scope, 1, view.TypeDay, june(9, 0), june(9, 0))
	require.NoError(t, err)
	assert.Empty(t, day.Grid.Occurrences())

	list, err := svc.View(ctx, scope, 1, view.TypeList, june(16, 0), june(16, 0))
	require.NoError(t, err)
	_, starts := titlesAndStarts(list.List)
	assert.Equal(t, []time.Time{june(16, 9), june(23, 9), june(30, 9), newStart}, starts)

	assert.NoError(t, svc.CreateAppointment(ctx, scope, &models.Appointment{OwnerID: 1, Title: "freed", Start: june(9, 9), End: june(9, 10)}, nil))
}

func TestEditOccurrenceRequiresSeries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	single := &models.Appointment{OwnerID: 1, Title: "once", Start: june(2, 9), End: june(2, 10)}
	require.NoError(t, svc.CreateAppointment(ctx, nil, single, nil))

	_, err := svc.CancelOccurrence(ctx, nil, single.AppointmentID, june(2, 9))
	assert.True(t, models.IsValidation(err))
}

func TestEditAllDayOccurrence(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	series := &models.Appointment{OwnerID: 1, Title: "trash day", IsAllDay: true, Start: june(3, 0), End: june(3, 0), RecurrenceRule: weekly(3)}
	require.NoError(t, svc.CreateAppointment(ctx, nil, series, nil))

	title := "trash day (holiday)"
	child, err := svc.EditOccurrence(ctx, nil, series.AppointmentID, june(10, 0), OccurrencePatch{Title: &title})
	require.NoError(t, err)
	assert.True(t, child.IsAllDay)
	assert.Equal(t, june(10, 0), child.Start)
	assert.Equal(t, june(10, 0), child.End)

	v, err := svc.View(ctx, nil, 1, view.TypeList, june(1, 0), june(1, 0))
	require.NoError(t, err)
	titles, _ := titlesAndStarts(v.List)
	assert.Equal(t, []string{"trash day", "trash day (holiday)", "trash day"}, titles)
}

func TestDeleteSeriesRemovesForks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	series := &models.Appointment{OwnerID: 1, Title: "standup", Start: june(2, 9), End: june(2, 10), RecurrenceRule: weekly(4)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, series, []*models.Reminder{{MinutesBefore: 15, Channel: models.ChannelBrowser}}))
	child, err := svc.CancelOccurrence(ctx, scope, series.AppointmentID, june(9, 9))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAppointment(ctx, scope, series.AppointmentID))

	_, err = svc.GetAppointment(ctx, scope, child.AppointmentID)
	assert.True(t, models.IsNotFound(err))

	v, err := svc.View(ctx, scope, 1, view.TypeList, june(1, 0), june(1, 0))
	require.NoError(t, err)
	assert.Empty(t, v.List)
}

func TestViewHonorsVisibilityAndPreferences(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	settings, err := store.Settings.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	settings.Timezone = "Asia/Taipei"
	settings.WeekStart = "sunday"
	require.NoError(t, store.Settings.Update(ctx, settings))

	home := &models.Calendar{OwnerID: 1, Name: "Home", Visible: true}
	work := &models.Calendar{OwnerID: 1, Name: "Work", Visible: true}
	require.NoError(t, svc.CreateCalendar(ctx, scope, home))
	require.NoError(t, svc.CreateCalendar(ctx, scope, work))

	// 09:00 and 10:00 in Taipei on Wednesday 2025-06-11
	require.NoError(t, svc.CreateAppointment(ctx, scope, &models.Appointment{CalendarID: home.CalendarID, OwnerID: 1, Title: "gym", Start: june(11, 1), End: june(11, 2)}, nil))
	require.NoError(t, svc.CreateAppointment(ctx, scope, &models.Appointment{CalendarID: work.CalendarID, OwnerID: 1, Title: "review", Start: june(11, 2), End: june(11, 3)}, nil))

	require.NoError(t, svc.SetCalendarVisible(ctx, scope, 1, work.CalendarID, false))

	v, err := svc.View(ctx, scope, 1, view.TypeWeek, june(11, 4), june(11, 4))
	require.NoError(t, err)
	require.NotNil(t, v.Grid)
	require.Len(t, v.Grid.Days, 7)
	assert.Equal(t, time.Sunday, v.Grid.Days[0].Date.Weekday())
	assert.Equal(t, "Asia/Taipei", v.Start.Location().String())

	titles, _ := titlesAndStarts(v.Grid.Occurrences())
	assert.Equal(t, []string{"gym"}, titles)
	wednesday := v.Grid.Days[3]
	assert.Len(t, wednesday.Slots[9].Occurrences, 1)

	grid, err := svc.Digest(ctx, 1, june(11, 4))
	require.NoError(t, err)
	titles, _ = titlesAndStarts(grid.Occurrences())
	assert.Equal(t, []string{"gym", "review"}, titles)

	text, err := svc.DigestText(ctx, 1, june(11, 0))
	require.NoError(t, err)
	assert.Contains(t, text, "09:00–10:00 gym")
	assert.Contains(t, text, "Good morning")

	_, err = svc.View(ctx, scope, 1, view.Type("year"), june(11, 0), june(11, 0))
	assert.True(t, models.IsValidation(err))
}

func TestAddReminderAndExport(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Options{})
	scope := models.OwnerScope(1)

	appt := &models.Appointment{OwnerID: 1, Title: "flight", Location: "TPE", Start: june(5, 6), End: june(5, 8)}
	require.NoError(t, svc.CreateAppointment(ctx, scope, appt, nil))

	rem, err := svc.AddReminder(ctx, scope, appt.AppointmentID, 120, models.ChannelEmail)
	require.NoError(t, err)
	assert.NotZero(t, rem.ReminderID)

	_, err = svc.AddReminder(ctx, scope, appt.AppointmentID, -5, models.ChannelEmail)
	assert.True(t, models.IsValidation(err))
	_, err = svc.AddReminder(ctx, models.OwnerScope(2), appt.AppointmentID, 5, models.ChannelEmail)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	rems, err := store.Reminders.GetByAppointment(ctx, appt.AppointmentID)
	require.NoError(t, err)
	assert.Len(t, rems, 1)

	out, err := svc.ExportList(ctx, scope, 1, june(1, 0), june(1, 0))
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:flight")
	assert.Contains(t, out, "LOCATION:TPE")
}
