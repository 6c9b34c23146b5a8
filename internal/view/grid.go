package view

import (
	"sort"
	"time"

	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
)

// buildMonth lays occs (already sorted) onto whole weeks. All-day
// occurrences land on every date of their span, timed ones on their start
// date only.
func buildMonth(occs []models.Occurrence, anchor, start, end, now time.Time, loc *time.Location) *Month {
	n := interval.DaysBetween(start, end)
	cells := make([]Cell, n)
	for i := range cells {
		d := interval.AddDays(start, i)
		cells[i] = Cell{
			Date:           d,
			IsCurrentMonth: d.Year() == anchor.Year() && d.Month() == anchor.Month(),
			IsToday:        !now.IsZero() && interval.SameDate(d, now, loc),
		}
	}

	for _, o := range occs {
		if !o.AllDay {
			continue
		}
		i := sort.Search(n, func(i int) bool { return !cells[i].Date.Before(o.Start) })
		for ; i < n && cells[i].Date.Before(o.End); i++ {
			cells[i].Occurrences = append(cells[i].Occurrences, o)
		}
	}
	for _, o := range occs {
		if o.AllDay || o.Start.Before(start) || !o.Start.Before(end) {
			continue
		}
		i := sort.Search(n, func(i int) bool { return cells[i].Date.After(o.Start) }) - 1
		cells[i].Occurrences = append(cells[i].Occurrences, o)
	}

	m := &Month{Year: anchor.Year(), Month: anchor.Month()}
	for i := 0; i+7 <= n; i += 7 {
		m.Weeks = append(m.Weeks, cells[i:i+7])
	}
	return m
}

// buildTimeGrid fills 24 hourly slots per day. A timed occurrence joins
// every slot it intersects; all-day occurrences only join the day bucket.
func buildTimeGrid(occs []models.Occurrence, start, end, now time.Time, loc *time.Location) *TimeGrid {
	var days []Day
	for d := start; d.Before(end); d = interval.AddDays(d, 1) {
		day := Day{
			Date:    d,
			IsToday: !now.IsZero() && interval.SameDate(d, now, loc),
			Slots:   make([]Slot, 24),
		}
		for h := range day.Slots {
			day.Slots[h] = Slot{
				Hour:  h,
				Start: time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, loc),
				End:   time.Date(d.Year(), d.Month(), d.Day(), h+1, 0, 0, 0, loc),
			}
		}
		days = append(days, day)
	}

	var slots []*Slot
	for i := range days {
		for h := range days[i].Slots {
			slots = append(slots, &days[i].Slots[h])
		}
	}

	for _, o := range occs {
		if o.AllDay {
			i := sort.Search(len(days), func(i int) bool { return !days[i].Date.Before(o.Start) })
			for ; i < len(days) && days[i].Date.Before(o.End); i++ {
				days[i].AllDay = append(days[i].AllDay, o)
			}
			continue
		}
		i := sort.Search(len(slots), func(i int) bool { return slots[i].End.After(o.Start) })
		for ; i < len(slots) && slots[i].Start.Before(o.End); i++ {
			if interval.Overlaps(o.Start, o.End, slots[i].Start, slots[i].End) {
				slots[i].Occurrences = append(slots[i].Occurrences, o)
			}
		}
	}
	return &TimeGrid{Days: days}
}
