// Package ics converts between cached planner events and iCalendar data.
package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/tz"
)

// Product identifies exported calendars.
const Product = "plancal"

// Non-standard properties carrying planner-only fields.
const (
	propColor = ical.ComponentProperty("COLOR")
	propIcon  = ical.ComponentProperty("X-PLANCAL-ICON")
	propTime  = ical.ComponentProperty("X-PLANCAL-TIME")
)

// UID is the stable iCalendar UID of a stored event.
func UID(id int64) string {
	return "plancal-" + strconv.FormatInt(id, 10) + "@plancal"
}

// Export renders events as a VCALENDAR. Events without an id or with an
// unreadable start_date are skipped. DTSTAMP is set to now.
func Export(events []model.Event, n *tz.Normalizer, now time.Time) string {
	cal := ical.NewCalendarFor(Product)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(Product)
	cal.SetXWRTimezone(n.Location().String())

	skipped := 0
	for _, ev := range events {
		if !ev.HasID() {
			skipped++
			continue
		}
		start, err := tz.Parse(ev.StartDate)
		if err != nil {
			appLog.Warn("ics export: skipping event", "event_id", ev.ID, "error", err.Error())
			skipped++
			continue
		}
		end, err := tz.Parse(ev.EndDate)
		if err != nil || !end.After(start) {
			end = start.Add(tz.EventDuration)
		}

		ve := cal.AddEvent(UID(ev.ID))
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(start.UTC())
		ve.SetEndAt(end.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Color != "" {
			ve.SetProperty(propColor, string(ev.Color))
		}
		if ev.Time != "" {
			ve.SetProperty(propTime, ev.Time)
		}
		if ev.CalendarIcon != nil {
			if name := model.IconName(*ev.CalendarIcon); name != "" {
				ve.SetProperty(propIcon, name)
			}
		}
	}

	appLog.Info("ics export completed", "event_count", len(events)-skipped, "skipped", skipped)
	return cal.Serialize()
}
