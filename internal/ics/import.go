package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"plancal/internal/datekey"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/tz"
)

// Imported is a VEVENT converted into an unsaved planner event.
type Imported struct {
	UID   string
	Key   datekey.Key
	Event model.Event
}

// Parse reads an ICS payload into unsaved events keyed by display day.
//
//   - Timed events keep their start; the planner's fixed one hour
//     duration replaces DTEND.
//   - All-day events (VALUE=DATE or no 'T') start at 00:00 on that day.
//   - RRULE is ignored; only the first occurrence is imported.
//
// VEVENTs that cannot be read are logged and skipped.
func Parse(body []byte, n *tz.Normalizer) ([]Imported, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	out := make([]Imported, 0)
	for _, ve := range cal.Events() {
		im, perr := parseVEvent(ve, n)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		out = append(out, im)
	}

	appLog.Info("ics parse completed", "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent, n *tz.Normalizer) (Imported, error) {
	var im Imported

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return im, errors.New("missing UID")
	}
	im.UID = uidProp.Value

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return im, errors.New("missing DTSTART")
	}

	var (
		key    datekey.Key
		clock  string
		allDay bool
	)
	if isDateValue(dtStart) {
		d, err := time.ParseInLocation("20060102", strings.TrimSpace(dtStart.Value), n.Location())
		if err != nil {
			return im, err
		}
		key, clock, allDay = datekey.FromTime(d), "00:00:00", true
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return im, err
		}
		local := start.In(n.Location())
		key, clock = datekey.FromTime(local), local.Format(tz.TimeLayout)
	}

	startDate, endDate, err := n.StorageRange(key, clock)
	if err != nil {
		return im, err
	}

	ev := model.Event{
		Time:      clock,
		StartDate: startDate,
		EndDate:   endDate,
		AllDay:    model.Flag(allDay),
		Color:     model.DefaultColor,
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(propColor); p != nil && model.Color(p.Value).Valid() {
		ev.Color = model.Color(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		appLog.Warn("ics import: recurrence ignored", "uid", im.UID, "rrule", p.Value)
	}

	im.Key = key
	im.Event = ev
	return im, nil
}

// isDateValue reports a VALUE=DATE property or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
