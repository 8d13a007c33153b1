// Package ics moves events between the store and iCalendar documents.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/idgen"
	"github.com/flitsinc/go-calendar/internal/state"
)

const productID = "-//flitsinc//go-calendar//EN"

const (
	dateLayout      = "20060102"
	localLayout     = "20060102T150405"
	utcLayout       = "20060102T150405Z"
	storeLayout     = "2006-01-02T15:04:05"
	storeDateLayout = "2006-01-02"
	createdLayout   = "2006-01-02 15:04:05"
)

type EventSource interface {
	AllEvents(ctx context.Context) ([]state.Event, error)
	CalendarID(ctx context.Context) (string, error)
}

type EventSink interface {
	EventSource
	InsertEvent(ctx context.Context, in state.EventInput) (int64, error)
}

// Export writes every stored event as one VCALENDAR. Timed events use
// floating local times, matching how the store keeps them.
func Export(ctx context.Context, src EventSource, w io.Writer, now time.Time) (int, error) {
	events, err := src.AllEvents(ctx)
	if err != nil {
		return 0, err
	}
	calendarID, err := src.CalendarID(ctx)
	if err != nil {
		return 0, err
	}
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		start, err := time.ParseInLocation(storeLayout, ev.StartTime, time.Local)
		if err != nil {
			return 0, fmt.Errorf("event %d start: %w", ev.ID, err)
		}
		end, err := time.ParseInLocation(storeLayout, ev.EndTime, time.Local)
		if err != nil {
			return 0, fmt.Errorf("event %d end: %w", ev.ID, err)
		}

		vev := cal.AddEvent(idgen.EventUID(calendarID, ev.ID))
		vev.SetDtStampTime(now)
		if created, err := time.Parse(createdLayout, ev.CreatedAt); err == nil {
			vev.SetCreatedTime(created)
		}
		if modified, err := time.Parse(createdLayout, ev.UpdatedAt); err == nil {
			vev.SetModifiedAt(modified)
		}
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vev.SetLocation(ev.Location)
		}
		if ev.AllDay {
			vev.SetAllDayStartAt(start)
			// DTEND of a date is exclusive.
			vev.SetAllDayEndAt(dayOf(end).AddDate(0, 0, 1))
		} else {
			vev.SetProperty(ical.ComponentPropertyDtStart, start.Format(localLayout))
			vev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localLayout))
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return 0, fmt.Errorf("write calendar: %w", err)
	}
	return len(events), nil
}

type ImportResult struct {
	Imported int `json:"imported"`
	// Skipped counts events exported from this same store that are still
	// in it.
	Skipped int `json:"skipped"`
	// Invalid counts VEVENTs that could not be turned into an event.
	Invalid int `json:"invalid"`
}

// Import inserts every usable VEVENT from r. Recurrence rules are ignored;
// only the first occurrence is stored.
func Import(ctx context.Context, r io.Reader, dst EventSink, log *zap.Logger) (ImportResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res ImportResult
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return res, fmt.Errorf("parse calendar: %w", err)
	}

	existing, err := dst.AllEvents(ctx)
	if err != nil {
		return res, err
	}
	calendarID, err := dst.CalendarID(ctx)
	if err != nil {
		return res, err
	}
	known := make(map[string]bool, len(existing))
	for _, ev := range existing {
		known[idgen.EventUID(calendarID, ev.ID)] = true
	}

	for _, vev := range cal.Events() {
		uid := propValue(vev, ical.ComponentPropertyUniqueId)
		if idgen.IsEventUID(uid) && known[uid] {
			res.Skipped++
			continue
		}
		in, err := eventInput(vev)
		if err != nil {
			res.Invalid++
			log.Warn("skipping calendar entry", zap.String("uid", uid), zap.Error(err))
			continue
		}
		if _, err := dst.InsertEvent(ctx, in); err != nil {
			return res, err
		}
		res.Imported++
	}
	log.Info("calendar imported", zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped), zap.Int("invalid", res.Invalid))
	return res, nil
}

func eventInput(vev *ical.VEvent) (state.EventInput, error) {
	in := state.EventInput{
		Title:       strings.TrimSpace(propValue(vev, ical.ComponentPropertySummary)),
		Description: propValue(vev, ical.ComponentPropertyDescription),
		Location:    propValue(vev, ical.ComponentPropertyLocation),
	}
	if in.Title == "" {
		in.Title = "Untitled"
	}

	dtStart := vev.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return in, errors.New("missing DTSTART")
	}
	start, allDay, err := parseTime(dtStart)
	if err != nil {
		return in, fmt.Errorf("DTSTART: %w", err)
	}

	end := start
	if dtEnd := vev.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if end, _, err = parseTime(dtEnd); err != nil {
			return in, fmt.Errorf("DTEND: %w", err)
		}
		if allDay {
			end = end.AddDate(0, 0, -1)
		}
	} else if !allDay {
		end = start.Add(time.Hour)
	}
	if end.Before(start) {
		end = start
	}

	in.AllDay = allDay
	if allDay {
		in.StartTime = start.Format(storeDateLayout) + "T00:00:00"
		in.EndTime = end.Format(storeDateLayout) + "T23:59:59"
	} else {
		in.StartTime = start.Format(storeLayout)
		in.EndTime = end.Format(storeLayout)
	}
	return in, nil
}

func propValue(vev *ical.VEvent, name ical.ComponentProperty) string {
	if p := vev.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

// parseTime reads a DATE or DATE-TIME property into local wall time. UTC and
// TZID values are converted; floating values are taken as local.
func parseTime(p *ical.IANAProperty) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)
	isDate := !strings.Contains(v, "T")
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		if len(v) > len(dateLayout) {
			v = v[:len(dateLayout)]
		}
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		return t, true, err
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(utcLayout, v)
		return t.In(time.Local), false, err
	}
	loc := time.Local
	if tz, ok := p.ICalParameters["TZID"]; ok && len(tz) > 0 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(localLayout, v, loc)
	return t.In(time.Local), false, err
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
