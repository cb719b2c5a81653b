package appointments

import (
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
)

// Tone is the visual class of a calendar event.
type Tone string

const (
	ToneDefault      Tone = "default"
	ToneConfirmedOwn Tone = "confirmed_own"
	ToneColleague    Tone = "colleague"
	ToneCompleted    Tone = "completed"
)

// Style is the palette applied to a Tone.
type Style struct {
	Background string
	Border     string
	Text       string
}

var palette = map[Tone]Style{
	ToneDefault:      {Background: "#3b82f6", Border: "#3b82f6", Text: "#ffffff"},
	ToneConfirmedOwn: {Background: "#15803d", Border: "#15803d", Text: "#ffffff"},
	ToneColleague:    {Background: "#e5e7eb", Border: "#6b7280", Text: "#374151"},
	ToneCompleted:    {Background: "#d1d5db", Border: "#d1d5db", Text: "#6b7280"},
}

// StyleOf returns the palette entry for t.
func StyleOf(t Tone) Style {
	if s, ok := palette[t]; ok {
		return s
	}
	return palette[ToneDefault]
}

const defaultDuration = 30 * time.Minute

// Event is a calendar-ready projection of an appointment.
type Event struct {
	ID     api.ID
	Title  string
	Start  string // api.DateTimeLayout
	End    string
	Status api.AppointmentStatus
	Own    bool
	Tone   Tone
	Style  Style
}

// ProjectToEvent maps an appointment to a calendar event for viewer.
// Confirmed appointments the viewer owns are strong green, colleague-owned
// ones are neutral gray with a border, completed ones are muted gray and
// anything else gets the default style.
func ProjectToEvent(a api.Appointment, viewer api.Role) Event {
	own := !viewer.IsStaff() || a.Own()
	tone := ToneDefault
	switch {
	case a.Status == api.StatusConfirmed && own:
		tone = ToneConfirmedOwn
	case !own:
		tone = ToneColleague
	case a.Status == api.StatusCompleted:
		tone = ToneCompleted
	}

	title := a.DoctorName
	if viewer.IsStaff() {
		title = a.PatientName
	}
	if title == "" {
		title = string(a.Status)
	}

	ev := Event{
		ID:     a.ID,
		Title:  title,
		Start:  a.DateTime,
		Status: a.Status,
		Own:    own,
		Tone:   tone,
		Style:  StyleOf(tone),
	}
	if start, err := api.ParseDateTime(a.DateTime, time.UTC); err == nil {
		d := defaultDuration
		if a.DurationMinutes > 0 {
			d = time.Duration(a.DurationMinutes) * time.Minute
		}
		ev.Start = start.Format(api.DateTimeLayout)
		ev.End = start.Add(d).Format(api.DateTimeLayout)
	}
	return ev
}

// Project maps every appointment in list.
func Project(list []api.Appointment, viewer api.Role) []Event {
	out := make([]Event, 0, len(list))
	for _, a := range list {
		out = append(out, ProjectToEvent(a, viewer))
	}
	return out
}
