package appointments

import (
	"sort"
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
)

// UpcomingLimit caps the upcoming list in a history summary.
const UpcomingLimit = 3

// Summary is the "my history" view of a patient.
type Summary struct {
	Completed      []api.Appointment
	Upcoming       []api.Appointment
	Prescriptions  []api.Prescription
	MedicalRecords []api.MedicalRecord
}

// Summarize splits a history into completed visits and the next upcoming
// ones. Upcoming excludes cancelled and completed appointments, is sorted
// by start time and holds at most UpcomingLimit entries.
func Summarize(h api.PatientHistory) Summary {
	s := Summary{
		Completed:      []api.Appointment{},
		Upcoming:       []api.Appointment{},
		Prescriptions:  h.Prescriptions,
		MedicalRecords: h.MedicalRecords,
	}
	for _, a := range h.Appointments {
		switch a.Status {
		case api.StatusCompleted:
			s.Completed = append(s.Completed, a)
		case api.StatusCancelled:
		default:
			s.Upcoming = append(s.Upcoming, a)
		}
	}
	sortByStart(s.Upcoming)
	if len(s.Upcoming) > UpcomingLimit {
		s.Upcoming = s.Upcoming[:UpcomingLimit]
	}
	return s
}

// sortByStart orders by parsed start time. Entries whose date-time does
// not parse go last, ordered by their raw value.
func sortByStart(list []api.Appointment) {
	type keyed struct {
		appt   api.Appointment
		start  time.Time
		parsed bool
	}
	keys := make([]keyed, len(list))
	for i, a := range list {
		t, err := api.ParseDateTime(a.DateTime, time.UTC)
		keys[i] = keyed{appt: a, start: t, parsed: err == nil}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.parsed != b.parsed {
			return a.parsed
		}
		if !a.parsed {
			return a.appt.DateTime < b.appt.DateTime
		}
		return a.start.Before(b.start)
	})
	for i := range keys {
		list[i] = keys[i].appt
	}
}
