package appointments

import (
	"strings"

	"github.com/wolfman30/clinic-portal/internal/api"
)

// Filter narrows a fetched appointment list. The zero value keeps only the
// viewer's own appointments for staff and everything for patients.
type Filter struct {
	// Search is matched case-insensitively against patient and doctor names.
	Search string
	// Status keeps one status. Empty means all.
	Status api.AppointmentStatus
	// IncludeColleagues keeps appointments owned by other staff members.
	// Ignored for patients.
	IncludeColleagues bool
}

// Apply returns the appointments in list that pass f, in their original
// order. list is not modified.
func (f Filter) Apply(list []api.Appointment, viewer api.Role) []api.Appointment {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]api.Appointment, 0, len(list))
	for _, a := range list {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if viewer.IsStaff() && !f.IncludeColleagues && !a.Own() {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.PatientName), needle) &&
			!strings.Contains(strings.ToLower(a.DoctorName), needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}
