package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ListClinics returns clinics visible to the session.
func (c *Client) ListClinics(ctx context.Context) ([]Clinic, error) {
	out := listOf[Clinic]{keys: []string{"clinics"}}
	if err := c.do(ctx, call{method: http.MethodGet, route: "clinics.list", path: "/clinics", out: &out}); err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	return out.items, nil
}

// GetClinic returns a single clinic.
func (c *Client) GetClinic(ctx context.Context, id ID) (*Clinic, error) {
	var clinic Clinic
	path := "/clinics/" + url.PathEscape(id.String())
	if err := c.do(ctx, call{method: http.MethodGet, route: "clinics.get", path: path, out: &clinic}); err != nil {
		return nil, fmt.Errorf("get clinic: %w", err)
	}
	return &clinic, nil
}

// ClinicStats returns dashboard aggregates for a clinic.
func (c *Client) ClinicStats(ctx context.Context, id ID) (*ClinicStats, error) {
	var stats ClinicStats
	path := "/clinics/" + url.PathEscape(id.String()) + "/stats"
	if err := c.do(ctx, call{method: http.MethodGet, route: "clinics.stats", path: path, out: &stats}); err != nil {
		return nil, fmt.Errorf("clinic stats: %w", err)
	}
	return &stats, nil
}

// ListDoctors returns doctors, optionally narrowed to one clinic.
func (c *Client) ListDoctors(ctx context.Context, clinicID ID) ([]Doctor, error) {
	path := "/doctors"
	if clinicID != "" {
		q := url.Values{}
		q.Set("clinic_id", clinicID.String())
		path += "?" + q.Encode()
	}
	out := listOf[Doctor]{keys: []string{"doctors"}}
	if err := c.do(ctx, call{method: http.MethodGet, route: "doctors.list", path: path, out: &out}); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return out.items, nil
}

// DoctorAvailability returns open slots for a doctor on a calendar date.
// Slots lacking a datetime get one derived from date and time.
func (c *Client) DoctorAvailability(ctx context.Context, doctorID ID, date time.Time) ([]Slot, error) {
	day := date.Format(DateLayout)
	q := url.Values{}
	q.Set("date", day)
	path := "/doctors/" + url.PathEscape(doctorID.String()) + "/availability?" + q.Encode()

	out := listOf[Slot]{keys: []string{"slots", "available_slots"}}
	if err := c.do(ctx, call{method: http.MethodGet, route: "doctors.availability", path: path, out: &out}); err != nil {
		return nil, fmt.Errorf("doctor availability: %w", err)
	}
	slots := out.items
	for i := range slots {
		if slots[i].DateTime == "" && slots[i].Time != "" {
			slots[i].DateTime = day + "T" + slots[i].Time
		}
	}
	return slots, nil
}

// UpdateDoctor edits a doctor profile.
func (c *Client) UpdateDoctor(ctx context.Context, id ID, req DoctorUpdate) (*Doctor, error) {
	var doc Doctor
	path := "/doctors/" + url.PathEscape(id.String())
	if err := c.do(ctx, call{method: http.MethodPut, route: "doctors.update", path: path, body: req, out: &doc}); err != nil {
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return &doc, nil
}

// SetDoctorAvailability replaces a doctor's weekly availability windows.
func (c *Client) SetDoctorAvailability(ctx context.Context, id ID, windows []AvailabilityWindow) error {
	path := "/doctors/" + url.PathEscape(id.String()) + "/availability"
	body := map[string]any{"availability": windows}
	if err := c.do(ctx, call{method: http.MethodPut, route: "doctors.set_availability", path: path, body: body}); err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	return nil
}
