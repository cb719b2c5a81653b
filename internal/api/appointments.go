package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// ListAppointments returns every appointment visible to the session.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	out := listOf[Appointment]{keys: []string{"appointments"}}
	if err := c.do(ctx, call{method: http.MethodGet, route: "appointments.list", path: "/appointments", out: &out}); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out.items, nil
}

// CreateAppointment books a slot. Each call carries a fresh idempotency key.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	var appt Appointment
	err := c.do(ctx, call{
		method:  http.MethodPost,
		route:   "appointments.create",
		path:    "/appointments",
		body:    req,
		out:     &appt,
		headers: map[string]string{"Idempotency-Key": uuid.NewString()},
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &appt, nil
}

// UpdateAppointment changes status or notes of an appointment.
func (c *Client) UpdateAppointment(ctx context.Context, id ID, req UpdateAppointmentRequest) (*Appointment, error) {
	var appt Appointment
	path := "/appointments/" + url.PathEscape(id.String())
	if err := c.do(ctx, call{method: http.MethodPut, route: "appointments.update", path: path, body: req, out: &appt}); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return &appt, nil
}

// CancelAppointment cancels an appointment with a reason.
func (c *Client) CancelAppointment(ctx context.Context, id ID, reason string) error {
	path := "/appointments/" + url.PathEscape(id.String()) + "/cancel"
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, call{method: http.MethodPost, route: "appointments.cancel", path: path, body: body}); err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	return nil
}

// PatientHistory returns a patient's appointments and clinical documents.
func (c *Client) PatientHistory(ctx context.Context, patientID ID) (*PatientHistory, error) {
	var out PatientHistory
	path := "/patients/" + url.PathEscape(patientID.String()) + "/history"
	if err := c.do(ctx, call{method: http.MethodGet, route: "patients.history", path: path, out: &out}); err != nil {
		return nil, fmt.Errorf("patient history: %w", err)
	}
	return &out, nil
}

// CreatePrescription issues a prescription for an appointment.
func (c *Client) CreatePrescription(ctx context.Context, req PrescriptionRequest) (*Prescription, error) {
	var out Prescription
	if err := c.do(ctx, call{method: http.MethodPost, route: "prescriptions.create", path: "/prescriptions", body: req, out: &out}); err != nil {
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	return &out, nil
}

// CreateMedicalRecord attaches a clinical document to an appointment.
func (c *Client) CreateMedicalRecord(ctx context.Context, req MedicalRecordRequest) (*MedicalRecord, error) {
	var out MedicalRecord
	if err := c.do(ctx, call{method: http.MethodPost, route: "medical_records.create", path: "/medical-records", body: req, out: &out}); err != nil {
		return nil, fmt.Errorf("create medical record: %w", err)
	}
	return &out, nil
}
