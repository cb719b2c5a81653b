// Package api is the client for the clinic platform REST API.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is an opaque server identifier. The API emits both numeric and string
// ids depending on the resource; both decode into ID.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("api: invalid id %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Role is the account role assigned by the server.
type Role string

const (
	RolePatient       Role = "PATIENT"
	RoleDoctor        Role = "DOCTOR"
	RoleAssistant     Role = "ASSISTANT"
	RoleNurse         Role = "NURSE"
	RoleReceptionist  Role = "RECEPTIONIST"
	RoleAdmin         Role = "ADMIN"
	RoleLocationAdmin Role = "LOCATION_ADMIN"
	RoleSuperAdmin    Role = "SUPER_ADMIN"
)

// IsStaff reports whether the role belongs to clinic personnel.
func (r Role) IsStaff() bool {
	switch r {
	case RoleDoctor, RoleAssistant, RoleNurse, RoleReceptionist, RoleAdmin, RoleLocationAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is the authenticated account.
type User struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	Phone          string `json:"phone,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Address        string `json:"address,omitempty"`
	OrganizationID ID     `json:"organization_id,omitempty"`
	DoctorID       ID     `json:"doctor_id,omitempty"`
}

// AppointmentStatus is the server-owned lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// ParseStatus normalizes user input into a status. Empty and "all" return "".
func ParseStatus(s string) (AppointmentStatus, error) {
	switch v := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case "", "ALL":
		return "", nil
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return v, nil
	default:
		return "", fmt.Errorf("api: unknown appointment status %q", s)
	}
}

// Appointment is a visit between a patient and a doctor at a clinic.
type Appointment struct {
	ID                 ID                `json:"id"`
	PatientID          ID                `json:"patient_id"`
	PatientName        string            `json:"patient_name,omitempty"`
	DoctorID           ID                `json:"doctor_id"`
	DoctorName         string            `json:"doctor_name,omitempty"`
	DoctorUserID       ID                `json:"doctor_user_id,omitempty"`
	ClinicID           ID                `json:"clinic_id"`
	ClinicName         string            `json:"clinic_name,omitempty"`
	DateTime           string            `json:"date_time"`
	DurationMinutes    int               `json:"duration,omitempty"`
	Status             AppointmentStatus `json:"status"`
	Notes              string            `json:"notes,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	IsOwnPatient       *bool             `json:"is_own_patient,omitempty"`
}

// Own reports the server-set ownership flag. A missing flag counts as own.
func (a Appointment) Own() bool {
	return a.IsOwnPatient == nil || *a.IsOwnPatient
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Start parses DateTime. Values without an offset are read in loc.
func (a Appointment) Start(loc *time.Location) (time.Time, error) {
	return ParseDateTime(a.DateTime, loc)
}

// ParseDateTime parses the date-time formats the API emits.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("api: unrecognized date-time %q", value)
}

// DateTimeLayout is the minute-precision ISO-8601 form used for bookings.
const DateTimeLayout = "2006-01-02T15:04"

// DateLayout is the calendar-date form used in query strings.
const DateLayout = "2006-01-02"

// Slot is a bookable start time offered for a doctor on a date.
type Slot struct {
	Time     string `json:"time"`
	DateTime string `json:"datetime,omitempty"`
}

// Clinic is a location patients can book at.
type Clinic struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	OrganizationID ID     `json:"organization_id,omitempty"`
}

// ClinicStats are the dashboard aggregates computed by the server.
type ClinicStats struct {
	TotalAppointments int `json:"total_appointments"`
	Scheduled         int `json:"scheduled"`
	Confirmed         int `json:"confirmed"`
	Completed         int `json:"completed"`
	Cancelled         int `json:"cancelled"`
	Doctors           int `json:"doctors"`
	Patients          int `json:"patients"`
	TodayAppointments int `json:"today_appointments"`
}

// Doctor is a bookable practitioner.
type Doctor struct {
	ID        ID     `json:"id"`
	UserID    ID     `json:"user_id,omitempty"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	ClinicID  ID     `json:"clinic_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// DoctorUpdate carries the editable doctor profile fields.
type DoctorUpdate struct {
	Specialty *string `json:"specialty,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// AvailabilityWindow is a recurring weekly working interval.
type AvailabilityWindow struct {
	DayOfWeek   int    `json:"day_of_week"` // 0 = Monday
	StartTime   string `json:"start_time"`  // "09:00"
	EndTime     string `json:"end_time"`
	SlotMinutes int    `json:"slot_duration,omitempty"`
}

// Medication is one prescription line.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Prescription is an issued prescription.
type Prescription struct {
	ID            ID           `json:"id"`
	AppointmentID ID           `json:"appointment_id"`
	Medications   []Medication `json:"medications"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     string       `json:"created_at,omitempty"`
	DoctorName    string       `json:"doctor_name,omitempty"`
}

// PrescriptionRequest is the POST /prescriptions body.
type PrescriptionRequest struct {
	AppointmentID ID           `json:"appointment_id"`
	Medications   []Medication `json:"medications"`
	Notes         string       `json:"notes,omitempty"`
}

// RecordType classifies a medical record.
type RecordType string

const (
	RecordRecommendation RecordType = "RECOMMENDATION"
	RecordLetter         RecordType = "LETTER"
	RecordNote           RecordType = "NOTE"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordRecommendation, RecordLetter, RecordNote:
		return true
	}
	return false
}

// MedicalRecord is a clinical document attached to an appointment.
type MedicalRecord struct {
	ID            ID         `json:"id"`
	AppointmentID ID         `json:"appointment_id"`
	RecordType    RecordType `json:"record_type"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	CreatedAt     string     `json:"created_at,omitempty"`
	DoctorName    string     `json:"doctor_name,omitempty"`
}

// MedicalRecordRequest is the POST /medical-records body.
type MedicalRecordRequest struct {
	AppointmentID ID         `json:"appointment_id"`
	RecordType    RecordType `json:"record_type"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
}

// PatientHistory bundles a patient's appointments and clinical documents.
type PatientHistory struct {
	Appointments   []Appointment   `json:"appointments"`
	Prescriptions  []Prescription  `json:"prescriptions"`
	MedicalRecords []MedicalRecord `json:"medical_records"`
}

// CreateAppointmentRequest is the POST /appointments body.
type CreateAppointmentRequest struct {
	DoctorID ID     `json:"doctor_id"`
	ClinicID ID     `json:"clinic_id"`
	DateTime string `json:"date_time"`
	Notes    string `json:"notes"`
}

// UpdateAppointmentRequest is the PUT /appointments/{id} body.
type UpdateAppointmentRequest struct {
	Status *AppointmentStatus `json:"status,omitempty"`
	Notes  *string            `json:"notes,omitempty"`
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// ProfileUpdate is the PUT /auth/profile body.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// Invitation is a pending staff invitation looked up by token.
type Invitation struct {
	Token            string `json:"token"`
	Email            string `json:"email"`
	Role             Role   `json:"role"`
	OrganizationName string `json:"organization_name,omitempty"`
	ClinicName       string `json:"clinic_name,omitempty"`
	ExpiresAt        string `json:"expires_at,omitempty"`
}

// AcceptInvitationRequest is the POST /invitations/accept body.
type AcceptInvitationRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// CUIValidation is the server verdict on an organization tax identifier.
type CUIValidation struct {
	Valid       bool   `json:"valid"`
	CompanyName string `json:"company_name,omitempty"`
	Address     string `json:"address,omitempty"`
	Message     string `json:"message,omitempty"`
}

// OrganizationRegistration is the POST /organizations/register body.
type OrganizationRegistration struct {
	CUI           string `json:"cui"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// Organization is the tenant created by registration.
type Organization struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	CUI  string `json:"cui"`
}
