package documents

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/apitest"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/workflow"
)

var confirmed = api.Appointment{ID: "a1", PatientID: apitest.PatientUserID, Status: api.StatusConfirmed}

func depsFor(t *testing.T, token func(apitest.Tokens) string) (*apitest.Server, Deps) {
	t.Helper()
	srv := apitest.New(t)
	tokens := srv.Seed()
	client, err := api.New(api.Config{BaseURL: srv.URL, Token: token(tokens)})
	require.NoError(t, err)
	return srv, Deps{API: client}
}

func anaToken(tk apitest.Tokens) string { return tk.Ana }

func TestAllowed(t *testing.T) {
	tests := []struct {
		role   api.Role
		status api.AppointmentStatus
		want   bool
	}{
		{api.RoleDoctor, api.StatusConfirmed, true},
		{api.RoleDoctor, api.StatusCompleted, true},
		{api.RoleDoctor, api.StatusScheduled, false},
		{api.RoleDoctor, api.StatusCancelled, false},
		{api.RoleNurse, api.StatusConfirmed, false},
		{api.RoleAdmin, api.StatusCompleted, false},
		{api.RolePatient, api.StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.status), func(t *testing.T) {
			appt := api.Appointment{Status: tt.status}
			assert.Equal(t, tt.want, Allowed(tt.role, appt))
			if tt.want {
				assert.NoError(t, Gate(tt.role, appt))
			} else {
				assert.ErrorIs(t, Gate(tt.role, appt), ErrNotAllowed)
			}
		})
	}
}

func TestNewForms_Gated(t *testing.T) {
	_, err := NewPrescriptionForm(Deps{}, api.RoleNurse, confirmed)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = NewRecordForm(Deps{}, api.RoleDoctor, api.Appointment{Status: api.StatusScheduled})
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestPrescriptionForm_EntryList(t *testing.T) {
	f, err := NewPrescriptionForm(Deps{}, api.RoleDoctor, confirmed)
	require.NoError(t, err)
	assert.Equal(t, []api.Medication{{}}, f.Medications(), "starts with one blank entry")

	assert.Equal(t, 1, f.Add())
	require.NoError(t, f.Set(1, api.Medication{Name: "Ibuprofen"}))
	require.NoError(t, f.Remove(0))
	assert.Equal(t, []api.Medication{{Name: "Ibuprofen"}}, f.Medications())
	require.NoError(t, f.Remove(0))
	assert.Empty(t, f.Medications(), "list may shrink to zero")
	assert.Error(t, f.Remove(0))
	assert.Error(t, f.Set(3, api.Medication{}))
}

func TestPrescriptionForm_RejectsWithoutCompleteEntry(t *testing.T) {
	srv, deps := depsFor(t, anaToken)
	f, err := NewPrescriptionForm(deps, api.RoleDoctor, confirmed)
	require.NoError(t, err)
	require.NoError(t, f.Set(0, api.Medication{Name: "A", Dosage: ""}))
	f.Add()

	_, cmd, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, feedback.IsValidation(err))
	assert.True(t, cmd.IsNone())
	assert.NotEmpty(t, f.Error())
	assert.Empty(t, srv.CallsTo(http.MethodPost, "/prescriptions"))

	require.NoError(t, f.Remove(0))
	require.NoError(t, f.Remove(0))
	_, _, err = f.Submit(context.Background())
	assert.True(t, feedback.IsValidation(err), "empty list is rejected too")
}

func TestPrescriptionForm_DropsIncompleteEntries(t *testing.T) {
	srv, deps := depsFor(t, anaToken)
	f, err := NewPrescriptionForm(deps, api.RoleDoctor, confirmed)
	require.NoError(t, err)
	require.NoError(t, f.Set(0, api.Medication{Name: " Amoxicillin ", Dosage: "500mg", Frequency: "3x/day", Duration: "7 days"}))
	require.NoError(t, f.Set(f.Add(), api.Medication{Name: "Ghost"}))
	require.NoError(t, f.Set(f.Add(), api.Medication{Dosage: "10mg"}))
	f.SetNotes("after meals")

	p, cmd, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, workflow.RefreshHistory, cmd.Kind)
	assert.Equal(t, apitest.PatientUserID, cmd.PatientID)

	calls := srv.CallsTo(http.MethodPost, "/prescriptions")
	require.Len(t, calls, 1)
	var body api.PrescriptionRequest
	require.NoError(t, calls[0].Decode(&body))
	assert.Equal(t, api.ID("a1"), body.AppointmentID)
	assert.Equal(t, []api.Medication{{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x/day", Duration: "7 days"}}, body.Medications)
	assert.Equal(t, "after meals", body.Notes)
	assert.Equal(t, []api.Medication{{}}, f.Medications(), "form resets after success")
}

func TestPrescriptionForm_ServerRejection(t *testing.T) {
	_, deps := depsFor(t, func(tk apitest.Tokens) string { return tk.Nurse })
	// The form is opened as a doctor locally; the server still refuses the nurse token.
	f, err := NewPrescriptionForm(deps, api.RoleDoctor, confirmed)
	require.NoError(t, err)
	require.NoError(t, f.Set(0, api.Medication{Name: "A", Dosage: "1"}))

	_, _, err = f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
	assert.Equal(t, "Only doctors can issue prescriptions", f.Error())
	assert.Len(t, f.Medications(), 1, "entries kept for retry")
}

func TestRecordForm_Validation(t *testing.T) {
	srv, deps := depsFor(t, anaToken)
	f, err := NewRecordForm(deps, api.RoleDoctor, confirmed)
	require.NoError(t, err)

	steps := []struct {
		apply func()
		field string
	}{
		{func() {}, "record_type"},
		{func() { f.SetType("PRESCRIPTION") }, "record_type"},
		{func() { f.SetType("letter") }, "title"},
		{func() { f.SetTitle("   ") }, "title"},
		{func() { f.SetTitle("Referral") }, "content"},
	}
	for _, s := range steps {
		s.apply()
		_, _, err := f.Submit(context.Background())
		var v *feedback.ValidationError
		require.ErrorAs(t, err, &v)
		assert.Equal(t, s.field, v.Field)
	}
	assert.Empty(t, srv.CallsTo(http.MethodPost, "/medical-records"))

	f.SetContent("Please see cardiology.")
	rec, cmd, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.RecordLetter, rec.RecordType)
	assert.Equal(t, workflow.RefreshHistory, cmd.Kind)

	calls := srv.CallsTo(http.MethodPost, "/medical-records")
	require.Len(t, calls, 1)
	var body api.MedicalRecordRequest
	require.NoError(t, calls[0].Decode(&body))
	assert.Equal(t, api.MedicalRecordRequest{AppointmentID: "a1", RecordType: api.RecordLetter, Title: "Referral", Content: "Please see cardiology."}, body)
}

func TestForms_SecondSubmitWhileInFlightIsBusy(t *testing.T) {
	srv, deps := depsFor(t, anaToken)

	rec, err := NewRecordForm(deps, api.RoleDoctor, confirmed)
	require.NoError(t, err)
	rec.SetType(api.RecordNote)
	rec.SetTitle("Follow-up")
	rec.SetContent("Recheck in two weeks.")

	release := srv.Hold(http.MethodPost, "/medical-records")
	done := make(chan error, 1)
	go func() {
		_, _, err := rec.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return len(srv.CallsTo(http.MethodPost, "/medical-records")) == 1
	}, time.Second, 5*time.Millisecond)

	_, _, err = rec.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	release()
	require.NoError(t, <-done)
	assert.Len(t, srv.CallsTo(http.MethodPost, "/medical-records"), 1)

	rx, err := NewPrescriptionForm(deps, api.RoleDoctor, confirmed)
	require.NoError(t, err)
	require.NoError(t, rx.Set(0, api.Medication{Name: "A", Dosage: "1"}))

	release = srv.Hold(http.MethodPost, "/prescriptions")
	go func() {
		_, _, err := rx.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return len(srv.CallsTo(http.MethodPost, "/prescriptions")) == 1
	}, time.Second, 5*time.Millisecond)

	_, _, err = rx.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	release()
	require.NoError(t, <-done)
	assert.Len(t, srv.CallsTo(http.MethodPost, "/prescriptions"), 1)
}
