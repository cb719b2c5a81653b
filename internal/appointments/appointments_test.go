package appointments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/apitest"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/workflow"
)

func boolPtr(b bool) *bool { return &b }

func sample() []api.Appointment {
	return []api.Appointment{
		{ID: "1", PatientName: "Maria Pop", DoctorName: "Dr. Ana", Status: api.StatusScheduled, IsOwnPatient: boolPtr(true)},
		{ID: "2", PatientName: "Ion Vasile", DoctorName: "Dr. Bogdan", Status: api.StatusConfirmed, IsOwnPatient: boolPtr(false)},
		{ID: "3", PatientName: "Elena Marin", DoctorName: "Dr. Ana", Status: api.StatusCompleted, IsOwnPatient: boolPtr(true)},
		{ID: "4", PatientName: "maria ionescu", DoctorName: "Dr. Bogdan", Status: api.StatusCancelled, IsOwnPatient: boolPtr(false)},
	}
}

func ids(list []api.Appointment) []api.ID {
	out := make([]api.ID, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		viewer api.Role
		want   []api.ID
	}{
		{"staff zero value hides colleagues", Filter{}, api.RoleDoctor, []api.ID{"1", "3"}},
		{"staff with colleagues", Filter{IncludeColleagues: true}, api.RoleDoctor, []api.ID{"1", "2", "3", "4"}},
		{"patient ignores colleague toggle", Filter{}, api.RolePatient, []api.ID{"1", "2", "3", "4"}},
		{"search is case-insensitive on patient", Filter{Search: "MARIA", IncludeColleagues: true}, api.RoleNurse, []api.ID{"1", "4"}},
		{"search matches doctor", Filter{Search: "bogdan", IncludeColleagues: true}, api.RoleNurse, []api.ID{"2", "4"}},
		{"status", Filter{Status: api.StatusCompleted, IncludeColleagues: true}, api.RoleAdmin, []api.ID{"3"}},
		{"combined", Filter{Search: "dr. ana", Status: api.StatusScheduled}, api.RoleDoctor, []api.ID{"1"}},
		{"no match", Filter{Search: "zzz"}, api.RolePatient, []api.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := sample()
			got := tt.filter.Apply(list, tt.viewer)
			assert.Equal(t, tt.want, ids(got))
			assert.Len(t, list, 4, "input untouched")
		})
	}
}

func TestProjectToEvent(t *testing.T) {
	tests := []struct {
		name   string
		appt   api.Appointment
		viewer api.Role
		tone   Tone
	}{
		{"confirmed own staff", api.Appointment{Status: api.StatusConfirmed, IsOwnPatient: boolPtr(true)}, api.RoleDoctor, ToneConfirmedOwn},
		{"confirmed patient", api.Appointment{Status: api.StatusConfirmed}, api.RolePatient, ToneConfirmedOwn},
		{"confirmed colleague", api.Appointment{Status: api.StatusConfirmed, IsOwnPatient: boolPtr(false)}, api.RoleDoctor, ToneColleague},
		{"scheduled colleague", api.Appointment{Status: api.StatusScheduled, IsOwnPatient: boolPtr(false)}, api.RoleAssistant, ToneColleague},
		{"completed own", api.Appointment{Status: api.StatusCompleted, IsOwnPatient: boolPtr(true)}, api.RoleDoctor, ToneCompleted},
		{"completed patient", api.Appointment{Status: api.StatusCompleted}, api.RolePatient, ToneCompleted},
		{"scheduled own", api.Appointment{Status: api.StatusScheduled}, api.RoleDoctor, ToneDefault},
		{"cancelled patient", api.Appointment{Status: api.StatusCancelled, IsOwnPatient: boolPtr(false)}, api.RolePatient, ToneDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ProjectToEvent(tt.appt, tt.viewer)
			assert.Equal(t, tt.tone, ev.Tone)
			assert.Equal(t, StyleOf(tt.tone), ev.Style)
		})
	}
}

func TestProjectToEvent_Styles(t *testing.T) {
	colleague := StyleOf(ToneColleague)
	assert.NotEqual(t, colleague.Background, colleague.Border, "colleague events carry a border")
	assert.NotEqual(t, StyleOf(ToneConfirmedOwn), StyleOf(ToneDefault))
	assert.Equal(t, StyleOf(ToneDefault), StyleOf(Tone("unknown")))
}

func TestProjectToEvent_TitleAndTimes(t *testing.T) {
	a := api.Appointment{
		ID:              "9",
		PatientName:     "Maria",
		DoctorName:      "Dr. Ana",
		DateTime:        "2025-06-01T09:00:00",
		DurationMinutes: 45,
		Status:          api.StatusScheduled,
	}
	staff := ProjectToEvent(a, api.RoleDoctor)
	assert.Equal(t, "Maria", staff.Title)
	assert.Equal(t, "2025-06-01T09:00", staff.Start)
	assert.Equal(t, "2025-06-01T09:45", staff.End)

	a.DurationMinutes = 0
	patient := ProjectToEvent(a, api.RolePatient)
	assert.Equal(t, "Dr. Ana", patient.Title)
	assert.Equal(t, "2025-06-01T09:30", patient.End)

	a.DateTime = "soon"
	broken := ProjectToEvent(a, api.RolePatient)
	assert.Equal(t, "soon", broken.Start)
	assert.Empty(t, broken.End)
}

func TestSummarize(t *testing.T) {
	h := api.PatientHistory{Appointments: []api.Appointment{
		{ID: "a", DateTime: "2025-07-10T10:00", Status: api.StatusScheduled},
		{ID: "b", DateTime: "2025-05-01T10:00", Status: api.StatusCompleted},
		{ID: "c", DateTime: "2025-06-15T08:00", Status: api.StatusConfirmed},
		{ID: "d", DateTime: "2025-06-01T09:00", Status: api.StatusCancelled},
		{ID: "e", DateTime: "2025-06-02T09:00", Status: api.StatusScheduled},
		{ID: "f", DateTime: "2025-06-20T09:00", Status: api.StatusScheduled},
		{ID: "g", DateTime: "2025-04-01T09:00", Status: api.StatusCompleted},
	}}
	s := Summarize(h)
	assert.Equal(t, []api.ID{"b", "g"}, ids(s.Completed))
	assert.Equal(t, []api.ID{"e", "c", "f"}, ids(s.Upcoming))
}

func TestSummarize_UnparsableDatesSortLast(t *testing.T) {
	base := []api.Appointment{
		{ID: "late", DateTime: "2025-06-10T09:00", Status: api.StatusScheduled},
		{ID: "vague", DateTime: "1st of June", Status: api.StatusScheduled},
		{ID: "early", DateTime: "2025-06-02T09:00", Status: api.StatusConfirmed},
		{ID: "tbd", DateTime: "tbd", Status: api.StatusScheduled},
	}
	for shift := range base {
		h := api.PatientHistory{}
		for i := range base {
			h.Appointments = append(h.Appointments, base[(i+shift)%len(base)])
		}
		s := Summarize(h)
		assert.Equal(t, []api.ID{"early", "late", "vague"}, ids(s.Upcoming), "rotation %d", shift)
	}
}

func TestSummarize_Properties(t *testing.T) {
	statuses := []api.AppointmentStatus{api.StatusScheduled, api.StatusConfirmed, api.StatusCompleted, api.StatusCancelled}
	for n := 0; n < 12; n++ {
		var h api.PatientHistory
		wantCompleted := 0
		wantUpcoming := 0
		for i := 0; i < n; i++ {
			st := statuses[(i*7+n)%len(statuses)]
			h.Appointments = append(h.Appointments, api.Appointment{
				ID:       api.ID(fmt.Sprint(i)),
				DateTime: fmt.Sprintf("2025-06-%02dT09:00", (i*5)%28+1),
				Status:   st,
			})
			switch st {
			case api.StatusCompleted:
				wantCompleted++
			case api.StatusScheduled, api.StatusConfirmed:
				wantUpcoming++
			}
		}
		s := Summarize(h)
		assert.Len(t, s.Completed, wantCompleted)
		for _, a := range s.Completed {
			assert.Equal(t, api.StatusCompleted, a.Status)
		}
		if wantUpcoming > UpcomingLimit {
			wantUpcoming = UpcomingLimit
		}
		assert.Len(t, s.Upcoming, wantUpcoming)
		for i, a := range s.Upcoming {
			assert.NotEqual(t, api.StatusCancelled, a.Status)
			assert.NotEqual(t, api.StatusCompleted, a.Status)
			if i > 0 {
				assert.LessOrEqual(t, s.Upcoming[i-1].DateTime, a.DateTime)
			}
		}
	}
}

func seedAppointments(t *testing.T) (*apitest.Server, apitest.Tokens) {
	t.Helper()
	srv := apitest.New(t)
	tokens := srv.Seed()
	srv.AddAppointment(api.Appointment{ID: "p1", PatientID: apitest.PatientUserID, PatientName: "Maria Patient", DoctorID: apitest.DoctorAna, DoctorName: "Dr. Ana Pop", DoctorUserID: apitest.AnaUserID, DateTime: "2025-06-01T09:00", Status: api.StatusConfirmed})
	srv.AddAppointment(api.Appointment{ID: "p2", PatientID: "u-other", PatientName: "Ion Other", DoctorID: apitest.DoctorBogdan, DoctorName: "Dr. Bogdan Ionescu", DoctorUserID: apitest.BogdanUserID, DateTime: "2025-06-02T10:00", Status: api.StatusScheduled})
	srv.AddAppointment(api.Appointment{ID: "p3", PatientID: apitest.PatientUserID, PatientName: "Maria Patient", DoctorID: apitest.DoctorBogdan, DoctorName: "Dr. Bogdan Ionescu", DoctorUserID: apitest.BogdanUserID, DateTime: "2025-05-01T10:00", Status: api.StatusCompleted})
	return srv, tokens
}

func newBoard(t *testing.T, srv *apitest.Server, token string, user api.User) *Board {
	t.Helper()
	client, err := api.New(api.Config{BaseURL: srv.URL, Token: token})
	require.NoError(t, err)
	store := session.NewStore()
	store.Set(user, time.Time{})
	return NewBoard(NewLoader(client, store), BoardOptions{})
}

func TestBoard_PatientSeesOnlyOwn(t *testing.T) {
	srv, tokens := seedAppointments(t)
	b := newBoard(t, srv, tokens.Patient, api.User{ID: apitest.PatientUserID, Role: api.RolePatient})

	require.NoError(t, b.Refresh(context.Background()))
	v := b.View()
	assert.True(t, v.Loaded)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, []api.ID{"p1", "p3"}, ids(v.Items))
	require.Len(t, v.Events, 2)
	assert.Equal(t, ToneConfirmedOwn, v.Events[0].Tone)
	assert.Equal(t, ToneCompleted, v.Events[1].Tone)
}

func TestBoard_StaffOwnershipAndFilterWithoutRefetch(t *testing.T) {
	srv, tokens := seedAppointments(t)
	b := newBoard(t, srv, tokens.Ana, api.User{ID: apitest.AnaUserID, Role: api.RoleDoctor})

	require.NoError(t, b.Refresh(context.Background()))
	assert.Equal(t, []api.ID{"p1"}, ids(b.View().Items))

	b.SetFilter(Filter{IncludeColleagues: true})
	v := b.View()
	assert.Equal(t, []api.ID{"p1", "p2", "p3"}, ids(v.Items))
	assert.Equal(t, ToneColleague, v.Events[1].Tone)

	b.SetFilter(Filter{IncludeColleagues: true, Search: "ion other"})
	assert.Equal(t, []api.ID{"p2"}, ids(b.View().Items))

	assert.Len(t, srv.CallsTo("GET", "/appointments"), 1, "filter changes stay local")

	a, ok := b.Find("p2")
	require.True(t, ok)
	assert.False(t, a.Own())
}

func TestBoard_RefreshCommandAndErrors(t *testing.T) {
	srv, tokens := seedAppointments(t)
	b := newBoard(t, srv, tokens.Patient, api.User{ID: apitest.PatientUserID, Role: api.RolePatient})
	d := workflow.NewDispatcher(nil)
	b.Register(d)

	srv.FailNext("GET", "/appointments", 500, "Database unavailable")
	err := d.Dispatch(context.Background(), workflow.Command{Kind: workflow.RefreshAppointments})
	require.Error(t, err)
	assert.Equal(t, "Database unavailable", b.View().Error)

	require.NoError(t, d.Dispatch(context.Background(), workflow.Command{Kind: workflow.RefreshAppointments}))
	v := b.View()
	assert.Empty(t, v.Error, "error cleared on the next attempt")
	assert.Len(t, v.Items, 2)
}

func TestLoader_RequiresIdentity(t *testing.T) {
	srv, tokens := seedAppointments(t)
	client, err := api.New(api.Config{BaseURL: srv.URL, Token: tokens.Patient})
	require.NoError(t, err)
	_, _, err = NewLoader(client, session.NewStore()).Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Empty(t, srv.CallsTo("GET", "/appointments"))
}

func TestHistory_LoadsOwnByDefault(t *testing.T) {
	srv, tokens := seedAppointments(t)
	client, err := api.New(api.Config{BaseURL: srv.URL, Token: tokens.Patient})
	require.NoError(t, err)
	store := session.NewStore()
	store.Set(api.User{ID: apitest.PatientUserID, Role: api.RolePatient}, time.Time{})

	h := NewHistory(client, store, nil)
	d := workflow.NewDispatcher(nil)
	h.Register(d)
	require.NoError(t, d.Dispatch(context.Background(), workflow.Command{Kind: workflow.RefreshHistory}))

	s, patient := h.Summary()
	assert.Equal(t, apitest.PatientUserID, patient)
	assert.Equal(t, []api.ID{"p3"}, ids(s.Completed))
	assert.Equal(t, []api.ID{"p1"}, ids(s.Upcoming))
	require.Len(t, srv.CallsTo("GET", "/patients/u-patient/history"), 1)
}
