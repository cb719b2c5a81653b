package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/tenancy"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c, err := New(Config{BaseURL: ts.URL + "/", Logger: logging.Default()})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestCreateAppointment_SendsBookingBody(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appointments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":17,"doctor_id":"D","clinic_id":"C","date_time":"2025-06-01T09:00","status":"SCHEDULED"}`))
	})

	appt, err := client.CreateAppointment(context.Background(), CreateAppointmentRequest{
		DoctorID: "D", ClinicID: "C", DateTime: "2025-06-01T09:00", Notes: "first visit",
	})
	require.NoError(t, err)
	assert.Equal(t, ID("17"), appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, map[string]any{
		"doctor_id": "D",
		"clinic_id": "C",
		"date_time": "2025-06-01T09:00",
		"notes":     "first visit",
	}, got)
}

func TestDo_ErrorDetailString(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"Slot already taken"}`))
	})

	_, err := client.CreateAppointment(context.Background(), CreateAppointmentRequest{DoctorID: "D"})
	require.Error(t, err)
	detail, ok := DetailOf(err)
	assert.True(t, ok)
	assert.Equal(t, "Slot already taken", detail)
	assert.Equal(t, http.StatusConflict, StatusOf(err))
	assert.False(t, IsNetwork(err))
}

func TestDo_ErrorDetailValidationList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","reason"],"msg":"field required"},{"msg":"too short"}]}`))
	})

	err := client.CancelAppointment(context.Background(), "1", "x")
	detail, ok := DetailOf(err)
	require.True(t, ok)
	assert.Equal(t, "field required; too short", detail)
}

func TestDo_ErrorWithoutDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failed", http.StatusBadGateway)
	})

	_, err := client.ListClinics(context.Background())
	require.Error(t, err)
	_, ok := DetailOf(err)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestDo_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.ListAppointments(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, 0, StatusOf(err))
}

func TestDo_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListClinics(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLogin_UnauthorizedMapsToInvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	})

	_, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "wrongpass"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_AdoptsTokenAndSendsItAfterwards(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_, _ = w.Write([]byte(`{"user":{"id":1,"name":"Ana","role":"DOCTOR"},"access_token":"tok-1"}`))
		case "/auth/me":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":1,"name":"Ana","role":"DOCTOR"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	resp, err := client.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, resp.User.Role)
	assert.Equal(t, "tok-1", client.Token())

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ID("1"), user.ID)
}

func TestLogout_ClearsTokenEvenOnFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client.SetToken("tok")
	require.Error(t, client.Logout(context.Background()))
	assert.Empty(t, client.Token())
}

func TestCookieSessionIsReplayed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "clinic_session", Value: "abc", Path: "/"})
			_, _ = w.Write([]byte(`{"user":{"id":"u1","role":"PATIENT"}}`))
		case "/auth/me":
			c, err := r.Cookie("clinic_session")
			require.NoError(t, err)
			assert.Equal(t, "abc", c.Value)
			_, _ = w.Write([]byte(`{"id":"u1","role":"PATIENT"}`))
		}
	})

	_, err := client.Login(context.Background(), LoginRequest{Email: "p@example.com", Password: "password123"})
	require.NoError(t, err)
	_, err = client.CurrentUser(context.Background())
	require.NoError(t, err)
}

func TestDoctorAvailability_DerivesDateTime(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctors/d%201/availability", r.URL.EscapedPath())
		assert.Equal(t, "2025-06-01", r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`{"available_slots":[{"time":"09:00"},{"time":"09:30","datetime":"2025-06-01T09:30"}]}`))
	})

	slots, err := client.DoctorAvailability(context.Background(), "d 1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "2025-06-01T09:00", slots[0].DateTime)
	assert.Equal(t, "2025-06-01T09:30", slots[1].DateTime)
}

func TestListDoctors_ClinicFilterAndEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c1", r.URL.Query().Get("clinic_id"))
		_, _ = w.Write([]byte(`{"doctors":[{"id":3,"name":"Dr. X"}]}`))
	})

	docs, err := client.ListDoctors(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ID("3"), docs[0].ID)
}

func TestTenancyHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "org-9", r.Header.Get(tenancy.OrgHeader))
		assert.Equal(t, "loc-1", r.Header.Get(tenancy.LocationHeader))
		_, _ = w.Write([]byte(`[]`))
	})
	ctx := tenancy.WithLocationID(tenancy.WithOrgID(context.Background(), "org-9"), "loc-1")
	_, err := client.ListAppointments(ctx)
	require.NoError(t, err)
}

func TestDo_RecordsMetrics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(ts.Close)
	reg := prometheus.NewRegistry()
	c, err := New(Config{BaseURL: ts.URL, Metrics: metrics.NewClientMetrics(reg), RateLimitRPS: 100, Burst: 2})
	require.NoError(t, err)

	_, err = c.ListClinics(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "clinic_api_requests_total" {
			found = true
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "expected clinic_api_requests_total to be gathered")
}

func TestIDUnmarshal(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"x-1","c":null}`), &v))
	assert.Equal(t, ID("12"), v.A)
	assert.Equal(t, ID("x-1"), v.B)
	assert.Equal(t, ID(""), v.C)
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	s, err = ParseStatus("all")
	require.NoError(t, err)
	assert.Equal(t, AppointmentStatus(""), s)

	_, err = ParseStatus("pending")
	assert.Error(t, err)
}

func TestParseDateTime(t *testing.T) {
	for _, in := range []string{"2025-06-01T09:00", "2025-06-01T09:00:00", "2025-06-01 09:00", "2025-06-01T09:00:00Z"} {
		got, err := ParseDateTime(in, time.UTC)
		require.NoError(t, err, in)
		assert.Equal(t, 9, got.Hour(), in)
	}
	_, err := ParseDateTime("tomorrow", time.UTC)
	assert.Error(t, err)
}

func TestInspectToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"role": "DOCTOR",
		"exp":  exp.Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	info, err := InspectToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", info.Subject)
	assert.Equal(t, RoleDoctor, info.Role)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(exp.Add(-time.Minute)))
	assert.True(t, info.Expired(exp))

	_, err = InspectToken("not-a-jwt")
	assert.Error(t, err)
}
