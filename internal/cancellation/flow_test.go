package cancellation

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/apitest"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/workflow"
)

func setup(t *testing.T) (*apitest.Server, *Flow) {
	t.Helper()
	srv := apitest.New(t)
	tokens := srv.Seed()
	srv.AddAppointment(api.Appointment{ID: "a1", PatientID: apitest.PatientUserID, DoctorID: apitest.DoctorAna, DateTime: "2025-06-01T09:00", Status: api.StatusScheduled})
	client, err := api.New(api.Config{BaseURL: srv.URL, Token: tokens.Patient})
	require.NoError(t, err)
	return srv, NewFlow(client, nil, nil, feedback.Messages{})
}

func TestValidateReason(t *testing.T) {
	short := []string{"", "  ", "ab", "  ab  ", "\tx\n", "ăș"}
	for _, r := range short {
		assert.True(t, feedback.IsValidation(ValidateReason(r)), "%q should be rejected", r)
	}
	for _, r := range []string{"abc", "  sick ", "nu pot"} {
		assert.NoError(t, ValidateReason(r), "%q should pass", r)
	}
}

func TestSubmit_ShortReasonSendsNothing(t *testing.T) {
	srv, f := setup(t)
	reg := prometheus.NewRegistry()
	f.metrics = metrics.NewClientMetrics(reg)
	f.Open(api.Appointment{ID: "a1"})

	for _, r := range []string{"", "no", "   x   "} {
		f.SetReason(r)
		cmd, err := f.Submit(context.Background())
		require.Error(t, err)
		assert.True(t, cmd.IsNone())
		assert.True(t, f.View().Open)
		assert.NotEmpty(t, f.View().Error)
	}
	assert.Empty(t, srv.CallsTo(http.MethodPost, "/appointments/a1/cancel"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var rejections float64
	for _, mf := range mfs {
		if mf.GetName() == "clinic_flows_validation_rejections_total" {
			for _, m := range mf.GetMetric() {
				rejections += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(3), rejections)
}

func TestSubmit_PostsTrimmedReasonAndCloses(t *testing.T) {
	srv, f := setup(t)
	f.Open(api.Appointment{ID: "a1"})
	f.SetReason("  feeling better  ")

	cmd, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.RefreshAppointments, cmd.Kind)
	assert.False(t, f.View().Open)

	calls := srv.CallsTo(http.MethodPost, "/appointments/a1/cancel")
	require.Len(t, calls, 1)
	var body map[string]string
	require.NoError(t, calls[0].Decode(&body))
	assert.Equal(t, map[string]string{"reason": "feeling better"}, body)

	stored, ok := srv.Appointment("a1")
	require.True(t, ok)
	assert.Equal(t, api.StatusCancelled, stored.Status)
	assert.Equal(t, "feeling better", stored.CancellationReason)
}

func TestSubmit_ServerErrorKeepsDialogOpen(t *testing.T) {
	srv, f := setup(t)
	srv.FailNext(http.MethodPost, "/appointments/a1/cancel", http.StatusBadRequest, "Cannot cancel less than 24h before")
	f.Open(api.Appointment{ID: "a1"})
	f.SetReason("travel")

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	v := f.View()
	assert.True(t, v.Open)
	assert.Equal(t, "travel", v.Reason)
	assert.Equal(t, "Cannot cancel less than 24h before", v.Error)

	cmd, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.RefreshAppointments, cmd.Kind)
	assert.Empty(t, f.View().Error)
}

func TestSubmit_NetworkError(t *testing.T) {
	srv, f := setup(t)
	srv.Close()
	f.Open(api.Appointment{ID: "a1"})
	f.SetReason("travel")

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsNetwork(err))
	assert.Equal(t, feedback.DefaultMessages.Network, f.View().Error)
}

func TestSubmit_NotOpen(t *testing.T) {
	_, f := setup(t)
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
}
