package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-portal/internal/tenancy"
)

type printerKey struct{}

// NewRootCommand builds the clinicctl command tree over a.
func NewRootCommand(a *App) *cobra.Command {
	var (
		output       string
		org          string
		location     string
		printMetrics bool
	)
	root := &cobra.Command{
		Use:          "clinicctl",
		Short:        "Book and manage clinic appointments",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p := printer{w: cmd.OutOrStdout(), format: strings.ToLower(output)}
			if err := p.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = tenancy.WithOrgID(ctx, org)
			ctx = tenancy.WithLocationID(ctx, location)
			ctx = context.WithValue(ctx, printerKey{}, p)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !printMetrics {
				return nil
			}
			return a.dumpMetrics(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	root.PersistentFlags().StringVar(&org, "org", a.cfg.OrgID, "organization id sent as "+tenancy.OrgHeader)
	root.PersistentFlags().StringVar(&location, "location", a.cfg.LocationID, "clinic location id sent as "+tenancy.LocationHeader)
	root.PersistentFlags().BoolVar(&printMetrics, "metrics", false, "print client metrics to stderr after the command")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		registerCmd(a),
		whoamiCmd(a),
		profileCmd(a),
		passwordCmd(a),
		invitationCmd(a),
		orgCmd(a),
		clinicsCmd(a),
		doctorsCmd(a),
		slotsCmd(a),
		bookCmd(a),
		appointmentsCmd(a),
		cancelCmd(a),
		historyCmd(a),
		prescribeCmd(a),
		recordCmd(a),
		appointmentCmd(a),
		availabilityCmd(a),
		doctorCmd(a),
		dashboardCmd(a),
	)
	return root
}

func out(cmd *cobra.Command) printer {
	if p, ok := cmd.Context().Value(printerKey{}).(printer); ok {
		return p
	}
	return printer{w: cmd.OutOrStdout(), format: outputTable}
}

// dumpMetrics writes every counter and histogram in the registry.
func (a *App) dumpMetrics(w io.Writer) error {
	if a.registry == nil {
		fmt.Fprintln(w, "metrics disabled")
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	p := printer{w: w, format: outputTable}
	return p.render(nil, func(tw io.Writer) {
		row(tw, "METRIC", "LABELS", "VALUE")
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				row(tw, mf.GetName(), labelString(m.GetLabel()), metricValue(mf.GetType(), m))
			}
		}
	})
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func metricValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%.3f", h.GetSampleCount(), h.GetSampleSum())
	}
	return "-"
}
