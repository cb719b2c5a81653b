package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/cancellation"
	"github.com/wolfman30/clinic-portal/internal/documents"
	"github.com/wolfman30/clinic-portal/internal/workflow"
)

func defaultFilter() appointments.Filter {
	return appointments.Filter{IncludeColleagues: true}
}

func appointmentsCmd(a *App) *cobra.Command {
	var (
		search   string
		status   string
		calendar bool
		filter   = defaultFilter()
	)
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			st, err := api.ParseStatus(status)
			if err != nil {
				return err
			}
			filter.Search = search
			filter.Status = st

			board := a.board(filter)
			if err := board.Refresh(cmd.Context()); err != nil {
				return a.fail(err)
			}
			view := board.View()
			p := out(cmd)
			if calendar {
				return p.render(view.Events, func(w io.Writer) {
					row(w, "ID", "START", "END", "TITLE", "STATUS", "TONE", "COLOR")
					for _, e := range view.Events {
						row(w, e.ID, e.Start, orDash(e.End), e.Title, e.Status, e.Tone, e.Style.Background)
					}
				})
			}
			staff := view.Viewer.Role.IsStaff()
			return p.render(view.Items, func(w io.Writer) {
				if len(view.Items) == 0 {
					if view.Total > 0 {
						fmt.Fprintf(w, "No appointments match the filters (%d hidden).\n", view.Total)
						return
					}
					fmt.Fprintln(w, "No appointments.")
					return
				}
				if staff {
					row(w, "ID", "DATE", "PATIENT", "DOCTOR", "STATUS", "OWN")
				} else {
					row(w, "ID", "DATE", "DOCTOR", "CLINIC", "STATUS")
				}
				for _, appt := range view.Items {
					if staff {
						row(w, appt.ID, appt.DateTime, orDash(appt.PatientName), orDash(appt.DoctorName), appt.Status, yesNo(appt.Own()))
						continue
					}
					row(w, appt.ID, appt.DateTime, orDash(appt.DoctorName), orDash(appt.ClinicName), appt.Status)
				}
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match patient or doctor name")
	cmd.Flags().StringVar(&status, "status", "", "SCHEDULED, CONFIRMED, COMPLETED, CANCELLED or all")
	cmd.Flags().BoolVar(&filter.IncludeColleagues, "include-colleagues", true, "staff only: include other doctors' patients")
	cmd.Flags().BoolVar(&calendar, "calendar", false, "print calendar events instead of rows")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cancelCmd(a *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel APPOINTMENT_ID",
		Short: "Cancel an appointment with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.require(cmd); err != nil {
				return err
			}
			appt, board, err := a.findAppointment(cmd, args[0])
			if err != nil {
				return err
			}
			flow := cancellation.NewFlow(a.api, a.logger, a.metrics, a.messages)
			flow.Open(appt)
			flow.SetReason(reason)
			next, err := flow.Submit(ctx)
			if err != nil {
				return a.fail(err)
			}
			d := a.dispatcher()
			board.Register(d)
			if err := d.Dispatch(ctx, next); err != nil {
				a.logger.Warn("appointment list refresh failed", "error", err)
			}
			updated, _ := board.Find(appt.ID)
			return out(cmd).message(updated, "Appointment %s cancelled.", appt.ID)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the appointment is cancelled (at least 3 characters)")
	return cmd
}

func historyCmd(a *App) *cobra.Command {
	var patientID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed and upcoming visits, prescriptions and records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			var (
				summary appointments.Summary
				err     error
			)
			if patientID != "" {
				summary, err = a.desk().PatientHistory(cmd.Context(), api.ID(patientID))
			} else {
				summary, err = appointments.NewHistory(a.api, a.session, a.logger).Load(cmd.Context(), "")
			}
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(summary, func(w io.Writer) { printSummary(w, summary) })
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "", "staff only: patient id")
	return cmd
}

func printSummary(w io.Writer, s appointments.Summary) {
	fmt.Fprintln(w, "UPCOMING")
	if len(s.Upcoming) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, appt := range s.Upcoming {
		row(w, " ", appt.DateTime, orDash(appt.DoctorName), appt.Status)
	}
	fmt.Fprintln(w, "COMPLETED")
	if len(s.Completed) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, appt := range s.Completed {
		row(w, " ", appt.DateTime, orDash(appt.DoctorName), appt.Status)
	}
	fmt.Fprintln(w, "PRESCRIPTIONS")
	if len(s.Prescriptions) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, p := range s.Prescriptions {
		names := make([]string, len(p.Medications))
		for i, m := range p.Medications {
			names[i] = m.Name + " " + m.Dosage
		}
		row(w, " ", orDash(p.CreatedAt), orDash(p.DoctorName), strings.Join(names, "; "))
	}
	fmt.Fprintln(w, "MEDICAL RECORDS")
	if len(s.MedicalRecords) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, r := range s.MedicalRecords {
		row(w, " ", orDash(r.CreatedAt), r.RecordType, r.Title)
	}
}

// parseMedication reads "name|dosage|frequency|duration". Trailing parts
// may be omitted.
func parseMedication(s string) api.Medication {
	parts := strings.SplitN(s, "|", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return api.Medication{
		Name:      strings.TrimSpace(parts[0]),
		Dosage:    strings.TrimSpace(parts[1]),
		Frequency: strings.TrimSpace(parts[2]),
		Duration:  strings.TrimSpace(parts[3]),
	}
}

func (a *App) documentDeps() documents.Deps {
	return documents.Deps{API: a.api, Logger: a.logger, Metrics: a.metrics, Messages: a.messages}
}

func prescribeCmd(a *App) *cobra.Command {
	var (
		meds  []string
		notes string
	)
	cmd := &cobra.Command{
		Use:   "prescribe APPOINTMENT_ID",
		Short: "Issue a prescription for an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.require(cmd, api.RoleDoctor)
			if err != nil {
				return err
			}
			appt, _, err := a.findAppointment(cmd, args[0])
			if err != nil {
				return err
			}
			form, err := documents.NewPrescriptionForm(a.documentDeps(), user.Role, appt)
			if err != nil {
				return err
			}
			for i, raw := range meds {
				if i > 0 {
					form.Add()
				}
				if err := form.Set(i, parseMedication(raw)); err != nil {
					return err
				}
			}
			form.SetNotes(notes)
			p, next, err := form.Submit(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			a.refreshHistory(cmd, next)
			return out(cmd).message(p, "Prescription %s issued with %d medication(s).", p.ID, len(p.Medications))
		},
	}
	cmd.Flags().StringArrayVar(&meds, "med", nil, `medication as "name|dosage|frequency|duration" (repeatable)`)
	cmd.Flags().StringVar(&notes, "notes", "", "notes for the patient")
	return cmd
}

func recordCmd(a *App) *cobra.Command {
	var kind, title, content string
	cmd := &cobra.Command{
		Use:   "record APPOINTMENT_ID",
		Short: "Write a medical record for an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.require(cmd, api.RoleDoctor)
			if err != nil {
				return err
			}
			appt, _, err := a.findAppointment(cmd, args[0])
			if err != nil {
				return err
			}
			form, err := documents.NewRecordForm(a.documentDeps(), user.Role, appt)
			if err != nil {
				return err
			}
			form.SetType(api.RecordType(kind))
			form.SetTitle(title)
			form.SetContent(content)
			rec, next, err := form.Submit(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			a.refreshHistory(cmd, next)
			return out(cmd).message(rec, "Medical record %s saved (%s).", rec.ID, rec.RecordType)
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "RECOMMENDATION, LETTER or NOTE")
	cmd.Flags().StringVar(&title, "title", "", "record title")
	cmd.Flags().StringVar(&content, "content", "", "record body")
	return cmd
}

// refreshHistory runs the follow-up a document form returns. A failure
// only leaves the summary stale, so it is logged.
func (a *App) refreshHistory(cmd *cobra.Command, next workflow.Command) {
	d := a.dispatcher()
	appointments.NewHistory(a.api, a.session, a.logger).Register(d)
	if err := d.Dispatch(cmd.Context(), next); err != nil {
		a.logger.Warn("history refresh failed", "patient_id", next.PatientID, "error", err)
	}
}
