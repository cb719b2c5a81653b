package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/staff"
)

func appointmentCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointment",
		Short: "Confirm, reject or complete an appointment (staff)",
	}
	for _, action := range []staff.Action{staff.Confirm, staff.Reject, staff.Complete} {
		cmd.AddCommand(decisionCmd(a, action))
	}
	return cmd
}

func decisionCmd(a *App, action staff.Action) *cobra.Command {
	target, _, _ := action.Target()
	return &cobra.Command{
		Use:   string(action) + " APPOINTMENT_ID",
		Short: "Move the appointment to " + string(target),
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
			_, next, err := a.desk().Decide(ctx, action, appt)
			if err != nil {
				return a.fail(err)
			}
			// The new status is read back from the server, not assumed.
			d := a.dispatcher()
			board.Register(d)
			if err := d.Dispatch(ctx, next); err != nil {
				return a.fail(err)
			}
			updated, _ := board.Find(appt.ID)
			return out(cmd).message(updated, "Appointment %s is now %s.", updated.ID, updated.Status)
		},
	}
}

func availabilityCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Manage a doctor's weekly schedule",
	}
	var (
		doctorID string
		raw      []string
	)
	set := &cobra.Command{
		Use:     "set",
		Short:   "Replace the weekly schedule",
		Example: `  clinicctl availability set --window "mon 09:00-13:00" --window "thu 14:00-18:00/20"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.require(cmd)
			if err != nil {
				return err
			}
			id := api.ID(doctorID)
			if id == "" {
				id = user.DoctorID
			}
			if id == "" {
				return feedback.Invalid("doctor", "Choose a doctor.")
			}
			windows := make([]api.AvailabilityWindow, 0, len(raw))
			for _, s := range raw {
				w, err := staff.ParseWindow(s)
				if err != nil {
					return err
				}
				windows = append(windows, w)
			}
			if err := a.desk().SaveAvailability(cmd.Context(), id, windows); err != nil {
				return a.fail(err)
			}
			staff.SortWindows(windows)
			return out(cmd).render(windows, func(w io.Writer) {
				row(w, "DAY", "START", "END", "SLOT")
				for _, win := range windows {
					slot := "-"
					if win.SlotMinutes > 0 {
						slot = formatMinutes(win.SlotMinutes)
					}
					row(w, staff.Weekday(win.DayOfWeek), win.StartTime, win.EndTime, slot)
				}
			})
		},
	}
	set.Flags().StringVar(&doctorID, "doctor", "", "doctor id (defaults to your own)")
	set.Flags().StringArrayVar(&raw, "window", nil, `"<day> HH:MM-HH:MM[/slot minutes]" (repeatable)`)
	cmd.AddCommand(set)
	return cmd
}

func formatMinutes(m int) string {
	return strconv.Itoa(m) + "m"
}

func doctorCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage a doctor profile",
	}
	var doctorID, specialty, phone, bio string
	update := &cobra.Command{
		Use:   "update",
		Short: "Edit specialty, phone or bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.require(cmd)
			if err != nil {
				return err
			}
			id := api.ID(doctorID)
			if id == "" {
				id = user.DoctorID
			}
			var req api.DoctorUpdate
			flags := cmd.Flags()
			if flags.Changed("specialty") {
				req.Specialty = &specialty
			}
			if flags.Changed("phone") {
				req.Phone = &phone
			}
			if flags.Changed("bio") {
				req.Bio = &bio
			}
			doc, err := a.desk().UpdateProfile(cmd.Context(), id, req)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(doc, func(w io.Writer) {
				row(w, "ID", doc.ID)
				row(w, "NAME", doc.Name)
				row(w, "SPECIALTY", orDash(doc.Specialty))
				row(w, "PHONE", orDash(doc.Phone))
				row(w, "BIO", orDash(doc.Bio))
			})
		},
	}
	update.Flags().StringVar(&doctorID, "doctor", "", "doctor id (defaults to your own)")
	update.Flags().StringVar(&specialty, "specialty", "", "medical specialty")
	update.Flags().StringVar(&phone, "phone", "", "contact phone")
	update.Flags().StringVar(&bio, "bio", "", "short biography")
	cmd.AddCommand(update)
	return cmd
}

func dashboardCmd(a *App) *cobra.Command {
	var clinicID string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show a clinic's appointment and staffing numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			if clinicID == "" {
				return feedback.Invalid("clinic", "Choose a clinic.")
			}
			dash, err := a.desk().Dashboard(cmd.Context(), api.ID(clinicID))
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(dash, func(w io.Writer) {
				row(w, "CLINIC", dash.Clinic.Name)
				row(w, "APPOINTMENTS", dash.Stats.TotalAppointments)
				row(w, "TODAY", dash.Stats.TodayAppointments)
				row(w, "SCHEDULED", dash.Stats.Scheduled)
				row(w, "CONFIRMED", dash.Stats.Confirmed)
				row(w, "COMPLETED", dash.Stats.Completed)
				row(w, "CANCELLED", dash.Stats.Cancelled)
				row(w, "DOCTORS", dash.Stats.Doctors)
				row(w, "PATIENTS", dash.Stats.Patients)
			})
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	return cmd
}
