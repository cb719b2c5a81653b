package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/booking"
	"github.com/wolfman30/clinic-portal/internal/feedback"
)

func clinicsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clinics",
		Short: "List clinics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			clinics, err := a.api.ListClinics(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(clinics, func(w io.Writer) {
				row(w, "ID", "NAME", "CITY", "ADDRESS")
				for _, c := range clinics {
					row(w, c.ID, c.Name, orDash(c.City), orDash(c.Address))
				}
			})
		},
	}
}

func doctorsCmd(a *App) *cobra.Command {
	var clinicID string
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "List doctors, optionally for one clinic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			doctors, err := a.api.ListDoctors(cmd.Context(), api.ID(clinicID))
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(doctors, func(w io.Writer) { printDoctors(w, doctors) })
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	return cmd
}

func printDoctors(w io.Writer, doctors []api.Doctor) {
	row(w, "ID", "NAME", "SPECIALTY", "CLINIC")
	for _, d := range doctors {
		row(w, d.ID, d.Name, orDash(d.Specialty), orDash(string(d.ClinicID)))
	}
}

func slotsCmd(a *App) *cobra.Command {
	var doctorID, date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free slots for a doctor on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			if doctorID == "" {
				return feedback.Invalid("doctor", "Choose a doctor.")
			}
			day, err := a.parseDate(date)
			if err != nil {
				return err
			}
			slots, err := a.api.DoctorAvailability(cmd.Context(), api.ID(doctorID), day)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(slots, func(w io.Writer) { printSlots(w, slots) })
		},
	}
	cmd.Flags().StringVar(&doctorID, "doctor", "", "doctor id")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD")
	return cmd
}

func printSlots(w io.Writer, slots []api.Slot) {
	if len(slots) == 0 {
		fmt.Fprintln(w, "No slots available for this date.")
		return
	}
	times := make([]string, len(slots))
	for i, s := range slots {
		times[i] = s.Time
	}
	fmt.Fprintln(w, strings.Join(times, "  "))
}

func bookCmd(a *App) *cobra.Command {
	var clinicID, doctorID, date, slot, notes string
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment",
		Long:  "Book an appointment. Without --slot the free slots are listed and nothing is booked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.require(cmd, api.RolePatient); err != nil {
				return err
			}
			day, err := a.parseDate(date)
			if err != nil {
				return err
			}

			ctrl := booking.NewController(a.api, booking.Options{
				Clock:    a.clock,
				Location: a.loc,
				Logger:   a.logger,
				Metrics:  a.metrics,
				Messages: a.messages,
			})
			d := a.dispatcher()
			ctrl.Register(d)
			board := a.board(defaultFilter())
			board.Register(d)

			if clinicID == "" {
				return feedback.Invalid("clinic", "Choose a clinic.")
			}
			if !ctrl.Selectable(day) {
				return feedback.Invalid("date", "Choose today or a later date.")
			}
			ctrl.Open()
			next, err := ctrl.SelectClinic(api.ID(clinicID))
			if err != nil {
				return err
			}
			if err := d.Dispatch(ctx, next); err != nil {
				return a.fail(err)
			}
			if !offers(ctrl.View().Doctors, api.ID(doctorID)) {
				return feedback.Invalid("doctor", fmt.Sprintf("Doctor %s does not work at clinic %s.", doctorID, clinicID))
			}
			if next, err = ctrl.SelectDate(day); err != nil {
				return err
			}
			if err := d.Dispatch(ctx, next); err != nil {
				return a.fail(err)
			}
			if next, err = ctrl.SelectDoctor(api.ID(doctorID)); err != nil {
				return err
			}
			if err := d.Dispatch(ctx, next); err != nil {
				return a.fail(err)
			}

			view := ctrl.View()
			if view.NoSlots() || slot == "" {
				return out(cmd).render(view.Slots, func(w io.Writer) { printSlots(w, view.Slots) })
			}
			if err := ctrl.ChooseSlot(slot); err != nil {
				return err
			}
			ctrl.SetNotes(notes)
			next, err = ctrl.Submit(ctx)
			if err != nil {
				return a.fail(err)
			}
			booked := ctrl.View().Booked
			if err := d.Dispatch(ctx, next); err != nil {
				a.logger.Warn("appointment list refresh failed", "error", err)
			}
			return out(cmd).message(booked, "Booked appointment %s with %s on %s (%s).",
				booked.ID, booked.DoctorName, booked.DateTime, booked.Status)
		},
	}
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	cmd.Flags().StringVar(&doctorID, "doctor", "", "doctor id")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&slot, "slot", "", "slot time, e.g. 09:00")
	cmd.Flags().StringVar(&notes, "notes", "", "note for the doctor")
	return cmd
}

func offers(doctors []api.Doctor, id api.ID) bool {
	for _, d := range doctors {
		if d.ID == id {
			return true
		}
	}
	return false
}
