package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-portal/internal/account"
	"github.com/wolfman30/clinic-portal/internal/api"
)

func loginCmd(a *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.account.Login(cmd.Context(), email, password)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).message(user, "Signed in as %s (%s).", user.Name, user.Role)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.account.Resume(cmd.Context()); err != nil {
				a.logger.Warn("stored session unreadable", "error", err)
			}
			if err := a.account.Logout(cmd.Context()); err != nil {
				return a.fail(err)
			}
			return out(cmd).message(nil, "Signed out.")
		},
	}
}

func registerCmd(a *App) *cobra.Command {
	var f account.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a patient account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.account.Register(cmd.Context(), f)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).message(user, "Account created. Signed in as %s.", user.Name)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "full name")
	cmd.Flags().StringVar(&f.Email, "email", "", "email")
	cmd.Flags().StringVar(&f.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.Password, "password", "", "password (at least 8 characters)")
	cmd.Flags().StringVar(&f.ConfirmPassword, "confirm-password", "", "repeat the password")
	return cmd
}

func whoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.require(cmd)
			if err != nil {
				return err
			}
			return out(cmd).render(user, func(w io.Writer) { printUser(w, user) })
		},
	}
}

func printUser(w io.Writer, u api.User) {
	row(w, "ID", u.ID)
	row(w, "NAME", u.Name)
	row(w, "EMAIL", u.Email)
	row(w, "ROLE", u.Role)
	row(w, "PHONE", orDash(u.Phone))
	row(w, "DATE OF BIRTH", orDash(u.DateOfBirth))
	row(w, "ADDRESS", orDash(u.Address))
	if u.DoctorID != "" {
		row(w, "DOCTOR ID", u.DoctorID)
	}
}

func profileCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}
	var name, phone, dob, address string
	update := &cobra.Command{
		Use:   "update",
		Short: "Edit name, phone, date of birth or address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd); err != nil {
				return err
			}
			var req api.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("phone") {
				req.Phone = &phone
			}
			if flags.Changed("date-of-birth") {
				req.DateOfBirth = &dob
			}
			if flags.Changed("address") {
				req.Address = &address
			}
			user, err := a.account.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(user, func(w io.Writer) { printUser(w, *user) })
		},
	}
	update.Flags().StringVar(&name, "name", "", "full name")
	update.Flags().StringVar(&phone, "phone", "", "phone number")
	update.Flags().StringVar(&dob, "date-of-birth", "", "date of birth, YYYY-MM-DD")
	update.Flags().StringVar(&address, "address", "", "postal address")
	cmd.AddCommand(update)
	return cmd
}

func passwordCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Recover a forgotten password",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.ForgotPassword(cmd.Context(), email); err != nil {
				return a.fail(err)
			}
			return out(cmd).message(nil, "If the account exists, a reset link is on its way.")
		},
	}
	forgot.Flags().StringVar(&email, "email", "", "account email")

	var token, password, confirm string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.ResetPassword(cmd.Context(), token, password, confirm); err != nil {
				return a.fail(err)
			}
			return out(cmd).message(nil, "Password updated. You can sign in now.")
		},
	}
	reset.Flags().StringVar(&token, "token", "", "token from the reset email")
	reset.Flags().StringVar(&password, "password", "", "new password")
	reset.Flags().StringVar(&confirm, "confirm-password", "", "repeat the new password")

	cmd.AddCommand(forgot, reset)
	return cmd
}

func invitationCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitation",
		Short: "Look up or accept a staff invitation",
	}

	show := &cobra.Command{
		Use:   "show TOKEN",
		Short: "Show who an invitation is for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.account.Invitation(cmd.Context(), args[0])
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(inv, func(w io.Writer) {
				row(w, "EMAIL", inv.Email)
				row(w, "ROLE", inv.Role)
				row(w, "ORGANIZATION", orDash(inv.OrganizationName))
				row(w, "CLINIC", orDash(inv.ClinicName))
				row(w, "EXPIRES", orDash(inv.ExpiresAt))
			})
		},
	}

	var f account.AcceptForm
	accept := &cobra.Command{
		Use:   "accept",
		Short: "Create the invited account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.account.AcceptInvitation(cmd.Context(), f)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).message(user, "Welcome aboard. Signed in as %s (%s).", user.Name, user.Role)
		},
	}
	accept.Flags().StringVar(&f.Token, "token", "", "invitation token")
	accept.Flags().StringVar(&f.Name, "name", "", "full name")
	accept.Flags().StringVar(&f.Phone, "phone", "", "phone number")
	accept.Flags().StringVar(&f.Password, "password", "", "password (at least 8 characters)")
	accept.Flags().StringVar(&f.ConfirmPassword, "confirm-password", "", "repeat the password")

	cmd.AddCommand(show, accept)
	return cmd
}

func orgCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Register a clinic organization",
	}

	validate := &cobra.Command{
		Use:   "validate-cui CUI",
		Short: "Check a company identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cui, res, err := a.account.ValidateCUI(cmd.Context(), args[0])
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).render(res, func(w io.Writer) {
				row(w, "CUI", cui)
				row(w, "VALID", res.Valid)
				row(w, "COMPANY", orDash(res.CompanyName))
				row(w, "ADDRESS", orDash(res.Address))
				if res.Message != "" {
					row(w, "MESSAGE", res.Message)
				}
			})
		},
	}

	var f account.OrganizationForm
	register := &cobra.Command{
		Use:   "register",
		Short: "Create an organization and its administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := a.account.RegisterOrganization(cmd.Context(), f)
			if err != nil {
				return a.fail(err)
			}
			return out(cmd).message(org, "Organization %s registered (id %s).", org.Name, org.ID)
		},
	}
	register.Flags().StringVar(&f.CUI, "cui", "", "company identifier, RO prefix optional")
	register.Flags().StringVar(&f.Name, "name", "", "organization name")
	register.Flags().StringVar(&f.Address, "address", "", "registered address")
	register.Flags().StringVar(&f.Phone, "phone", "", "contact phone")
	register.Flags().StringVar(&f.AdminName, "admin-name", "", "administrator name")
	register.Flags().StringVar(&f.AdminEmail, "admin-email", "", "administrator email")
	register.Flags().StringVar(&f.AdminPassword, "admin-password", "", "administrator password")
	register.Flags().StringVar(&f.ConfirmPassword, "confirm-password", "", "repeat the password")

	cmd.AddCommand(validate, register)
	return cmd
}
