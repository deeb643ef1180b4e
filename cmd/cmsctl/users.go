package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spgsite/cms-api/seed"
	"github.com/spgsite/cms-api/store"

	"github.com/spf13/cobra"
)

// newUserCmd builds the "user" commands
func newUserCmd(a *app) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users which can sign in",
	}

	var email, password string

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user with an email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, created, err := seed.AddUser(a.ctx, a.store, email, password)
			if err != nil {
				return err
			}

			if !created {
				return fmt.Errorf("user %s already exists", user.Email)
			}

			cmd.Printf("created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "email used to sign in")
	addCmd.Flags().StringVar(&password, "password", "", "password used to sign in")
	addCmd.MarkFlagRequired("email")
	addCmd.MarkFlagRequired("password")

	userCmd.AddCommand(addCmd)
	return userCmd
}

// newAdminCmd builds the "admin" commands
func newAdminCmd(a *app) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admins allow-list",
	}

	// {{{1 grant
	var email, password, username string

	grantCmd := &cobra.Command{
		Use:   "grant",
		Short: "Give a user admin access, creating the user if a password is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			createdUser, createdAdmin, err := seed.GrantAdmin(a.ctx, a.store, email, password, username)
			if err != nil {
				return err
			}

			if createdUser {
				cmd.Printf("created user %s\n", store.NormalizeEmail(email))
			}

			if createdAdmin {
				cmd.Printf("granted admin access to %s\n", store.NormalizeEmail(email))
			} else {
				cmd.Printf("%s already is an admin\n", store.NormalizeEmail(email))
			}

			return nil
		},
	}
	grantCmd.Flags().StringVar(&email, "email", "", "email of the user")
	grantCmd.Flags().StringVar(&password, "password", "", "password, only used if the user does not exist")
	grantCmd.Flags().StringVar(&username, "username", "", "name shown in the admin panel, defaults to the email's local part")
	grantCmd.MarkFlagRequired("email")

	// {{{1 revoke
	var revokeEmail string

	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Remove a user's admin access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.store.GetUserByEmail(a.ctx, store.NormalizeEmail(revokeEmail))
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("user %s does not exist", revokeEmail)
			} else if err != nil {
				return err
			}

			err = a.store.DeleteAdmin(a.ctx, user.ID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%s is not an admin", user.Email)
			} else if err != nil {
				return err
			}

			cmd.Printf("revoked admin access of %s\n", user.Email)
			return nil
		},
	}
	revokeCmd.Flags().StringVar(&revokeEmail, "email", "", "email of the user")
	revokeCmd.MarkFlagRequired("email")

	// {{{1 list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admins, err := a.store.ListAdmins(a.ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tSINCE")

			for _, admin := range admins {
				email := "?"
				if user, err := a.store.GetUser(a.ctx, admin.ID); err == nil {
					email = user.Email
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", admin.ID, admin.Username, email,
					admin.CreatedAt.Format("2006-01-02"))
			}

			return w.Flush()
		},
	}

	adminCmd.AddCommand(grantCmd, revokeCmd, listCmd)
	return adminCmd
}
