package main

import (
	"fmt"

	"customer-service/internal/model"
	"customer-service/pkg/client"
	"customer-service/pkg/customersync"
	"customer-service/pkg/jwtutil"

	"github.com/spf13/cobra"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "customerctl",
		Short:         "Manage the customers of your active organization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("url", "http://localhost:8080", "customers API base URL")
	flags.String("token", "", "bearer token issued by the identity provider")
	flags.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	flags.String("org", "", "organization id; sent as a header without --token, must match the token's otherwise")
	flags.String("user", "", "user id sent as a header when no --token is given")
	for _, name := range []string{"url", "token", "timeout", "org", "user"} {
		mustBind(a, name, root)
	}

	root.AddCommand(
		newListCommand(a),
		newCreateCommand(a),
		newUpdateCommand(a),
		newDeleteCommand(a),
		newDashboardCommand(a),
		newTokenCommand(a),
	)
	return root
}

func mustBind(a *app, name string, cmd *cobra.Command) {
	if err := a.v.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List customers, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := a.mount(cmd.Context())
			if err != nil {
				return err
			}
			renderCustomers(a.out, ctl.Snapshot().Customers, a.now())
			return nil
		},
	}
}

type formFlags struct {
	name, email, phone, notes string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

// apply overrides only the fields whose flags were given
func (f *formFlags) apply(cmd *cobra.Command, form customersync.Form) customersync.Form {
	if cmd.Flags().Changed("name") {
		form.Name = f.name
	}
	if cmd.Flags().Changed("email") {
		form.Email = f.email
	}
	if cmd.Flags().Changed("phone") {
		form.Phone = f.phone
	}
	if cmd.Flags().Changed("notes") {
		form.Notes = f.notes
	}
	return form
}

func newCreateCommand(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := a.mount(cmd.Context())
			if err != nil {
				return err
			}
			ctl.BeginCreate()
			if err := ctl.SetForm(f.apply(cmd, customersync.Form{})); err != nil {
				return err
			}
			if err := ctl.Submit(cmd.Context()); err != nil {
				return err
			}
			renderCustomers(a.out, ctl.Snapshot().Customers, a.now())
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := a.mount(cmd.Context())
			if err != nil {
				return err
			}
			if err := ctl.BeginEdit(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			form, _ := ctl.Form()
			if err := ctl.SetForm(f.apply(cmd, form)); err != nil {
				return err
			}
			if err := ctl.Submit(cmd.Context()); err != nil {
				return err
			}
			renderCustomers(a.out, ctl.Snapshot().Customers, a.now())
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := a.mount(cmd.Context())
			if err != nil {
				return err
			}
			sent, err := ctl.Delete(cmd.Context(), args[0], func(c model.Customer) bool {
				return yes || a.confirm(fmt.Sprintf("Delete customer %q?", c.Name))
			})
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if !sent {
				fmt.Fprintln(a.out, "Cancelled.")
				return nil
			}
			renderCustomers(a.out, ctl.Snapshot().Customers, a.now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show customer KPIs, signups by day and mocked metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := a.mount(cmd.Context())
			if err != nil {
				return err
			}
			renderOverview(a.out, ctl.Overview(a.now(), a.rng))
			return nil
		},
	}
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		user, email, org, orgName, role, key string
		hours                                int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development identity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			if key == "" {
				key = a.v.GetString("signing-key")
			}
			if key == "" {
				return fmt.Errorf("--signing-key or %s_SIGNING_KEY is required", envPrefix)
			}
			tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: key, ExpirationHours: hours})
			token, err := tokens.GenerateTokenWithOrg(user, email, org, orgName, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&org, "org", "", "active organization id, empty for none")
	cmd.Flags().StringVar(&orgName, "org-name", "", "organization display name")
	cmd.Flags().StringVar(&role, "role", "member", "role within the organization")
	cmd.Flags().StringVar(&key, "signing-key", "", "HS256 signing key shared with the server")
	cmd.Flags().IntVar(&hours, "expires-hours", 24, "token lifetime in hours")
	return cmd
}
