package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/models"
)

type userStore interface {
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) (string, error)
	RegisterUser(ctx context.Context, account *models.Account, u *models.User) error
	activity.AuditWriter
}

type adminInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Account approval and admin bootstrap",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newApprovalCommand("approve", "Approve a pending account", true))
	cmd.AddCommand(newApprovalCommand("reject", "Revoke approval of an account", false))
	cmd.AddCommand(newCreateAdminCommand())
	return cmd
}

func newApprovalCommand(use, short string, approved bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			ctx := commandContext(cmd)
			st, _, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			return setApproval(ctx, st, id, approved, cmd.OutOrStdout())
		},
	}
}

func newCreateAdminCommand() *cobra.Command {
	var in adminInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an approved admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			st, _, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			_, err = createAdmin(ctx, st, in, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Admin password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "Admin first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Admin last name")
	for _, name := range []string{"email", "password", "first-name", "last-name"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func setApproval(ctx context.Context, st userStore, id uuid.UUID, approved bool, out io.Writer) error {
	kind, err := st.SetApproval(ctx, id, approved)
	if err != nil {
		return fmt.Errorf("set approval for %s: %w", id, err)
	}

	action, verb := activity.UserRejected, "rejected"
	if approved {
		action, verb = activity.UserApproved, "approved"
	}
	record(ctx, st, activity.Event{Action: action, TargetType: kind, TargetID: id.String()})

	fmt.Fprintf(out, "%s %s %s\n", verb, kind, id)
	return nil
}

func createAdmin(ctx context.Context, st userStore, in adminInput, out io.Writer) (*models.User, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, errors.New("first and last name are required")
	}
	account, err := auth.HashAccount(in.Email, in.Password, 0)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      account.Email,
		Role:       models.RoleAdmin,
		IsApproved: true,
	}
	if err := st.RegisterUser(ctx, account, u); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	record(ctx, st, activity.Event{
		Action:     activity.AccountRegistered,
		TargetType: models.KindOrganization,
		TargetID:   u.ID.String(),
		Metadata:   map[string]any{"role": u.Role, "source": "vvctl"},
	})

	fmt.Fprintf(out, "created admin %s (%s)\n", u.Email, u.ID)
	return u, nil
}

func record(ctx context.Context, audit activity.AuditWriter, e activity.Event) {
	recorder, err := activity.NewRecorder(nil, audit, cliLogger())
	if err != nil {
		return
	}
	recorder.Log(ctx, e)
}
