package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/sessionauth/internal/session"
)

const defaultMigrationTimeout = 5 * time.Minute

type envKey struct{}

func envFrom(cmd *cobra.Command) *adminEnv {
	env, _ := cmd.Context().Value(envKey{}).(*adminEnv)
	return env
}

func writeln(cmd *cobra.Command, a ...any) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), a...)
	return err
}

func writef(cmd *cobra.Command, format string, a ...any) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format, a...)
	return err
}

func newRootCmd(open envOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "sessionauth-admin",
		Short:         "Administer sessionauth sessions and schema",
		Long:          `Operational commands for the session store configured by AUTH_TYPE and SESSION_DB_BACKEND.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open environment: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if env := envFrom(cmd); env != nil && env.Close != nil {
				return env.Close()
			}
			return nil
		},
	}

	root.AddCommand(
		migrateCmd(),
		seedCmd(),
		createSessionCmd(),
		resolveCmd(),
		destroySessionCmd(),
		revokeUserCmd(),
		purgeExpiredCmd(),
	)
	return root
}

func migrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := envFrom(cmd)
			if env.Migrate == nil {
				return errors.New("migrations need a database")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultMigrationTimeout)
			defer cancel()
			versions, err := env.Migrate(ctx, dryRun)
			if err != nil {
				return err
			}
			verb := "applied"
			if dryRun {
				verb = "pending"
			}
			for _, v := range versions {
				if err := writef(cmd, "%s %s\n", verb, v); err != nil {
					return err
				}
			}
			return writef(cmd, "%d migrations %s\n", len(versions), verb)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed development users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := envFrom(cmd)
			if env.Seed == nil {
				return errors.New("seeding needs a database")
			}
			if err := env.Seed(cmd.Context()); err != nil {
				return err
			}
			return writeln(cmd, "development users seeded")
		},
	}
}

func createSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-session <user-id>",
		Short: "Issue a session for a user and print its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := envFrom(cmd).Sessions.CreateSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeln(cmd, id)
		},
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <session-id>",
		Short: "Print the user ID a session belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := envFrom(cmd).Sessions.UserIDForSessionID(cmd.Context(), args[0])
			if session.IsAbsent(err) {
				return fmt.Errorf("session %s: %w", args[0], session.ErrNotFound)
			}
			if err != nil {
				return err
			}
			return writeln(cmd, uid)
		},
	}
}

func destroySessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy-session <session-id>",
		Short: "Destroy a single session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := envFrom(cmd).Sessions.DestroySessionID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("session %s: %w", args[0], session.ErrNotFound)
			}
			return writeln(cmd, "destroyed")
		},
	}
}

func revokeUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-user <user-id>",
		Short: "Destroy every session of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := envFrom(cmd).Sessions.DestroyUserSessions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writef(cmd, "revoked %d session(s)\n", n)
		},
	}
}

func purgeExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete sessions whose lifetime has elapsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exp, ok := envFrom(cmd).Sessions.Store().(*session.ExpiringStore)
			if !ok {
				return fmt.Errorf("purge-expired: %w", session.ErrUnsupported)
			}
			n, err := exp.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			return writef(cmd, "purged %d session(s)\n", n)
		},
	}
}
