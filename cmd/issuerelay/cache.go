package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/charlesng35/issuerelay/internal/bot"
	"github.com/charlesng35/issuerelay/internal/cache"
	"github.com/charlesng35/issuerelay/internal/database"
)

// The memory tier is empty in a fresh process, so every cache subcommand operates on
// the persistent store directly.
func newCacheCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the persistent issue cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show the number of live cached issues",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), opts, func(ctx context.Context, store *cache.DatabaseStore) error {
					live, err := store.CountLive(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "live entries: %d\n", live)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached issue",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), opts, func(ctx context.Context, store *cache.DatabaseStore) error {
					if err := store.DeleteAll(ctx); err != nil {
						return err
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Remove expired cached issues",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd.Context(), opts, func(ctx context.Context, store *cache.DatabaseStore) error {
					removed, err := store.PurgeExpired(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "delete OWNER/REPO#N",
			Short: "Remove one cached issue",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ref, err := bot.ParseReference(args[0])
				if err != nil {
					return err
				}
				ref = ref.Normalize()
				return withStore(cmd.Context(), opts, func(ctx context.Context, store *cache.DatabaseStore) error {
					if err := store.Delete(ctx, ref.Owner, ref.Repo, ref.Number); err != nil {
						return err
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", ref)
					return err
				})
			},
		},
	)
	return cmd
}

func withStore(ctx context.Context, opts *options, fn func(context.Context, *cache.DatabaseStore) error) (err error) {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	defer syncLogger()

	db, err := database.OpenAndMigrate(cfg.Database.ToDatabaseConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, database.Close(db))
	}()

	store, err := cache.NewDatabaseStore(db)
	if err != nil {
		return err
	}
	return fn(ctx, store)
}
