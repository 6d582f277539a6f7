package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/labelpadega/backend/config"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
	"github.com/labelpadega/backend/internal/infrastructure/regulation"
)

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the default regulation datasets where they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.resolveDataDir()
			if err != nil {
				return err
			}
			created, err := regulation.EnsureSeed(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintf(out, "Datasets already present in %s.\n", dir)
				return nil
			}
			for _, path := range created {
				fmt.Fprintf(out, "Created %s\n", path)
			}
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, closeCache, err := cache.Open(ctx, cache.Options{
				Type:        cfg.Cache.Type,
				Dir:         cfg.Cache.Dir,
				RedisURL:    cfg.Cache.RedisURL,
				RedisPrefix: cfg.Cache.RedisPrefix,
			}, nil)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer func() { _ = closeCache() }()

			if err := repo.Clear(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%s).\n", cfg.Cache.Type)
			return nil
		},
	})
	return cacheCmd
}

func newCheckCmd(opts *options) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Screen ingredient text against the regulation datasets",
	}

	var region string
	compliance := &cobra.Command{
		Use:   "compliance <ingredients>",
		Short: "Report compliance of ingredients for a region",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.database()
			if err != nil {
				return err
			}
			result := db.CheckCompliance(strings.Join(args, " "), region)
			if !result.Compliant {
				opts.exitCode = ExitConcerns
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if result.Compliant {
				fmt.Fprintf(out, "Compliant for %s.\n", result.Region)
				return nil
			}
			fmt.Fprintf(out, "Not compliant for %s:\n", result.Region)
			for _, issue := range result.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return nil
		},
	}
	compliance.Flags().StringVar(&region, "region", "", "target market, e.g. India or European Union")

	ingredients := &cobra.Command{
		Use:   "ingredients <ingredients>",
		Short: "List banned ingredients found in the text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.database()
			if err != nil {
				return err
			}
			matches := db.CheckBannedIngredients(strings.Join(args, " "))
			if len(matches) > 0 {
				opts.exitCode = ExitConcerns
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), matches)
			}

			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No banned ingredients found.")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%s: banned in %s (%s)\n", m.Name, strings.Join(m.BannedIn, ", "), m.Reason)
				if len(m.Alternatives) > 0 {
					fmt.Fprintf(out, "  alternatives: %s\n", strings.Join(m.Alternatives, ", "))
				}
			}
			return nil
		},
	}

	checkCmd.AddCommand(compliance, ingredients)
	return checkCmd
}

func newRecallsCmd(opts *options) *cobra.Command {
	var brand string
	cmd := &cobra.Command{
		Use:   "recalls <product name>",
		Short: "List recalls matching a product or brand name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.database()
			if err != nil {
				return err
			}
			recalls := db.CheckRecalls(strings.Join(args, " "), brand)
			if len(recalls) > 0 {
				opts.exitCode = ExitConcerns
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), recalls)
			}

			out := cmd.OutOrStdout()
			if len(recalls) == 0 {
				fmt.Fprintln(out, "No recalls found.")
				return nil
			}
			for _, r := range recalls {
				fmt.Fprintf(out, "%s  %s: %s\n", r.Date.Format("2006-01-02"), r.ProductName, r.Reason)
				if len(r.BatchNumbers) > 0 {
					fmt.Fprintf(out, "  batches: %s\n", strings.Join(r.BatchNumbers, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "brand name to match as well")
	return cmd
}

func (o *options) database() (*regulation.Database, error) {
	dir, err := o.resolveDataDir()
	if err != nil {
		return nil, err
	}
	return regulation.Load(dir, nil), nil
}
