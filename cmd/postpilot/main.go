// Package main is the postpilot memory-core CLI: schema migration, the
// periodic consolidation job, and audit-trail inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/postpilot/postpilot/internal/profile"
	"github.com/postpilot/postpilot/plugin/ai/consolidate"
	"github.com/postpilot/postpilot/plugin/ai/pattern"
	"github.com/postpilot/postpilot/store"
	"github.com/postpilot/postpilot/store/db/postgres"
	"github.com/postpilot/postpilot/store/db/sqlite"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "postpilot",
	Short: "Adaptive memory core for social content generation",
	Long: `postpilot runs the adaptive memory core: episodic event decay,
pattern mining, consolidation with an audit trail, outcome learning and
AI budget governance. Configuration comes from POSTPILOT_* environment
variables or the matching flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the memory-core schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		slog.Info("schema up to date")
		return nil
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run the consolidation job",
	Long: `Mines pattern candidates from recent episodic memory, merges them
into semantic patterns, promotes strong patterns to strategies and records
every action in the audit trail. With --org it runs one organization;
without, every organization active in the last 30 days.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := loadProfile()
		if err != nil {
			return err
		}
		pipeline := consolidate.NewPipeline(s, pattern.NewDetector(s, nil), &consolidate.Config{
			PromotionThreshold:   p.PromotionThreshold,
			MinSampleForStrategy: p.MinSampleForStrategy,
		}, slog.Default())

		// Command-local flags are read from the command itself; binding them
		// into viper would collide with the audit command's org flag.
		orgID, err := cmd.Flags().GetString("org")
		if err != nil {
			return err
		}
		var results []*consolidate.Result
		if orgID != "" {
			result, err := pipeline.Run(ctx, orgID)
			if err != nil {
				return err
			}
			results = append(results, result)
		} else {
			if results, err = pipeline.RunAll(ctx); err != nil {
				return err
			}
		}

		for _, r := range results {
			fmt.Printf("%s: detected=%d created=%d merged=%d promoted=%d\n",
				r.OrgID, r.Detected, r.Created, r.Merged, r.Promoted)
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the consolidation audit trail",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		orgID, err := cmd.Flags().GetString("org")
		if err != nil {
			return err
		}
		if orgID == "" {
			return fmt.Errorf("--org is required")
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		pipeline := consolidate.NewPipeline(s, pattern.NewDetector(s, nil), nil, slog.Default())
		find := &store.FindConsolidationAudit{OrgID: &orgID, Limit: limit}
		if action, err := cmd.Flags().GetString("action"); err != nil {
			return err
		} else if action != "" {
			find.ActionType = &action
		}
		if sinceDays, err := cmd.Flags().GetInt("since-days"); err != nil {
			return err
		} else if sinceDays > 0 {
			since := time.Now().AddDate(0, 0, -sinceDays)
			find.Since = &since
		}

		entries, err := pipeline.QueryAuditTrail(ctx, find)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

func loadProfile() (*profile.Profile, error) {
	p, err := profile.FromEnv(version)
	if err != nil {
		return nil, err
	}
	if mode := viper.GetString("mode"); mode != "" {
		p.Mode = mode
	}
	if driver := viper.GetString("driver"); driver != "" {
		p.Driver = driver
	}
	if dsn := viper.GetString("dsn"); dsn != "" {
		p.DSN = dsn
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func openStore() (*store.Store, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, err
	}

	var driver store.Driver
	switch p.Driver {
	case "postgres":
		driver, err = postgres.NewDB(p)
	default:
		driver, err = sqlite.NewDB(p)
	}
	if err != nil {
		return nil, err
	}
	return store.New(driver, p), nil
}

func init() {
	rootCmd.PersistentFlags().String("mode", "", `mode of the service ("prod"/"dev"/"demo")`)
	rootCmd.PersistentFlags().String("driver", "", `database driver ("sqlite"/"postgres")`)
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")
	consolidateCmd.Flags().String("org", "", "organization to consolidate (default: all active)")
	auditCmd.Flags().String("org", "", "organization whose audit trail to query")
	auditCmd.Flags().String("action", "", "filter by action type")
	auditCmd.Flags().Int("since-days", 0, "only entries from the last N days")
	auditCmd.Flags().Int("limit", 100, "maximum entries to return")

	// Only the shared persistent flags go through viper; binding the command
	// flag sets as well would let audit's org key shadow consolidate's.
	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))
	viper.SetEnvPrefix("postpilot")
	viper.AutomaticEnv()

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
