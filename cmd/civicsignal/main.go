package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkowalchik/civicsignal/internal/config"
	"github.com/mkowalchik/civicsignal/internal/cycle"
	"github.com/mkowalchik/civicsignal/internal/digest"
	"github.com/mkowalchik/civicsignal/internal/dispatch"
	"github.com/mkowalchik/civicsignal/internal/llm"
	"github.com/mkowalchik/civicsignal/internal/mail"
	"github.com/mkowalchik/civicsignal/internal/server"
	"github.com/mkowalchik/civicsignal/internal/store"
	"github.com/mkowalchik/civicsignal/internal/sweep"
	"github.com/mkowalchik/civicsignal/internal/watch"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "civicsignal",
	Short:   "Municipal portal monitoring and subscriber alerts",
	Long:    "CivicSignal watches publication portals for new board content, scores it against subscriber interest profiles, and dispatches deduplicated alerts.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(orgsCmd)
	rootCmd.AddCommand(subscribersCmd)
	rootCmd.AddCommand(profilesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("civicsignal", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/civicsignal/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the inference provider, mail transport, and pipeline thresholds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Monitoring:")
		fmt.Printf("  Organizations: %d\n", stats.Organizations)
		fmt.Printf("  Boards: %d\n", stats.Boards)
		fmt.Printf("  Subscribers: %d\n", stats.Subscribers)
		fmt.Printf("  Active profiles: %d\n", stats.ActiveProfiles)
		fmt.Println("\nSignals:")
		fmt.Printf("  Total: %d\n", stats.TotalSignals)
		fmt.Printf("  Unread: %d\n", stats.UnreadSignals)
		fmt.Printf("  Alerts sent: %d\n", stats.SentAlerts)
		fmt.Println("\nArchive:")
		fmt.Printf("  Meeting records: %d\n", stats.MeetingRecords)
		fmt.Printf("  Digests: %d\n", stats.Digests)
		return nil
	},
}

// --- run / scan / dispatch / sweep ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full cycle: scan -> dispatch -> sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c := cycle.New(cfg, db, newProvider(), newMailer())
		result := c.Run(context.Background())

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan boards for new content without dispatching",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c := cycle.New(cfg, db, newProvider(), newMailer())
		r := c.Scan(context.Background())

		fmt.Printf("Boards checked: %d\n", r.BoardsChecked)
		fmt.Printf("  Changed: %d\n", r.BoardsProcessed)
		fmt.Printf("  Unchanged: %d\n", r.BoardsUnchanged)
		fmt.Printf("  Not visible: %d\n", r.BoardsSkipped)
		fmt.Printf("Signals created: %d (noise filtered: %d)\n", r.SignalsCreated, r.NoiseFiltered)
		fmt.Printf("Errors: %d\n", r.Errors)
		return nil
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Send alerts for unread high-score signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		d := dispatch.New(db, newMailer(), cfg.Mail.From,
			cfg.Pipeline.DispatchThreshold, cfg.Pipeline.DedupPrefixLen)
		r, err := d.Run(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Sent: %d, deduped: %d, skipped: %d, failed: %d\n",
			r.Sent, r.Deduped, r.SkippedSubscriber, r.Failed)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete archived signals older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s := sweep.New(db, time.Duration(cfg.Pipeline.RetentionDays)*24*time.Hour,
			cfg.Pipeline.SweepBatchSize)
		r, err := s.Run(time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d archived signals in %d batches\n", r.Deleted, r.Batches)
		return nil
	},
}

// --- digest ---

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Generate the weekly digest from the trailing signal window",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		g := digest.New(db, newProvider(), newMailer(), cfg)
		d, err := g.Run(context.Background(), time.Now())
		if err != nil {
			return err
		}
		if d == nil {
			fmt.Println("No signals this week, digest skipped.")
			return nil
		}

		fmt.Printf("Digest stored: %s (%s)\n", d.ID, d.Title)
		return nil
	},
}

// --- serve ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting dashboard at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run the dashboard on")
}

// --- watch ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run continuously: cycle on a cadence, digest weekly",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := newProvider()
		mailer := newMailer()

		w := watch.New(time.Duration(cfg.Pipeline.CycleHours)*time.Hour, watch.Jobs{
			Cycle: func(ctx context.Context) {
				c := cycle.New(cfg, db, provider, mailer)
				for _, step := range c.Run(ctx).Steps {
					if step.Err != nil {
						log.Printf("%s step failed: %v", step.Name, step.Err)
					}
				}
			},
			Digest: func(ctx context.Context) {
				g := digest.New(db, provider, mailer, cfg)
				if _, err := g.Run(ctx, time.Now()); err != nil {
					log.Printf("Digest failed: %v", err)
				}
			},
		})

		w.Run(context.Background())
		return nil
	},
}

// --- shared helpers ---

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "civicsignal.db"))
}

func newProvider() llm.Provider {
	s := cfg.Scoring
	return llm.CreateProvider(s.Provider, s.Model, s.OllamaURL, s.OpenAIModel, s.APIKeyEnv)
}

func newMailer() mail.Mailer {
	return mail.NewResendClient(cfg.Mail.BaseURL, cfg.Mail.APIKeyEnv)
}
