package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"jobglob-engine/internal/config"
	"jobglob-engine/internal/logging"
)

type rootOptions struct {
	dataDir    string
	configPath string
	debug      bool

	// filled in by PersistentPreRunE
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "engine <command> [flags]",
		Short: "Find company job boards and keep their listings in sync",
		Long: heredoc.Doc(`
			jobglob engine discovers which ATS vendor boards a company uses,
			polls those boards and reconciles the postings into a local listing
			database that marks vanished jobs dead and brings back the ones that
			reappear.
		`),
		Example: heredoc.Doc(`
			$ engine serve
			$ engine detect "Acme Corp" --homepage https://acme.com --save
			$ engine add-board "Acme Corp" https://jobs.lever.co/acme
			$ engine scrape && engine review
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return o.load()
		},
	}

	cmd.PersistentFlags().StringVar(&o.dataDir, "data-dir", "", "Data directory (default $JOBGLOB_DATA_DIR or .)")
	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Config file (default <data-dir>/config.yml)")
	cmd.PersistentFlags().BoolVar(&o.debug, "debug", false, "Debug logging")

	cmd.AddCommand(
		newServeCmd(o),
		newCrawlCmd(o),
		newDetectCmd(o),
		newBruteForceCmd(o),
		newAddBoardCmd(o),
		newScrapeCmd(o),
		newCheckListingsCmd(o),
		newReviewCmd(o),
	)
	return cmd
}

// load resolves the data dir, bootstraps and loads the config, and sets up
// logging.
func (o *rootOptions) load() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	if o.dataDir == "" {
		o.dataDir = config.DataDir()
	}
	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return err
	}

	if o.configPath == "" {
		if err := config.LoadDotEnv(filepath.Join(o.dataDir, ".env")); err != nil {
			return err
		}
		p, err := config.EnsureUserConfig(o.dataDir)
		if err != nil {
			return fmt.Errorf("config bootstrap failed: %w", err)
		}
		o.configPath = p
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg
	if cfg.App.DataDir != "" {
		o.dataDir = cfg.App.DataDir
	}

	logging.Init("jobglob-engine", o.debug || cfg.App.Debug)
	_, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		log.Warn().Str("config", o.configPath).Msg(w)
	}
	return nil
}

// loadConfig reads the config file and applies the JOBGLOB_* overlay.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed (%s): %w", o.configPath, err)
	}
	if err := config.OverlayEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
