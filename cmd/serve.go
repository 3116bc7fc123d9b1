package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"vigil/config"
	"vigil/core"
	"vigil/detect"
	"vigil/engine"
	"vigil/notify"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the correlation engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is unactionable

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	var rules []*core.Rule
	if cfg.RulesPath != "" {
		rules, err = detect.LoadRules(cfg.RulesPath)
		if err != nil {
			return err
		}
		logger.Infow("rules loaded", "path", cfg.RulesPath, "count", len(rules))
	} else {
		rules = detect.DefaultRules()
		logger.Infow("using builtin rule set", "count", len(rules))
	}

	eng, err := engine.New(cfg, rules, logger)
	if err != nil {
		return err
	}

	// Restore order mirrors shutdown in reverse: state first, then the loop,
	// then the notification consumer.
	eng.LoadState()
	eng.Start()

	notifier := notify.New(cfg.Notify, eng, logger)
	notifier.Start()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Infow("metrics listener started", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warnw("metrics listener exited", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infow("shutting down", "signal", sig)

	notifier.Stop()
	eng.Stop() // stops polling, then saves state
	return nil
}
