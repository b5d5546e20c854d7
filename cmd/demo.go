package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crediq/selfheal/internal/config"
	"github.com/crediq/selfheal/internal/driver"
	"github.com/crediq/selfheal/internal/driver/chromedpdrv"
	"github.com/crediq/selfheal/internal/driver/playwrightdrv"
	"github.com/crediq/selfheal/internal/fields"
	"github.com/crediq/selfheal/internal/healing"
	"github.com/crediq/selfheal/internal/observability"
)

var (
	demoURLs  []string
	demoScore string
	demoWait  time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a sample navigation and interaction flow and print healing statistics",
	Long: `Navigates to the first reachable URL from --url, fills and submits the
sample credit-score form using the built-in semantic field catalog, then
prints the session's healing statistics and exports the learning snapshot.

Healed steps do not affect the exit code; only structural failures
(exhausted candidates, failed verification, unreachable URLs) do.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringSliceVar(&demoURLs, "url", []string{"http://localhost:3000/dashboard"},
		"target URL, repeatable; tried in order until one loads")
	demoCmd.Flags().StringVar(&demoScore, "score", "742", "score value to enter")
	demoCmd.Flags().DurationVar(&demoWait, "result-wait", 15*time.Second,
		"how long to wait for one of the flow's end states")
	rootCmd.AddCommand(demoCmd)
}

// demoRegistry is the curated candidate data for the sample flow: per
// semantic target, the primary locator first, then the fallbacks that have
// historically replaced it.
func demoRegistry(log *zap.Logger) (*fields.Registry, error) {
	reg := fields.NewRegistry(log)
	catalog := []fields.Field{
		{
			Name:       "score-input",
			Candidates: healing.CandidateList{"#score", ".credit-score-value", "[data-test=credit-score]"},
			Validate:   fields.BoundedInt(300, 850),
			Normalize:  fields.TrimSpace,
		},
		{
			Name:       "report-id-input",
			Candidates: healing.CandidateList{"#report-id", "input[name=reportId]", "[data-test=report-id]"},
			Normalize:  fields.GroupDigits("-", 3, 2, 4),
		},
		{
			Name:       "refresh-button",
			Candidates: healing.CandidateList{"#refresh", "button.refresh-scores", "[data-test=refresh]"},
		},
	}
	for _, f := range catalog {
		if err := reg.Register(f); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func buildDriver(ctx context.Context, cfg config.Config, log *zap.Logger) (driver.Driver, func(), error) {
	switch cfg.Driver.Kind {
	case "playwright":
		d, err := playwrightdrv.New(playwrightdrv.Options{
			Headless:          cfg.Driver.Headless,
			NavigationTimeout: cfg.Driver.NavigationTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		d, err := chromedpdrv.New(ctx, chromedpdrv.Options{
			Headless:          cfg.Driver.Headless,
			NavigationTimeout: cfg.Driver.NavigationTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := observability.GetLogger()

	drv, closeDriver, err := buildDriver(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start %s driver: %w", cfg.Driver.Kind, err)
	}
	defer closeDriver()

	tracker := healing.NewTracker(log)
	tracker.Subscribe(healing.NewZapSink(log.Named("events")))

	waiter := healing.NewWaiter(drv, log)
	resolver := healing.NewResolver(waiter, tracker, log)
	exec := healing.NewExecutor(drv, waiter, resolver, healing.ExecutorConfig{
		PrimaryTimeout:    cfg.Healing.PrimaryTimeout,
		FallbackTimeout:   cfg.Healing.FallbackTimeout,
		ActionableTimeout: cfg.Healing.ActionableTimeout,
		MaxRetries:        cfg.Healing.MaxRetries,
		RetryDelay:        cfg.Healing.RetryDelay,
	}, log)
	navigator := healing.NewNavigator(drv, log)

	registry, err := demoRegistry(log)
	if err != nil {
		return err
	}

	exportPath, err := cfg.ResolvedExportPath()
	if err != nil {
		return err
	}
	if cfg.Learning.SeedFromLast {
		if snap, err := healing.LoadSnapshot(exportPath); err == nil {
			promoted := registry.SeedFromSnapshot(snap)
			log.Info("seeded candidate ordering from previous session",
				zap.Int("promoted", promoted), zap.String("path", exportPath))
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Warn("could not reload learning snapshot", zap.Error(err))
		}
	}

	resolvedURL, err := navigator.Goto(ctx, demoURLs, healing.GotoOptions{
		WaitUntil: driver.LoadStateDOMContentLoaded,
		Timeout:   cfg.Driver.NavigationTimeout,
	})
	if err != nil {
		return err
	}
	log.Info("navigation complete", zap.String("url", resolvedURL))

	if _, err := registry.Fill(ctx, exec, "score-input", demoScore); err != nil {
		return err
	}
	if _, err := registry.Fill(ctx, exec, "report-id-input", "123456789"); err != nil {
		return err
	}
	if _, err := registry.Click(ctx, exec, "refresh-button"); err != nil {
		return err
	}

	// The flow is done when any plausible end state shows up.
	_, winner, err := waiter.WaitForAny(ctx, []healing.Condition{
		healing.SelectorCondition{Locator: ".score-updated"},
		healing.SelectorCondition{Locator: ".error-banner"},
		healing.URLCondition{Pattern: `/results`},
	}, demoWait)
	if err != nil {
		return fmt.Errorf("no end state reached: %w", err)
	}
	log.Info("flow finished", zap.String("end_state", winner.Describe()))

	stats := tracker.Stats()
	fmt.Fprintf(cmd.OutOrStdout(),
		"attempts: %d\nheals: %d\nhealing success rate: %s\n",
		stats.TotalAttempts, stats.SuccessfulHeals, stats.HealingSuccessRate)

	if err := tracker.ExportTo(exportPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "learning snapshot: %s\n", exportPath)
	return nil
}
