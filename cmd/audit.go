package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/fixes"
	"github.com/sourcelens/audit-cli/internal/model"
	"github.com/sourcelens/audit-cli/internal/pipeline"
	"github.com/sourcelens/audit-cli/internal/report"
)

var (
	auditObserve     bool
	auditNoStore     bool
	auditOutput      string
	auditCacheTTL    time.Duration
	auditCompetitors []string
)

var auditCmd = &cobra.Command{
	Use:   "audit <snapshot.yaml | domain>",
	Short: "Run a full sourceability audit",
	Long:  "Loads a site snapshot from a YAML file (or the store's snapshot cache when given a domain), simulates AI retrieval against it, scores answerability, generates a fix plan with impact estimates, and optionally verifies predictions against live AI providers.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		competitors, err := parseCompetitors(auditCompetitors)
		if err != nil {
			return err
		}

		env, err := initAuditEnv(ctx, auditObserve, auditNoStore)
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := loadAuditInput(ctx, env, args[0])
		if err != nil {
			return err
		}
		in.Competitors = competitors

		pipe := pipeline.New(cfg, env.Store, env.Observer)
		rep, err := pipe.Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		severities := report.SeverityCount(rep.Fixes)
		zap.L().Info("audit finished",
			zap.String("company", in.CompanyName),
			zap.Float64("score", rep.Score.TotalScore),
			zap.String("grade", rep.Score.Grade),
			zap.Int("fixes", rep.Fixes.TotalFixes),
			zap.Int("critical_fixes", severities[fixes.SeverityCritical]),
		)

		out := os.Stdout
		if auditOutput != "" {
			f, err := os.Create(auditOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditObserve, "observe", false, "verify predictions against live AI providers")
	auditCmd.Flags().BoolVar(&auditNoStore, "no-store", false, "skip persisting the run")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "write the report to a file instead of stdout")
	auditCmd.Flags().DurationVar(&auditCacheTTL, "cache-ttl", 7*24*time.Hour, "how long to cache the loaded snapshot")
	auditCmd.Flags().StringArrayVar(&auditCompetitors, "competitor", nil, "competitor to benchmark against, as Name=domain (repeatable)")
	rootCmd.AddCommand(auditCmd)
}

// loadAuditInput resolves the positional argument: a YAML snapshot path is
// loaded from disk and cached in the store; anything else is treated as a
// domain to look up in the snapshot cache.
func loadAuditInput(ctx context.Context, env *auditEnv, arg string) (pipeline.Input, error) {
	snap, loadErr := pipeline.LoadSnapshot(arg)
	if loadErr == nil {
		pages := snap.ExtractedPages()
		if env.Store != nil {
			cached := &model.SiteSnapshot{
				ID:          snap.Domain,
				Domain:      snap.Domain,
				CompanyName: snap.CompanyName,
				Pages:       pages,
				FetchedAt:   time.Now().UTC(),
			}
			if err := env.Store.SetSnapshot(ctx, cached, auditCacheTTL); err != nil {
				zap.L().Warn("failed to cache snapshot", zap.Error(err))
			}
		}
		return pipeline.Input{
			SiteID:      snap.Domain,
			CompanyName: snap.CompanyName,
			Domain:      snap.Domain,
			Pages:       pages,
		}, nil
	}

	if env.Store != nil {
		cached, err := env.Store.GetSnapshot(ctx, arg)
		if err == nil && cached != nil {
			zap.L().Info("using cached snapshot",
				zap.String("domain", cached.Domain),
				zap.Time("fetched_at", cached.FetchedAt),
			)
			return pipeline.Input{
				SiteID:      cached.Domain,
				CompanyName: cached.CompanyName,
				Domain:      cached.Domain,
				Pages:       cached.Pages,
			}, nil
		}
	}
	return pipeline.Input{}, loadErr
}
