package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sourcelens/audit-cli/internal/benchmark"
	"github.com/sourcelens/audit-cli/internal/observation"
	"github.com/sourcelens/audit-cli/internal/store"
)

// auditEnv holds the store and observer an audit command runs with.
type auditEnv struct {
	Store    store.Store
	Observer *observation.Runner
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initAuditEnv sets up the store and, when observation is requested, the
// provider runner. Callers should defer env.Close().
func initAuditEnv(ctx context.Context, observe, noStore bool) (*auditEnv, error) {
	env := &auditEnv{}

	if !noStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
	}

	if observe {
		cfg.Observation.Enabled = true
		observer, err := initObserver()
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Observer = observer
	} else {
		cfg.Observation.Enabled = false
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "audit.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initObserver builds the observation runner from the provider config. The
// fallback provider is best effort; a misconfigured fallback is logged and
// dropped rather than blocking the audit.
func initObserver() (*observation.Runner, error) {
	primary, err := observation.NewProvider(cfg.Provider.Primary, cfg.Provider)
	if err != nil {
		return nil, eris.Wrap(err, "init primary provider")
	}

	var fallback observation.Provider
	if cfg.Provider.Fallback != "" && cfg.Provider.Fallback != cfg.Provider.Primary {
		fallback, err = observation.NewProvider(cfg.Provider.Fallback, cfg.Provider)
		if err != nil {
			zap.L().Warn("fallback provider unavailable",
				zap.String("provider", cfg.Provider.Fallback),
				zap.Error(err),
			)
			fallback = nil
		}
	}

	opts := observation.OptionsFromConfig(cfg.Provider, cfg.Observation)
	return observation.NewRunner(primary, fallback, opts), nil
}

// parseCompetitors parses "Name=domain.com" flag values.
func parseCompetitors(values []string) ([]benchmark.Competitor, error) {
	competitors := make([]benchmark.Competitor, 0, len(values))
	for _, v := range values {
		name, domain, ok := strings.Cut(v, "=")
		if !ok || name == "" || domain == "" {
			return nil, eris.Errorf("invalid competitor %q, expected Name=domain", v)
		}
		competitors = append(competitors, benchmark.Competitor{Name: name, Domain: domain})
	}
	return competitors, nil
}
