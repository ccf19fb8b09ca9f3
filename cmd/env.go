package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-research/internal/leadimport"
	"github.com/sells-group/lead-research/internal/notify"
	"github.com/sells-group/lead-research/internal/orchestrator"
	"github.com/sells-group/lead-research/internal/provider"
	"github.com/sells-group/lead-research/internal/store"
	anthropicpkg "github.com/sells-group/lead-research/pkg/anthropic"
)

// appEnv wires the store, provider, orchestrator, and importer for commands.
type appEnv struct {
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator
	Coordinator  *orchestrator.Coordinator
	Importer     *leadimport.Importer
}

func (e *appEnv) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initApp(ctx context.Context) (*appEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (LEADCRM_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	questions, err := provider.LoadQuestions(cfg.Research.QuestionsPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	prov := provider.NewAnthropicProvider(anthropicClient, cfg.Anthropic, questions)

	coord := orchestrator.NewCoordinator(cfg.Research.MaxConcurrent)
	notifier := notify.NewWebhook(cfg.Notify.WebhookURL)
	orch := orchestrator.New(st, prov, coord, notifier)
	importer := leadimport.New(st, orch, cfg.Research.AutoQueueThreshold)

	return &appEnv{
		Store:        st,
		Orchestrator: orch,
		Coordinator:  coord,
		Importer:     importer,
	}, nil
}
