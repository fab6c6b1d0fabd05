package cli

import (
	"fmt"
	"time"

	"github.com/aaaa47080/stock-agent-sub003/internal/agent"
	"github.com/aaaa47080/stock-agent-sub003/internal/codebook"
	"github.com/aaaa47080/stock-agent-sub003/internal/config"
	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
	"github.com/aaaa47080/stock-agent-sub003/internal/llm_client"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/manager"
	"github.com/aaaa47080/stock-agent-sub003/internal/memory"
	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
	"github.com/aaaa47080/stock-agent-sub003/internal/tools/general"
	"github.com/aaaa47080/stock-agent-sub003/internal/tools/market"
	"github.com/aaaa47080/stock-agent-sub003/internal/tools/news"
)

// App is the fully wired assistant: oracle, tools, codebook, memory,
// coordinator and manager. Commands build one with the transport that
// fits their mode and tear it down when done.
type App struct {
	Cfg      config.Config
	Oracle   llm_client.Provider
	Model    string
	Registry *tools.Registry
	Codebook *codebook.Store
	Memory   *memory.Store
	HITL     *hitl.Coordinator
	Manager  *manager.Manager
}

func buildApp(cfg config.Config, transport hitl.Transport) (*App, error) {
	if err := llm_client.Init(llm_client.Config{
		Backend:    cfg.LLM.Backend,
		Model:      cfg.LLM.Model,
		OllamaHost: cfg.LLM.OllamaHost,
	}); err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	oracle := llm_client.Active()
	model := oracle.AllowedModelOrDefault(cfg.LLM.Model)
	oracleTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second

	reg := tools.NewRegistry(time.Duration(cfg.Tools.TimeoutSeconds)*time.Second, cfg.Tools.UsageCapacity)
	for _, t := range market.Tools(market.NewClient()) {
		reg.MustRegister(t)
	}
	for _, t := range news.Tools(news.NewFetcher()) {
		reg.MustRegister(t)
	}
	for _, t := range general.Tools(reg) {
		reg.MustRegister(t)
	}

	cb, err := codebook.Open(cfg.Codebook.Path, cfg.Codebook.Threshold)
	if err != nil {
		return nil, fmt.Errorf("open codebook: %w", err)
	}
	if cfg.Codebook.Watch {
		if err := cb.Watch(); err != nil {
			logger.Log.Warnw("Codebook file watching unavailable", "error", err)
		}
	}

	coord := hitl.NewCoordinator(hitl.Options{
		Transport:     transport,
		MaxQuestions:  cfg.HITL.MaxQuestions,
		Oracle:        oracle,
		Model:         model,
		OracleTimeout: oracleTimeout,
	})

	deps := agent.Deps{
		Registry:      reg,
		HITL:          coord,
		Oracle:        oracle,
		Model:         model,
		MaxIterations: cfg.Agent.MaxIterations,
		OracleTimeout: oracleTimeout,
	}
	mem := memory.NewStore()

	mgr := manager.New(manager.Options{
		Oracle:   oracle,
		Model:    model,
		Codebook: cb,
		Memory:   mem,
		HITL:     coord,
		Agents: []agent.Agent{
			agent.NewNewsAgent(deps),
			agent.NewTechnicalAgent(deps),
			agent.NewChatAgent(deps),
		},
		MaxIterations: cfg.Manager.MaxIterations,
		OracleTimeout: oracleTimeout,
	})

	return &App{
		Cfg:      cfg,
		Oracle:   oracle,
		Model:    model,
		Registry: reg,
		Codebook: cb,
		Memory:   mem,
		HITL:     coord,
		Manager:  mgr,
	}, nil
}

func (a *App) Close() {
	if a.Codebook != nil {
		if err := a.Codebook.Close(); err != nil {
			logger.Log.Warnw("Codebook close failed", "error", err)
		}
	}
	logger.Sync()
}
