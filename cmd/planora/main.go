package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/planora/planora/config"
	"github.com/planora/planora/internal/agent"
	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/decision"
	"github.com/planora/planora/internal/operator"
	"github.com/planora/planora/internal/route"
	"github.com/planora/planora/internal/runner"
	"github.com/planora/planora/internal/session"
	"github.com/planora/planora/internal/toolkit"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:   "planora",
		Short: "Multi-agent event planning assistant",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	root.AddCommand(newPlanCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRunner wires the graph from config. The operator is nil for hosts that
// suspend at the checkpoint instead of blocking.
func buildRunner(ctx context.Context, cfg *config.Config, op operator.Interface, metrics *runner.Metrics) (*runner.Runner, error) {
	cards, err := capability.SignedDefaults(cfg.Capability.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("sign capability cards: %w", err)
	}
	reg, err := capability.NewRegistry(cards, cfg.Capability.SigningSecret, cfg.Capability.RequiredTools)
	if err != nil {
		return nil, fmt.Errorf("capability registry: %w", err)
	}

	var decider decision.Decider
	switch cfg.LLM.Provider {
	case "", "rules":
		decider = decision.NewRuleDecider()
	case "openai":
		decider = decision.NewOpenAIDecider(decision.OpenAIConfig{
			APIKey:      cfg.LLM.OpenAI.APIKey,
			BaseURL:     cfg.LLM.OpenAI.BaseURL,
			Model:       cfg.LLM.OpenAI.Model,
			Temperature: cfg.LLM.OpenAI.Temperature,
			MaxTokens:   cfg.LLM.OpenAI.MaxTokens,
			Timeout:     cfg.LLM.OpenAI.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	retries := cfg.Decision.MaxRetries
	backoff := cfg.Decision.RetryBackoff
	return runner.New(runner.Deps{
		Orchestrator:  agent.NewOrchestrator(cfg.General.PlanningKeywords, nil),
		Scheduler:     agent.NewScheduler(decider, reg, retries, backoff, nil),
		Checkpoint:    agent.NewCheckpoint(op, nil),
		Communication: agent.NewCommunication(decider, reg, retries, backoff, nil),
		Tools:         toolkit.New(),
		Store:         store,
		Policy:        route.NewPolicy(cfg.Routing.MaxReentries),
		MaxSteps:      cfg.Routing.MaxSteps,
		Metrics:       metrics,
	}), nil
}

func buildStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Store {
	case "", "memory":
		return session.NewMemoryStore(cfg.Session.TTL), nil
	case "redis":
		timeout := cfg.Session.Redis.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client, err := session.Conn(ctx, cfg.Session.Redis.Host, cfg.Session.Redis.Port,
			cfg.Session.Redis.Password, cfg.Session.Redis.DB, timeout)
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		return session.NewRedisStore(client, cfg.Session.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
