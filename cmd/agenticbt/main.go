// SPDX-License-Identifier: Apache-2.0

// Command agenticbt runs a behavior-tree-orchestrated chat agent: user input
// drives a tick-driven tree whose leaves ask an LLM-backed agent, with
// shared state on an access-controlled blackboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/cxbxmxcx/agenticbt/pkg/agent"
	"github.com/cxbxmxcx/agenticbt/pkg/blackboard"
	"github.com/cxbxmxcx/agenticbt/pkg/btree"
	"github.com/cxbxmxcx/agenticbt/pkg/chat"
	"github.com/cxbxmxcx/agenticbt/pkg/config"
	"github.com/cxbxmxcx/agenticbt/pkg/llm"
	"github.com/cxbxmxcx/agenticbt/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		treePath   = flag.String("tree", "", "path to YAML tree definition (defaults to the built-in QA tree)")
		mermaid    = flag.Bool("mermaid", false, "print the tree as a Mermaid diagram and exit")
		question   = flag.String("q", "", "answer a single question and exit")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("agenticbt", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *treePath, *mermaid, *question); err != nil {
		fmt.Fprintln(os.Stderr, "agenticbt:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, treePath string, mermaid bool, question string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init("agenticbt", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}
	engine := llm.NewEngine(provider,
		llm.WithModel(cfg.LLM.Model),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
	)

	agentOpts := []agent.Option{
		agent.WithTools(builtinRegistry()),
		agent.WithMaxToolRounds(cfg.Agent.MaxToolRounds),
	}
	if cfg.Agent.SystemPrompt != "" {
		agentOpts = append(agentOpts, agent.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}
	if cfg.Agent.TemplateDir != "" {
		templates, err := agent.LoadTemplates(cfg.Agent.TemplateDir)
		if err != nil {
			return err
		}
		agentOpts = append(agentOpts, agent.WithTemplates(templates))
	}
	ag, err := agent.New("assistant", engine, agentOpts...)
	if err != nil {
		return err
	}

	def := builtinDefinition()
	if treePath != "" {
		if def, err = btree.LoadDefinition(treePath); err != nil {
			return err
		}
	}

	board := blackboard.NewConversationBoard()
	treeOpts, closeAudit, err := auditOptions(cfg.Audit)
	if err != nil {
		return err
	}
	defer closeAudit()

	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return err
	}
	treeOpts = append(treeOpts, btree.WithMetrics(metrics))

	tree, err := def.Build(ag, board, treeOpts...)
	if err != nil {
		return err
	}

	if mermaid {
		fmt.Println(btree.Mermaid(tree.Root()))
		return nil
	}

	loopOpts := []chat.LoopOption{}
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		loopOpts = append(loopOpts, chat.WithPrompt(""))
	}
	loop, err := chat.NewLoop(tree, board, loopOpts...)
	if err != nil {
		return err
	}

	if question != "" {
		fmt.Println(loop.Turn(ctx, question))
	} else {
		slog.Info("starting chat", "tree", tree.ID(), "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		if err := loop.Run(ctx, os.Stdin, os.Stdout); err != nil {
			return err
		}
	}

	usage := engine.Usage()
	metrics.AddTokens(ctx, cfg.LLM.Model, usage.PromptTokens, usage.CompletionTokens)
	slog.Info("session finished",
		"prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens)
	return nil
}

func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAI(cfg.APIKey, cfg.BaseURL)
	case "anthropic":
		return llm.NewAnthropic(cfg.APIKey)
	case "mock":
		return &llm.MockProvider{Response: "SUCCESS: mock reply"}, nil
	default:
		return llm.NewOllama(cfg.BaseURL), nil
	}
}

func auditOptions(cfg config.AuditConfig) ([]btree.TreeOption, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	if cfg.SQLitePath == "" {
		return []btree.TreeOption{btree.WithAudit(btree.NewMemoryAuditStore())}, func() {}, nil
	}
	store, err := btree.OpenSQLiteAuditStore(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			slog.Warn("audit store close failed", "error", err)
		}
	}
	return []btree.TreeOption{btree.WithAudit(store)}, closer, nil
}
