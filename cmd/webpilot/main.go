package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/lmercat/webpilot/internal/agent"
	"github.com/lmercat/webpilot/internal/artifacts"
	"github.com/lmercat/webpilot/internal/browser"
	"github.com/lmercat/webpilot/internal/captcha"
	"github.com/lmercat/webpilot/internal/config"
	"github.com/lmercat/webpilot/internal/llm"
	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/tools"
)

const version = "0.1.0"

type cli struct {
	Debug bool `help:"Enable debug logging."`

	Run     runCmd     `cmd:"" help:"Run a browsing task."`
	Tools   toolsCmd   `cmd:"" help:"List the available tools."`
	Cleanup cleanupCmd `cmd:"" help:"Remove stored session data."`
	Version versionCmd `cmd:"" help:"Print the version."`
}

type runCmd struct {
	Task   string `arg:"" help:"Task for the agent, in natural language."`
	Headed bool   `help:"Run the browser with a visible window."`
}

func (r *runCmd) Run(cfg *config.Config) error {
	if r.Headed {
		cfg.Browser.Headless = false
	}

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}
	summarizer, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	store := browser.NewSessionStore(cfg.Browser, cfg.DataDir)
	defer store.DestroyAll()
	arts := artifacts.NewStore(filepath.Join(cfg.DataDir, "artifacts"))
	resolver := captcha.NewResolver(cfg.Captcha)

	registry := tools.NewRegistry()
	tools.RegisterDefaults(registry, store, arts, resolver)
	invoker := tools.NewInvoker(registry).
		WithPageReporter(tools.BrowserPageReporter(store), tools.BrowserAffecting...)

	orch := agent.New(completer, invoker, registry.Definitions(), cfg.Agent).
		WithBrowser(store).
		WithSummarizer(summarizer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for ev := range orch.RunTask(ctx, r.Task) {
		switch e := ev.(type) {
		case agent.EventAgentStart:
			L_info("task started", "session", e.SessionID)
		case agent.EventTextDelta:
			fmt.Println(e.Text)
		case agent.EventToolStart:
			L_info("tool call", "tool", e.Call.Tool)
		case agent.EventToolEnd:
			if !e.Result.Success {
				L_warn("tool failed", "tool", e.Call.Tool, "error", e.Result.Error)
			}
		case agent.EventAgentEnd:
			if e.Completed {
				L_info("task complete", "steps", e.Steps)
			} else {
				L_warn("task stopped", "steps", e.Steps, "reason", e.Reason)
			}
		case agent.EventAgentError:
			return e.Err
		}
	}
	return nil
}

type toolsCmd struct{}

func (t *toolsCmd) Run(cfg *config.Config) error {
	store := browser.NewSessionStore(cfg.Browser, cfg.DataDir)
	arts := artifacts.NewStore(filepath.Join(cfg.DataDir, "artifacts"))
	resolver := captcha.NewResolver(cfg.Captcha)

	registry := tools.NewRegistry()
	tools.RegisterDefaults(registry, store, arts, resolver)

	fmt.Print(registry.BuildToolSummary())
	return nil
}

type cleanupCmd struct{}

func (c *cleanupCmd) Run(cfg *config.Config) error {
	for _, sub := range []string{"profiles", "artifacts"} {
		dir := filepath.Join(cfg.DataDir, sub)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
		L_info("removed", "dir", dir)
	}
	return nil
}

type versionCmd struct{}

func (v *versionCmd) Run(cfg *config.Config) error {
	fmt.Printf("webpilot %s\n", version)
	return nil
}

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("webpilot"),
		kong.Description("Autonomous LLM-directed browser automation agent."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "webpilot: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevelValue()
	if c.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, TimeFormat: "15:04:05"})

	if err := kctx.Run(cfg); err != nil {
		L_fatal("command failed", "error", err)
	}
}
