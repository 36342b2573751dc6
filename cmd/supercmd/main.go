package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/SuperCmdLabs/SuperCmd-sub001/config"
	"github.com/SuperCmdLabs/SuperCmd-sub001/conversation"
	"github.com/SuperCmdLabs/SuperCmd-sub001/llm"
	"github.com/SuperCmdLabs/SuperCmd-sub001/logging"
	"github.com/SuperCmdLabs/SuperCmd-sub001/runner"
	"github.com/SuperCmdLabs/SuperCmd-sub001/runtime"
	"github.com/SuperCmdLabs/SuperCmd-sub001/taskstore"
	"github.com/SuperCmdLabs/SuperCmd-sub001/terminal"
	"github.com/SuperCmdLabs/SuperCmd-sub001/tools"
)

func main() {
	// Define flags
	modeFlag := flag.String("m", "", "Execution mode: 'auto' or 'prompt'")
	providerFlag := flag.String("p", "", "Preferred provider: 'anthropic', 'openai', 'gemini', or 'bedrock'")
	toolsetFlag := flag.String("t", "", "Toolset to use (defaults to 'default')")
	toolVerbosityFlag := flag.String("tool-verbosity", "", "Tool verbosity level: 'none', 'info', or 'all'")
	ledgerFlag := flag.String("ledger", "", "Path to the task ledger database (overrides config)")
	logLevelFlag := flag.String("log-level", "warn", "Log level: 'debug', 'info', 'warn', or 'error'")
	mockFlag := flag.Bool("mock", false, "Use a mock provider that parrots the prompt (for development)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	if *modeFlag != "" {
		switch config.Mode(*modeFlag) {
		case config.ModeAuto, config.ModePrompt:
			cfg.Agent.Mode = config.Mode(*modeFlag)
		default:
			fmt.Fprintf(os.Stderr, "Invalid mode '%s'. Must be 'auto' or 'prompt'.\n", *modeFlag)
			os.Exit(1)
		}
	}
	if *providerFlag != "" {
		cfg.Preferred = config.ProviderID(*providerFlag)
	}
	if *toolVerbosityFlag != "" {
		switch *toolVerbosityFlag {
		case "none", "info", "all":
			cfg.Agent.ToolVerbosity = *toolVerbosityFlag
		default:
			fmt.Fprintf(os.Stderr, "Invalid tool verbosity '%s'. Must be 'none', 'info', or 'all'.\n", *toolVerbosityFlag)
			os.Exit(1)
		}
	}
	if *ledgerFlag != "" {
		cfg.LedgerPath = *ledgerFlag
	}

	log := logging.NewLogger(logging.Options{Level: *logLevelFlag, Component: "supercmd"})

	// Task ledger: in-memory unless a path is configured.
	store := taskstore.NewStore()
	if cfg.LedgerPath != "" {
		store, err = taskstore.NewPersistentStore(cfg.LedgerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening task ledger: %+v\n", err)
			os.Exit(1)
		}
	}

	// Tool registry, including any configured MCP servers.
	registry, err := tools.NewRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing tools: %+v\n", err)
		os.Exit(1)
	}
	defer registry.Close()

	toolset, err := cfg.GetToolset(*toolsetFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving toolset: %+v\n", err)
		os.Exit(1)
	}
	activeTools, err := registry.ActiveTools(toolset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving toolset: %+v\n", err)
		os.Exit(1)
	}

	r := runner.New(cfg, activeTools)
	if *mockFlag {
		// Mock mode bypasses real credentials entirely.
		cfg.Preferred = config.ProviderAnthropic
		cfg.Providers = map[config.ProviderID]config.Provider{
			config.ProviderAnthropic: {APIKey: "mock"},
		}
		r.ClientFactory = func(ctx context.Context, id config.ProviderID, c *config.Config) (llm.Client, error) {
			return &llm.MockClient{}, nil
		}
	}

	svc := runtime.NewService(cfg, store, r, log)
	defer svc.Close()

	if !svc.Available() {
		fmt.Fprintln(os.Stderr, "No AI provider configured. Set an API key (e.g. ANTHROPIC_API_KEY) or add one to ~/.supercmd/config.yaml.")
		os.Exit(1)
	}

	sess := conversation.NewSession(svc)

	// Get initial prompt from remaining arguments
	initialPrompt := strings.Join(flag.Args(), " ")

	fmt.Println("SuperCmd is ready. Type your prompt.")
	term := terminal.New(sess, svc, cfg.Agent.ToolVerbosity)
	if err := term.Run(initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Terminal stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}
