package config

import (
	"os"
	"path/filepath"

	"github.com/SuperCmdLabs/SuperCmd-sub001/errors"
	"gopkg.in/yaml.v3"
)

// ProviderID names one AI backend.
type ProviderID string

const (
	ProviderAnthropic ProviderID = "anthropic"
	ProviderOpenAI    ProviderID = "openai"
	ProviderGemini    ProviderID = "gemini"
	ProviderBedrock   ProviderID = "bedrock"
)

// Provider holds the credentials and endpoint for one backend. Empty fields
// fall back to the conventional environment variables.
type Provider struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Region   string `yaml:"region"` // bedrock only
	Endpoint string `yaml:"endpoint"`
}

// Mode controls tool confirmation behavior.
type Mode string

const (
	ModeAuto   Mode = "auto"   // only dangerous tools need confirmation
	ModePrompt Mode = "prompt" // every tool call needs confirmation
)

// DefaultMaxSteps bounds the tool-calling loop when max_steps is unset.
const DefaultMaxSteps = 20

// AgentSettings are the behavior knobs handed to the attempt runner.
type AgentSettings struct {
	Mode          Mode   `yaml:"mode"`
	MaxSteps      int    `yaml:"max_steps"`
	SystemPrompt  string `yaml:"system_prompt"`
	ToolVerbosity string `yaml:"tool_verbosity"` // none, info, all
}

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

type Config struct {
	Preferred            ProviderID              `yaml:"preferred"`
	Providers            map[ProviderID]Provider `yaml:"providers"`
	Agent                AgentSettings           `yaml:"agent"`
	LedgerPath           string                  `yaml:"ledger_path"`
	Toolsets             []Toolset               `yaml:"toolsets"`
	AdditionalMCPServers []MCPServer             `yaml:"additional_mcp_servers"`
	AllowedCommands      []string                `yaml:"allowed_commands"`
	FilesystemAccess     FilesystemAccess        `yaml:"filesystem_access"`
}

// Load reads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func Load() (*Config, error) {
	cfg := defaults()

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".supercmd", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".supercmd", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Preferred: ProviderAnthropic,
		Agent: AgentSettings{
			Mode:          ModePrompt,
			MaxSteps:      DefaultMaxSteps,
			ToolVerbosity: "info",
		},
		FilesystemAccess: FilesystemAccess{
			// The state directory is never exposed to tools.
			Hidden: []string{".supercmd", ".supercmd/**"},
		},
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a simple
	// merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// ProviderConfig resolves the configuration for one provider, returning the
// zero value when the provider is not configured.
func (c *Config) ProviderConfig(id ProviderID) Provider {
	if c.Providers == nil {
		return Provider{}
	}
	return c.Providers[id]
}

// HasCredentials reports whether the provider's required credentials or
// endpoints are present, either in config or in the environment.
func (c *Config) HasCredentials(id ProviderID) bool {
	p := c.ProviderConfig(id)
	switch id {
	case ProviderAnthropic:
		return p.APIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != ""
	case ProviderOpenAI:
		return p.APIKey != "" || os.Getenv("OPENAI_API_KEY") != ""
	case ProviderGemini:
		return p.APIKey != "" || os.Getenv("GEMINI_API_KEY") != ""
	case ProviderBedrock:
		return p.Region != "" ||
			os.Getenv("AWS_REGION") != "" ||
			os.Getenv("AWS_DEFAULT_REGION") != "" ||
			os.Getenv("AWS_PROFILE") != ""
	default:
		return false
	}
}

// GetToolset finds a toolset by name, falling back to "default".
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for i := range c.Toolsets {
		if c.Toolsets[i].Name == name {
			return &c.Toolsets[i], nil
		}
	}
	if name == "default" {
		// No toolset configured at all: expose the built-ins.
		return &Toolset{
			Name:  "default",
			Tools: []string{"read_file", "write_file", "execute_command"},
		}, nil
	}
	return c.GetToolset("default")
}
