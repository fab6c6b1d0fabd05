package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "ASSISTANT"

type LLMConfig struct {
	Backend        string `mapstructure:"backend"`
	Model          string `mapstructure:"model"`
	OllamaHost     string `mapstructure:"ollama_host"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

type CodebookConfig struct {
	Path      string  `mapstructure:"path"`
	Threshold float64 `mapstructure:"threshold"`
	Watch     bool    `mapstructure:"watch"`
}

type HITLConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
}

type ManagerConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

type ToolsConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	UsageCapacity  int `mapstructure:"usage_capacity"`
}

type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
	Codebook CodebookConfig `mapstructure:"codebook"`
	HITL     HITLConfig     `mapstructure:"hitl"`
	Manager  ManagerConfig  `mapstructure:"manager"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Tools    ToolsConfig    `mapstructure:"tools"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.backend", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.ollama_host", "")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("log.file", "assistant.log")
	v.SetDefault("log.debug", false)
	v.SetDefault("codebook.path", "codebook.json")
	v.SetDefault("codebook.threshold", 0.6)
	v.SetDefault("codebook.watch", true)
	v.SetDefault("hitl.max_questions", 5)
	v.SetDefault("manager.max_iterations", 15)
	v.SetDefault("agent.max_iterations", 5)
	v.SetDefault("tools.timeout_seconds", 30)
	v.SetDefault("tools.usage_capacity", 1000)
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (ASSISTANT_ prefix, dots as underscores). A missing config
// file is fine; a malformed one is not.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("assistant")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			if cfgFile != "" {
				return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
