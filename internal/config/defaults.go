package config

import (
	"github.com/spf13/viper"
)

// DefaultPrompt is prepended to every part sent for condensation.
const DefaultPrompt = "Summarize the following text, keeping every fact that could matter to a later reader:\n\n"

// Token counters selectable with provider.tokenizer.
const (
	TokenizerTiktoken  = "tiktoken"
	TokenizerHeuristic = "heuristic"
)

// SetDefaults registers default values on the global viper instance.
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.model", "gpt-3.5-turbo")
	v.SetDefault("provider.endpoint", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", "2m")
	v.SetDefault("provider.context_window", 0)
	v.SetDefault("provider.tokenizer", TokenizerTiktoken)

	v.SetDefault("summarize.max_iterations", 10)
	v.SetDefault("summarize.hierarchy", "markdown")
	v.SetDefault("summarize.response_reserve", 512)
	v.SetDefault("summarize.truncate_overflow", true)
	v.SetDefault("summarize.require_shrink", false)
	v.SetDefault("summarize.prompt", DefaultPrompt)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.min_prompt_length", 25)

	v.SetDefault("transcript.enabled", true)
	v.SetDefault("transcript.path", "")
	v.SetDefault("transcript.width", 70)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 18790)
}
