package tokenizer

// contextWindows lists the total token limit (prompt plus completion) of
// models whose size is known.
var contextWindows = map[string]int{
	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-3.5-turbo":     4097,
	"gpt-3.5-turbo-16k": 16385,
}

// ContextWindow returns the context size of model, if known.
func ContextWindow(model string) (int, bool) {
	n, ok := contextWindows[model]
	return n, ok
}
