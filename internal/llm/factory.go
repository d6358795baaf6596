package llm

import (
	"fmt"
	"os"
)

// NewProvider creates a new LLM provider based on the given provider type
// and model. Supported provider types: "openai", "custom".
func NewProvider(providerType string, model string, baseURL string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "custom":
		if baseURL == "" {
			return nil, fmt.Errorf("a base URL is required for the custom provider")
		}
		// Many OpenAI-compatible servers accept any key; default to a stub.
		apiKey := os.Getenv("POLICYRAG_LLM_API_KEY")
		if apiKey == "" {
			apiKey = "unused"
		}
		return NewCompatibleProvider(apiKey, baseURL, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
