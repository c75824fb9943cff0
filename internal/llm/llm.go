package llm

import (
	"context"
	"log"
	"strings"
)

// Provider is the interface to the inference service. Implementations must
// honor the context deadline; a timeout is the caller's per-call failure
// mode, never a process-level abort.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// CreateProvider creates a provider from configuration, falling back from
// Ollama to OpenAI when the local daemon is unavailable.
func CreateProvider(provider, model, ollamaURL, openaiModel, apiKeyEnv string) Provider {
	if strings.ToLower(provider) == "ollama" {
		p := NewOllamaProvider(model, ollamaURL)
		if p.IsConfigured() {
			log.Printf("Using Ollama with model: %s", model)
			return p
		}
		log.Println("Ollama not available, trying OpenAI fallback...")
	}

	p := NewOpenAIProvider(openaiModel, apiKeyEnv)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", openaiModel)
		return p
	}

	log.Println("No inference provider available. Check Ollama is running or set the API key.")
	return nil
}
