package cmd

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/policyrag/policyrag/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a .policyrag.yml configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runWizard()
		if err != nil {
			return err
		}
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", cfgFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// runWizard collects the collaborator endpoints and pipeline settings.
func runWizard() (*config.Config, error) {
	fmt.Println("Welcome to policyrag! Let's configure your knowledge base.")
	fmt.Println()

	cfg := config.DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "custom"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = config.ProviderType(providerStr)

	if cfg.Provider == config.ProviderCustom {
		basePrompt := promptui.Prompt{
			Label: "OpenAI-compatible base URL",
		}
		if cfg.LLMBase, err = basePrompt.Run(); err != nil {
			return nil, fmt.Errorf("llm base url: %w", err)
		}
	}

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	inferencePrompt := promptui.Prompt{
		Label:   "Inference service URL (embed/rerank)",
		Default: cfg.InferenceURL,
	}
	if cfg.InferenceURL, err = inferencePrompt.Run(); err != nil {
		return nil, fmt.Errorf("inference url: %w", err)
	}

	hostPrompt := promptui.Prompt{
		Label:   "Qdrant host",
		Default: cfg.QdrantHost,
	}
	if cfg.QdrantHost, err = hostPrompt.Run(); err != nil {
		return nil, fmt.Errorf("qdrant host: %w", err)
	}

	portPrompt := promptui.Prompt{
		Label:   "Qdrant gRPC port",
		Default: strconv.Itoa(cfg.QdrantPort),
		Validate: func(s string) error {
			if _, err := strconv.Atoi(s); err != nil {
				return fmt.Errorf("must be a number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("qdrant port: %w", err)
	}
	cfg.QdrantPort, _ = strconv.Atoi(portStr)

	collectionPrompt := promptui.Prompt{
		Label:   "Collection name",
		Default: cfg.Collection,
	}
	if cfg.Collection, err = collectionPrompt.Run(); err != nil {
		return nil, fmt.Errorf("collection: %w", err)
	}

	docsPrompt := promptui.Prompt{
		Label:   "Policy documents directory",
		Default: cfg.DocsDir,
	}
	if cfg.DocsDir, err = docsPrompt.Run(); err != nil {
		return nil, fmt.Errorf("docs dir: %w", err)
	}

	if key := config.APIKeyEnvVar(cfg.Provider); key != "" {
		fmt.Printf("\nRemember to export %s before running serve or ingest.\n", key)
	}

	return cfg, nil
}
