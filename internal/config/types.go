package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderCustom ProviderType = "custom" // any OpenAI-compatible endpoint
)

// Config is the top-level policyrag configuration, corresponding to .policyrag.yml.
type Config struct {
	// LLM collaborator (routing + generation).
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	LLMBase  string       `yaml:"llm_base" koanf:"llm_base"` // base URL for custom providers

	// Inference collaborator (embedding + reranking).
	InferenceURL string `yaml:"inference_url" koanf:"inference_url"`

	// Vector store collaborator.
	QdrantHost string `yaml:"qdrant_host" koanf:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port" koanf:"qdrant_port"`
	Collection string `yaml:"collection" koanf:"collection"`

	// Pipeline parameters.
	RetrievalK      int     `yaml:"retrieval_k" koanf:"retrieval_k"`
	RerankThreshold float64 `yaml:"rerank_threshold" koanf:"rerank_threshold"`

	// Serving.
	Port         int    `yaml:"port" koanf:"port"`
	EventLogPath string `yaml:"event_log" koanf:"event_log"`
	DataDir      string `yaml:"data_dir" koanf:"data_dir"`

	// Ingestion.
	DocsDir      string   `yaml:"docs_dir" koanf:"docs_dir"`
	PartitionURL string   `yaml:"partition_url" koanf:"partition_url"`
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
}
