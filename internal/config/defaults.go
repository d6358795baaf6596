package config

// DefaultExcludes are glob patterns skipped during ingestion by default.
var DefaultExcludes = []string{
	".git/**",
	"**/~$*",
	"**/*.tmp",
	"**/.DS_Store",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		Model:           "gpt-4o-mini",
		InferenceURL:    "http://localhost:8001",
		QdrantHost:      "localhost",
		QdrantPort:      6334,
		Collection:      "hr_policies",
		RetrievalK:      10,
		RerankThreshold: -3.0,
		Port:            8000,
		EventLogPath:    "logs/rag_events.jsonl",
		DataDir:         ".policyrag",
		DocsDir:         "policies",
		PartitionURL:    "http://localhost:8002",
		Include:         []string{"**/*.pdf", "**/*.docx", "**/*.md"},
		Exclude:         DefaultExcludes,
	}
}
