package vectorstore

// Chunk is one retrieved policy fragment. Score is populated by the
// re-ranking stage and is nil before it.
type Chunk struct {
	ID             string
	Content        string
	SourceDocument string
	SectionHeader  string
	PageNumber     string
	Score          *float64
}

// Payload is the schema of a stored point's metadata. Fields absent from a
// stored payload are defaulted at the storage-client boundary.
type Payload struct {
	SourceDocument string
	PageNumber     int
	SectionHeader  string
	ContentType    string
	RawContent     string
	ChunkIndex     int
}

// Point is a hybrid (dense + sparse) vector point to be upserted.
type Point struct {
	ID            string
	Dense         []float32
	SparseIndices []uint32
	SparseValues  []float32
	Payload       Payload
}

// HybridQuery carries both modalities of a query embedding.
type HybridQuery struct {
	Dense         []float32
	SparseIndices []uint32
	SparseValues  []float32
	Limit         int
}
