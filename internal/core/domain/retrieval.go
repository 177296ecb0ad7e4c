package domain

// Hit is one scored retrieval candidate. Score is stage-relative:
// cosine similarity after dense search, BM25 after lexical search,
// an RRF sum after fusion, a blended value after reranking. Scores
// from different stages are never compared against each other.
type Hit struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// LexicalDocument is one indexable unit for the BM25 side: the point
// id shared with the vector index plus snippet text and payload.
type LexicalDocument struct {
	ID      string
	Text    string
	Payload Payload
}

// RoutingStrategy selects how a user query is expanded before search.
type RoutingStrategy string

const (
	// StrategySingle searches with the query as given.
	StrategySingle RoutingStrategy = "single"
	// StrategyTranslate translates the query to the corpus language
	// first and searches only the translation.
	StrategyTranslate RoutingStrategy = "translate"
	// StrategyDual searches both the original and the translated
	// query and fuses the two result lists.
	StrategyDual RoutingStrategy = "dual"
)
