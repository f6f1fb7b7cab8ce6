package query

import "strings"

// synonymMap expands AI/agent domain shorthand into the phrases users
// actually indexed. Keys are normalized lowercase terms.
var synonymMap = map[string][]string{
	"chatbot":         {"conversational ai", "chat agent", "dialogue system"},
	"llm":             {"large language model", "language model"},
	"ml":              {"machine learning"},
	"ai":              {"artificial intelligence"},
	"nlp":             {"natural language processing"},
	"cv":              {"computer vision"},
	"rag":             {"retrieval augmented generation"},
	"genai":           {"generative ai", "generative artificial intelligence"},
	"devops":          {"development operations", "ci cd"},
	"api":             {"application programming interface", "rest api", "graphql"},
	"bot":             {"chatbot", "automation agent"},
	"scraper":         {"web scraper", "web crawler", "data extraction"},
	"embeddings":      {"vector embeddings", "text embeddings"},
	"finetuning":      {"fine tuning", "model training"},
	"code review":     {"code analysis", "static analysis"},
	"code generation": {"code synthesis", "code completion"},
	"trading":         {"algorithmic trading", "quantitative trading"},
	"crypto":          {"cryptocurrency", "blockchain", "web3"},
	"sql":             {"database query", "structured query language"},
	"vector":          {"vector database", "vector store", "embeddings"},
	"agent":           {"ai agent", "autonomous agent"},
	"mcp":             {"model context protocol"},
	"a2a":             {"agent to agent"},
	"openclew":        {"openclaw"},
}

// Synonyms returns expansions for the normalized query: per-token matches
// first, then the whole multi-word key. Order is deterministic, duplicates
// removed.
func Synonyms(normalized string) []string {
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(syns []string) {
		for _, s := range syns {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}

	for _, tok := range tokens {
		add(synonymMap[tok])
	}
	add(synonymMap[strings.Join(tokens, " ")])

	return out
}
