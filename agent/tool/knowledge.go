package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudflow/support-agent/rag"
)

const knowledgeSearchTopK = 3

// Searcher answers knowledge-base queries; *rag.Retriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, category rag.Category) ([]rag.SearchResult, error)
}

// executeKnowledgeSearch answers search_knowledge_base. Retrieval failures
// propagate as errors and fail the turn; an empty result set is a normal
// answer.
func (c *Catalog) executeKnowledgeSearch(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "Error searching knowledge base: query is required", nil
	}
	category := rag.Category(strings.TrimSpace(stringArg(args, "category")))

	results, err := c.retriever.Search(ctx, query, knowledgeSearchTopK, category)
	if err != nil {
		return "", err
	}
	return formatSearchResults(results), nil
}

func formatSearchResults(results []rag.SearchResult) string {
	if len(results) == 0 {
		return "No relevant information found in the knowledge base."
	}

	formatted := make([]string, 0, len(results))
	for i, res := range results {
		formatted = append(formatted, fmt.Sprintf(
			"**Result %d** (Relevance: %.0f%%)\nTitle: %s\nCategory: %s\nContent: %s\n",
			i+1,
			res.Similarity*100,
			res.Document.Title,
			res.Document.Category,
			res.Document.Content,
		))
	}
	return strings.Join(formatted, "\n---\n")
}
