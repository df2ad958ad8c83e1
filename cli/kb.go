package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/cloudflow/support-agent/rag"
	"github.com/cloudflow/support-agent/store"
)

func init() {
	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Vector search over active documents",
		Args:  cobra.MinimumNArgs(1),
		Run:   runKBSearch,
	}
	searchCmd.Flags().String("category", "", "Filter by category: faq, documentation, policy, troubleshooting")
	searchCmd.Flags().IntP("limit", "l", rag.DefaultTopK, "Max results")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active documents",
		Run:   runKBList,
	}
	listCmd.Flags().String("category", "", "Filter by category")
	listCmd.Flags().IntP("limit", "l", 0, "Max documents (default 100)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document counts by category",
		Run:   runKBStats,
	}

	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Embed and store a document",
		Long:  "Embed and store a document. Content can be a positional arg or piped via stdin.",
		Run:   runKBAdd,
	}
	addCmd.Flags().StringP("title", "t", "", "Document title (required)")
	addCmd.Flags().String("category", string(rag.CategoryFAQ), "Category: faq, documentation, policy, troubleshooting")
	addCmd.MarkFlagRequired("title")

	kbCmd.AddCommand(searchCmd, listCmd, statsCmd, addCmd)
	RootCmd.AddCommand(kbCmd)
}

func runKBSearch(cmd *cobra.Command, args []string) {
	categoryFlag, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	category, err := parseCategory(categoryFlag)
	if err != nil {
		exitErr("kb search", err)
	}

	retriever, _, db, err := newKnowledge(cmd)
	if err != nil {
		exitErr("kb search", err)
	}
	defer db.Close()

	results, err := retriever.Search(cmd.Context(), query, limit, category)
	if err != nil {
		exitErr("kb search", err)
	}
	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

// kbRow is the list view; full content stays out of the listing.
type kbRow struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Category  rag.Category `json:"category"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func runKBList(cmd *cobra.Command, args []string) {
	categoryFlag, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	category, err := parseCategory(categoryFlag)
	if err != nil {
		exitErr("kb list", err)
	}

	_, manager, db, err := newKnowledge(cmd)
	if err != nil {
		exitErr("kb list", err)
	}
	defer db.Close()

	docs, err := manager.List(cmd.Context(), category, limit)
	if err != nil {
		exitErr("kb list", err)
	}

	rows := make([]kbRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, kbRow{ID: d.ID, Title: d.Title, Category: d.Category, UpdatedAt: d.UpdatedAt})
	}
	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}

func runKBStats(cmd *cobra.Command, args []string) {
	_, manager, db, err := newKnowledge(cmd)
	if err != nil {
		exitErr("kb stats", err)
	}
	defer db.Close()

	stats, err := manager.Stats(cmd.Context())
	if err != nil {
		exitErr("kb stats", err)
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func runKBAdd(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	categoryFlag, _ := cmd.Flags().GetString("category")

	category, err := parseCategory(categoryFlag)
	if err != nil {
		exitErr("kb add", err)
	}

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, readErr := io.ReadAll(os.Stdin)
			if readErr != nil {
				exitErr("read stdin", readErr)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("kb add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	_, manager, db, err := newKnowledge(cmd)
	if err != nil {
		exitErr("kb add", err)
	}
	defer db.Close()

	doc, err := manager.AddDocument(cmd.Context(), rag.DocumentInput{
		Title:    title,
		Content:  strings.TrimSpace(content),
		Category: category,
	})
	if err != nil {
		exitErr("kb add", err)
	}

	b, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(b))
}

// newKnowledge wires the retrieval side only; no chat models involved.
func newKnowledge(cmd *cobra.Command) (*rag.Retriever, *rag.Manager, *bun.DB, error) {
	db, err := openDatabase(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	embedder, err := newEmbedder()
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	knowledge := store.NewKnowledgeStore(db)
	retriever, err := rag.NewRetriever(embedder, knowledge)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	manager, err := rag.NewManager(embedder, knowledge)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return retriever, manager, db, nil
}

func parseCategory(s string) (rag.Category, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	category := rag.Category(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range rag.Categories {
		if category == c {
			return category, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
