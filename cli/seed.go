package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudflow/support-agent/rag"
	"github.com/cloudflow/support-agent/seed"
	"github.com/cloudflow/support-agent/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset",
		Long: "Load demo customers, subscriptions, invoices, tickets, and knowledge\n" +
			"documents. Sections that already hold data are skipped.",
		Run: runSeed,
	}

	RootCmd.AddCommand(cmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	db, err := openDatabase(cmd.Context())
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	embedder, err := newEmbedder()
	if err != nil {
		exitErr("create embedder", err)
	}
	manager, err := rag.NewManager(embedder, store.NewKnowledgeStore(db))
	if err != nil {
		exitErr("create knowledge manager", err)
	}

	seeder, err := seed.New(store.NewCustomerStore(db), store.NewTicketStore(db), manager)
	if err != nil {
		exitErr("create seeder", err)
	}
	report, err := seeder.Run(cmd.Context())
	if err != nil {
		exitErr("seed", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
