// Package cli implements the support-agent CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/cloudflow/support-agent/agent/agents/orchestrator"
	"github.com/cloudflow/support-agent/agent/agents/specialist"
	llmx "github.com/cloudflow/support-agent/agent/llm"
	promptx "github.com/cloudflow/support-agent/agent/prompt"
	toolx "github.com/cloudflow/support-agent/agent/tool"
	configx "github.com/cloudflow/support-agent/pkg/config"
	logx "github.com/cloudflow/support-agent/pkg/logger"
	tracex "github.com/cloudflow/support-agent/pkg/trace"
	"github.com/cloudflow/support-agent/rag"
	"github.com/cloudflow/support-agent/store"
)

var (
	envFile   string
	debugFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "support-agent",
	Short: "LLM customer support agent for CloudFlow",
	Long: "Routes customer messages to FAQ, order, and escalation specialists backed by\n" +
		"Postgres conversation memory and a pgvector knowledge base.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		conf, err := configx.New[logx.Config]("LOG", configOpts()...)
		if err != nil {
			exitErr("load log config", err)
		}
		if debugFlag {
			conf.Debug = true
		}
		logx.Init(*conf)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Env file to load before reading config (default: $SUPPORT_AGENT_ENV, then ./.env)")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func configOpts() []configx.Options {
	if envFile == "" {
		return nil
	}
	return []configx.Options{{EnvFile: envFile}}
}

// openDatabase connects and makes sure the schema exists. Schema creation
// is idempotent, so every command can call this.
func openDatabase(ctx context.Context) (*bun.DB, error) {
	cfg, err := configx.New[store.Config]("DATABASE", configOpts()...)
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	db, err := store.Connect(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	if err := store.CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newEmbedder() (*rag.OpenAIEmbedder, error) {
	llmCfg, err := configx.New[llmx.Config]("OPENAI", configOpts()...)
	if err != nil {
		return nil, fmt.Errorf("load openai config: %w", err)
	}
	embCfg, err := configx.New[rag.EmbeddingConfig]("EMBEDDING", configOpts()...)
	if err != nil {
		return nil, fmt.Errorf("load embedding config: %w", err)
	}
	return rag.NewOpenAIEmbedder(llmx.NewOpenAIClient(*llmCfg), *embCfg)
}

// newService wires the whole pipeline. The caller owns the returned DB
// handle and closes it when done.
func newService(ctx context.Context) (*orchestrator.Service, *bun.DB, error) {
	llmCfg, err := configx.New[llmx.Config]("OPENAI", configOpts()...)
	if err != nil {
		return nil, nil, fmt.Errorf("load openai config: %w", err)
	}
	embCfg, err := configx.New[rag.EmbeddingConfig]("EMBEDDING", configOpts()...)
	if err != nil {
		return nil, nil, fmt.Errorf("load embedding config: %w", err)
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := buildService(db, *llmCfg, *embCfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}

func buildService(db *bun.DB, llmCfg llmx.Config, embCfg rag.EmbeddingConfig) (*orchestrator.Service, error) {
	conversations := store.NewConversationStore(db)
	customers := store.NewCustomerStore(db)
	tickets := store.NewTicketStore(db)
	knowledge := store.NewKnowledgeStore(db)

	embedder, err := rag.NewOpenAIEmbedder(llmx.NewOpenAIClient(llmCfg), embCfg)
	if err != nil {
		return nil, err
	}
	retriever, err := rag.NewRetriever(embedder, knowledge)
	if err != nil {
		return nil, err
	}
	catalog, err := toolx.NewCatalog(retriever, customers, tickets)
	if err != nil {
		return nil, err
	}
	agents, err := specialist.NewRegistry(llmCfg, promptx.Load(), catalog, conversations, tracex.New())
	if err != nil {
		return nil, err
	}
	return orchestrator.New(conversations, customers, agents)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
