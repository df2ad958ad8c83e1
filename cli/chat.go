package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloudflow/support-agent/agent/agents/orchestrator"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one customer message through the agent pipeline",
		Long: "Send one customer message through the agent pipeline. The message can be a\n" +
			"positional arg or piped via stdin; the reply prints as JSON together with the\n" +
			"routing metadata and the conversation id to pass on the next turn.",
		Run: runChat,
	}

	cmd.Flags().StringP("conversation", "c", "", "Conversation ID (default: start a new conversation)")
	cmd.Flags().StringP("email", "e", "", "Customer email for account lookups")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	conversation, _ := cmd.Flags().GetString("conversation")
	email, _ := cmd.Flags().GetString("email")

	// Get the message: positional arg first, then check stdin
	var message string
	if len(args) > 0 {
		message = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			message = string(b)
		}
	}
	if strings.TrimSpace(message) == "" {
		exitErr("chat", fmt.Errorf("message is required (positional arg or stdin)"))
	}

	conversationID := uuid.New()
	if conversation != "" {
		id, err := uuid.Parse(conversation)
		if err != nil {
			exitErr("parse conversation id", err)
		}
		conversationID = id
	}

	svc, db, err := newService(cmd.Context())
	if err != nil {
		exitErr("start agent", err)
	}
	defer db.Close()

	resp, err := svc.HandleMessage(cmd.Context(), orchestrator.Request{
		ConversationID: conversationID,
		CustomerEmail:  email,
		Message:        strings.TrimSpace(message),
	})
	if err != nil {
		exitErr("chat", err)
	}

	b, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(b))
}
