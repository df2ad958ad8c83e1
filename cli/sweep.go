package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Close active conversations older than a cutoff",
		Run:   runSweep,
	}

	cmd.Flags().Int("days", 30, "Age in days before an active conversation is closed")

	RootCmd.AddCommand(cmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	days, _ := cmd.Flags().GetInt("days")

	svc, db, err := newService(cmd.Context())
	if err != nil {
		exitErr("start agent", err)
	}
	defer db.Close()

	closed, err := svc.Sweep(cmd.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		exitErr("sweep", err)
	}
	fmt.Printf("closed %d stale conversations\n", closed)
}
