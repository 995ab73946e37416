package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// RunCmd starts the monitor against the simulated sensor.
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run tempmon against the simulated sensor",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			count, _ := cmd.Flags().GetInt("count")
			debug, _ := cmd.Flags().GetBool("debug")

			goArgs := []string{"run", "./cmd/tempmon", "--adapter", "sim", "--interval", interval.String()}
			if debug {
				goArgs = append(goArgs, "--verbose")
			}
			goArgs = append(goArgs, "watch", "--count", strconv.Itoa(count))

			run := exec.CommandContext(cmd.Context(), "go", goArgs...)
			run.Stdout = os.Stdout
			run.Stderr = os.Stderr
			if err := run.Run(); err != nil {
				return fmt.Errorf("tempmon exited: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Duration("interval", time.Second, "polling interval")
	cmd.Flags().Int("count", 0, "stop after this many readings")
	return cmd
}
