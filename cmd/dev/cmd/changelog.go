package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// chglogArgs builds the git-chglog argument list.
func chglogArgs(next, output, tag string) []string {
	var args []string
	if next != "" {
		args = append(args, "--next-tag", next)
	}
	if output == "" {
		output = "CHANGELOG.md"
	}
	args = append(args, "--output", output)
	if tag != "" {
		args = append(args, tag)
	}
	return args
}

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate or update CHANGELOG.md from git history",
		Long: `Generate CHANGELOG.md with git-chglog from conventional commits
(<type>[optional scope]: <description>).

Install git-chglog first:
  go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			next, _ := cmd.Flags().GetString("next")
			output, _ := cmd.Flags().GetString("output")
			tag, _ := cmd.Flags().GetString("tag")

			if _, err := exec.LookPath("git-chglog"); err != nil {
				return fmt.Errorf("git-chglog not installed: %w", err)
			}
			chglog := exec.CommandContext(cmd.Context(), "git-chglog", chglogArgs(next, output, tag)...)
			chglog.Stdout = os.Stdout
			chglog.Stderr = os.Stderr
			slog.Info("running git-chglog", "args", chglog.Args[1:])
			if err := chglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("next", "", "Next version tag (e.g., v1.2.0)")
	cmd.Flags().String("output", "CHANGELOG.md", "Output file path")
	cmd.Flags().String("tag", "", "Generate changelog for specific tag")
	return cmd
}
