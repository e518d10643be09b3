package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/internal/engine"
	"github.com/gavelhq/gavel/internal/llm"
	"github.com/gavelhq/gavel/internal/model"
	"github.com/gavelhq/gavel/internal/output"
)

// Shared review flags
var (
	flagProject     string
	flagSource      string
	flagTarget      string
	flagCommit      string
	flagMode        string
	flagTaskKey     string
	flagModel       string
	flagFormat      string
	flagOut         string
	flagFailOn      string
	flagWorkers     int
	flagCostCeiling float64
	flagMaxFiles    int
	flagGitLabURL   string
	flagGitLabToken string
	flagStore       string
)

// addConfigFlags registers the flags that override config values.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "Concurrent analysis workers")
	cmd.Flags().Float64Var(&flagCostCeiling, "cost-ceiling", 0, "Estimated cost budget in dollars")
	cmd.Flags().IntVar(&flagMaxFiles, "max-files", 0, "Maximum files to analyze")
	cmd.Flags().StringVar(&flagGitLabURL, "gitlab-url", "", "Git host base URL")
	cmd.Flags().StringVar(&flagGitLabToken, "gitlab-token", "", "Git host access token")
	cmd.Flags().StringVar(&flagStore, "store", "", "Path to the local state database")
}

func addReviewFlags(cmd *cobra.Command) {
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&flagProject, "project", "", "Project path or id on the git host")
	cmd.Flags().StringVar(&flagSource, "source", "", "Source branch")
	cmd.Flags().StringVar(&flagTarget, "target", "", "Target branch")
	cmd.Flags().StringVar(&flagCommit, "commit", "", "Source commit SHA (overrides branch head)")
	cmd.Flags().StringVar(&flagMode, "mode", "full", "Review mode (full, security, performance, quick)")
	cmd.Flags().StringVar(&flagTaskKey, "task-key", "", "Logical task key correlating submissions")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, low, medium, high)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagWorkers > 0 {
		m["workers"] = fmt.Sprintf("%d", flagWorkers)
	}
	if flagCostCeiling > 0 {
		m["costCeiling"] = fmt.Sprintf("%g", flagCostCeiling)
	}
	if flagMaxFiles > 0 {
		m["maxFiles"] = fmt.Sprintf("%d", flagMaxFiles)
	}
	if flagGitLabURL != "" {
		m["gitlabURL"] = flagGitLabURL
	}
	if flagGitLabToken != "" {
		m["gitlabToken"] = flagGitLabToken
	}
	if flagStore != "" {
		m["store"] = flagStore
	}
	return m
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a merge request",
	Long:  "Review the changes between a source and target branch, printing findings and a score.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		eng, closer, err := buildEngine(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer closer()

		cs := model.ChangeSet{
			Project:      flagProject,
			SourceBranch: flagSource,
			TargetBranch: flagTarget,
			SourceCommit: flagCommit,
			Mode:         flagMode,
			TaskKey:      flagTaskKey,
		}

		result, err := eng.RunReview(context.Background(), cs)
		if err != nil {
			var verr *engine.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitUsageError
				return nil
			}
			if llm.IsAuthError(err) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitAuthError
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if err := output.WriteResult(result, cfg.Format, flagOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if meetsThreshold(result.Findings, flagFailOn) {
			exitCode = ExitFindings
		}
		return nil
	},
}

// meetsThreshold reports whether any finding is at or above the named
// severity threshold.
func meetsThreshold(findings []model.Finding, threshold string) bool {
	if threshold == "" || threshold == "none" {
		return false
	}
	min := model.SeverityRank(model.Severity(threshold))
	if min == 0 {
		return false
	}
	for _, f := range findings {
		if model.SeverityRank(f.Severity) >= min {
			return true
		}
	}
	return false
}

func init() {
	addReviewFlags(reviewCmd)
}
