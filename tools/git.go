package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/akofink/textual-cli-agent/model"
)

func registerGitTools(r *Registry) error {
	if err := r.Register(model.ToolSpec{
		Name:        "git_status",
		Description: "Show the repository status (porcelain or full).",
		Parameters: ObjectSchema(map[string]any{
			"porcelain": BooleanParam("Use short branch-annotated output (default true)"),
		}),
	}, gitStatus); err != nil {
		return err
	}

	if err := r.Register(model.ToolSpec{
		Name:        "git_diff",
		Description: "Show a git diff. Set staged for staged changes, revision for a specific commit or range, path to limit the diff.",
		Parameters: ObjectSchema(map[string]any{
			"revision": StringParam("Commit or range to diff"),
			"path":     StringParam("Limit the diff to this path"),
			"staged":   BooleanParam("Diff staged changes"),
		}),
	}, gitDiff); err != nil {
		return err
	}

	return r.Register(model.ToolSpec{
		Name:        "git_log",
		Description: "Show recent commits. Limit controls the number of entries.",
		Parameters: ObjectSchema(map[string]any{
			"limit":   IntegerParam("Number of commits to show (default 5)"),
			"oneline": BooleanParam("One line per commit (default true)"),
			"path":    StringParam("Limit the log to this path"),
		}),
	}, gitLog)
}

func runGit(ctx context.Context, args ...string) (string, error) {
	git, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("git executable not found on PATH")
	}

	cmd := exec.CommandContext(ctx, git, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("git %s exited with error", strings.Join(args, " "))
		if trimmed := strings.TrimSpace(stderr.String()); trimmed != "" {
			msg = fmt.Sprintf("%s: %s", msg, trimmed)
		}
		return strings.TrimSpace(stderr.String()), fmt.Errorf("%s", msg)
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

func gitStatus(ctx context.Context, args map[string]any) (any, error) {
	porcelain := true
	if v, ok := args["porcelain"].(bool); ok {
		porcelain = v
	}

	gitArgs := []string{"status"}
	if porcelain {
		gitArgs = append(gitArgs, "--short", "--branch")
	}

	out, err := runGit(ctx, gitArgs...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return "Working tree clean", nil
	}
	return out, nil
}

func gitDiff(ctx context.Context, args map[string]any) (any, error) {
	gitArgs := []string{"diff"}
	if boolArg(args, "staged") {
		gitArgs = append(gitArgs, "--cached")
	}
	if revision, ok := stringArg(args, "revision"); ok && revision != "" {
		gitArgs = append(gitArgs, revision)
	}
	if path, ok := stringArg(args, "path"); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	return runGit(ctx, gitArgs...)
}

func gitLog(ctx context.Context, args map[string]any) (any, error) {
	limit := 5
	if v, ok := intArg(args, "limit"); ok {
		limit = v
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be a positive integer")
	}

	oneline := true
	if v, ok := args["oneline"].(bool); ok {
		oneline = v
	}

	gitArgs := []string{"log", fmt.Sprintf("-%d", limit)}
	if oneline {
		gitArgs = append(gitArgs, "--oneline")
	}
	if path, ok := stringArg(args, "path"); ok && path != "" {
		gitArgs = append(gitArgs, "--", path)
	}

	out, err := runGit(ctx, gitArgs...)
	if err != nil {
		// A fresh repository with no commits is not an error worth
		// surfacing to the model.
		if strings.Contains(out, "does not have any commits yet") {
			return out, nil
		}
		return nil, err
	}
	return out, nil
}
