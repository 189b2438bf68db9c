package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// BootstrapStep defines one parameter collected from the operator.
type BootstrapStep struct {
	// HumanLabel is the display name shown to the operator.
	HumanLabel string

	// SSMCategoryKey becomes /{env}/deploynotify/{SSMCategoryKey}.
	SSMCategoryKey string

	// EnvVar is the variable the functions read. The deployment sets
	// EnvVar_SSM_PARAM to the parameter path.
	EnvVar string

	Prompt     string
	ValidateFn func(ctx context.Context, input string) ValidationResult

	// IsSecret masks the input on a terminal and stores a SecureString.
	IsSecret bool
}

// maxRetries is the number of attempts per step before the bootstrap aborts.
const maxRetries = 5

var errSkipped = errors.New("parameter skipped by operator")

// BuildInventory returns the ordered list of parameters to populate.
func BuildInventory(v *Validator) []BootstrapStep {
	return []BootstrapStep{
		{
			HumanLabel:     "Slack Bot Token",
			SSMCategoryKey: "slack/token",
			EnvVar:         "SLACK_TOKEN",
			Prompt:         "Paste the bot token of the Slack app (OAuth & Permissions > Bot User OAuth Token).",
			ValidateFn:     v.ValidateSlackToken,
			IsSecret:       true,
		},
		{
			HumanLabel:     "Distributions",
			SSMCategoryKey: "release/distributions",
			EnvVar:         "DISTRIBUTIONS",
			Prompt: "Enter the environment table as one line of JSON, e.g.\n" +
				`  [{"name":"prod","bucket":"arn:aws:s3:::prod-site","distributionId":"E1ABCDEF"}]`,
			ValidateFn: v.ValidateDistributions,
		},
	}
}

// BootstrapRunner walks the inventory: probe SSM, prompt, validate, write.
type BootstrapRunner struct {
	SSM       *ParameterStore
	Validator *Validator
	Stdin     io.Reader
	Stderr    io.Writer

	// scanner is shared so buffered reads are not lost between prompts.
	scanner *bufio.Scanner

	inventoryOverride []BootstrapStep
}

// NewBootstrapRunner creates a BootstrapRunner with production dependencies.
func NewBootstrapRunner(bctx *BootstrapContext, slackAPIURL string) *BootstrapRunner {
	return &BootstrapRunner{
		SSM:       NewParameterStore(bctx),
		Validator: NewValidator(slackAPIURL),
		Stdin:     os.Stdin,
		Stderr:    os.Stderr,
	}
}

// stepResult records the outcome of a single step.
type stepResult struct {
	Label  string
	EnvVar string
	Action string // "written", "overwritten", "skipped", "missing"
	Path   string
}

// Run executes every step and returns their results.
func (r *BootstrapRunner) Run(ctx context.Context) ([]stepResult, error) {
	inventory := r.inventoryOverride
	if inventory == nil {
		inventory = BuildInventory(r.Validator)
	}

	results := make([]stepResult, 0, len(inventory))
	for i, step := range inventory {
		fmt.Fprintf(r.Stderr, "\n[%d/%d] %s\n", i+1, len(inventory), step.HumanLabel)

		result, err := r.processStep(ctx, step)
		if err != nil {
			return results, fmt.Errorf("step %q failed: %w", step.HumanLabel, err)
		}
		results = append(results, result)
	}

	r.printSummary(results)
	return results, nil
}

func (r *BootstrapRunner) processStep(ctx context.Context, step BootstrapStep) (stepResult, error) {
	path := r.SSM.Path(step)
	result := stepResult{Label: step.HumanLabel, EnvVar: step.EnvVar, Path: path}

	exists, err := r.SSM.Exists(ctx, step)
	if err != nil {
		return result, err
	}

	if exists {
		fmt.Fprintf(r.Stderr, "  Parameter already exists: %s\n", path)
		choice, err := r.promptSkipOrOverwrite()
		if err != nil {
			return result, fmt.Errorf("reading skip/overwrite choice: %w", err)
		}
		if choice == "skip" {
			fmt.Fprintf(r.Stderr, "  Skipped.\n")
			result.Action = "skipped"
			return result, nil
		}
	}

	value, err := r.promptAndValidate(ctx, step)
	if errors.Is(err, errSkipped) {
		fmt.Fprintf(r.Stderr, "  Skipped.\n")
		result.Action = "skipped"
		if !exists {
			result.Action = "missing"
		}
		return result, nil
	}
	if err != nil {
		return result, err
	}

	if err := r.SSM.Store(ctx, step, value, exists); err != nil {
		return result, err
	}

	result.Action = "written"
	if exists {
		result.Action = "overwritten"
	}
	fmt.Fprintf(r.Stderr, "  Stored: %s\n", path)
	return result, nil
}

func (r *BootstrapRunner) promptAndValidate(ctx context.Context, step BootstrapStep) (string, error) {
	fmt.Fprintf(r.Stderr, "\n  %s\n\n", step.Prompt)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var input string
		var err error
		if step.IsSecret {
			input, err = r.readSecretInput("  > ")
		} else {
			input, err = r.readInput("  > ")
		}
		if err != nil {
			return "", fmt.Errorf("reading input for %s: %w", step.HumanLabel, err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			return "", errSkipped
		}

		// Never echo secrets.
		if step.IsSecret {
			fmt.Fprintf(r.Stderr, "  Received %d chars.\n", len(input))
		}

		if step.ValidateFn != nil {
			vr := step.ValidateFn(ctx, input)
			if !vr.Valid {
				fmt.Fprintf(r.Stderr, "  Validation failed: %s\n", vr.Message)
				if attempt < maxRetries {
					fmt.Fprintf(r.Stderr, "  Try again (%d/%d).\n", attempt, maxRetries)
				}
				continue
			}
			fmt.Fprintf(r.Stderr, "  Validated: %s\n", vr.Message)
		}

		return input, nil
	}

	return "", fmt.Errorf("maximum retries (%d) exceeded for %s", maxRetries, step.HumanLabel)
}

func (r *BootstrapRunner) scanLine() (string, error) {
	if r.scanner == nil {
		r.scanner = bufio.NewScanner(r.Stdin)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *BootstrapRunner) readInput(prompt string) (string, error) {
	fmt.Fprint(r.Stderr, prompt)
	return r.scanLine()
}

// readSecretInput disables echo when stdin is a terminal and falls back to
// line reading for piped input.
func (r *BootstrapRunner) readSecretInput(prompt string) (string, error) {
	fmt.Fprint(r.Stderr, prompt)

	if f, ok := r.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret input: %w", err)
		}
		return string(secret), nil
	}

	return r.scanLine()
}

func (r *BootstrapRunner) promptSkipOrOverwrite() (string, error) {
	for {
		fmt.Fprint(r.Stderr, "  [S]kip or [O]verwrite? ")
		line, err := r.scanLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "skip":
			return "skip", nil
		case "o", "overwrite":
			return "overwrite", nil
		}
		fmt.Fprintln(r.Stderr, "  Please enter S or O.")
	}
}

func (r *BootstrapRunner) printSummary(results []stepResult) {
	fmt.Fprintln(r.Stderr)
	fmt.Fprintln(r.Stderr, "------------------------------------------------------------")
	fmt.Fprintln(r.Stderr, "  Summary")
	fmt.Fprintln(r.Stderr, "------------------------------------------------------------")
	for _, res := range results {
		fmt.Fprintf(r.Stderr, "  %-20s %-12s %s\n", res.Label, res.Action, res.Path)
	}
	fmt.Fprintln(r.Stderr)
}

// WritePointers prints the NAME_SSM_PARAM assignments for every stored or
// pre-existing parameter, ready to paste into the function environment.
func WritePointers(w io.Writer, results []stepResult) {
	for _, res := range results {
		if res.Action == "missing" {
			continue
		}
		fmt.Fprintf(w, "%s_SSM_PARAM=%s\n", res.EnvVar, res.Path)
	}
}
