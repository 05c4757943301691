package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/output"
	"github.com/nephila016/emailvalidate/internal/verifier"
)

var (
	checkOutput string
	checkJSON   bool
)

var checkCmd = &cobra.Command{
	Use:   "check <email>",
	Short: "Validate a single email address",
	Long: `Run the validation pipeline once for a single address.

The pipeline:
  1. Format check
  2. Blacklisted keywords in the local part
  3. Classification (free, disposable, role-based)
  4. Remote disposable-domain lookup (when an API key is configured)
  5. Verification simulation (when Mailosaur is configured)

Examples:
  emailvalidate check user@example.com
  emailvalidate check user@example.com --json
  emailvalidate check user@example.com -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Output file (.json, .jsonl, .csv or .txt)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the HTTP response body as JSON to stdout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	email := args[0]
	logger.Debug("checking email", zap.String("email", logEmail(cfg, email)))

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := pipeline.Validate(ctx, email)

	if checkJSON {
		return outputJSON(result)
	}

	if checkOutput != "" {
		return outputToFile(result, checkOutput)
	}

	return outputConsole(result)
}

func outputJSON(result *verifier.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result.Response)
}

func outputToFile(result *verifier.Result, filename string) error {
	if err := output.WriteResultsToFile(filename, []*verifier.Result{result}); err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("Result saved to: %s\n", filename)
	}
	return nil
}

func yesNo(v bool, yes *color.Color) string {
	if v {
		return yes.Sprint("Yes")
	}
	return color.New(color.FgGreen).Sprint("No")
}

func outputConsole(result *verifier.Result) error {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Println()
	white.Printf("Email: %s\n", result.Email)
	fmt.Println()

	fmt.Print("Outcome: ")
	switch result.Outcome {
	case verifier.OutcomeValid:
		green.Println(result.Outcome)
	case verifier.OutcomeLookupFailed, verifier.OutcomeVerificationFailed, verifier.OutcomeMisconfigured:
		yellow.Println(result.Outcome)
	default:
		red.Println(result.Outcome)
	}
	fmt.Printf("Message: %s\n", result.Response.Message)
	if e := result.ErrorString(); e != "" && !result.Valid() {
		fmt.Printf("Reason:  %s\n", e)
	}
	if result.LookupDegraded {
		yellow.Println("Warning: disposable lookup unavailable, domain treated as not disposable")
	}

	if c := result.Classification; c != nil {
		fmt.Println()
		cyan.Println("Classification:")
		fmt.Printf("  Domain:        %s\n", c.Domain)
		fmt.Printf("  Category:      %s\n", c.Category())
		fmt.Printf("  Free Provider: %s\n", yesNo(c.IsFreeEmail, yellow))
		fmt.Printf("  Disposable:    %s\n", yesNo(c.IsDisposableEmail, red))
		fmt.Printf("  Role Account:  %s\n", yesNo(c.IsRoleBasedEmail, yellow))
		if s := verifier.SuggestTypoFix(c.Domain); s != "" {
			fmt.Printf("  Did you mean:  %s\n", s)
		}
	}

	if result.Valid() {
		fmt.Println()
		cyan.Println("Verification:")
		if result.SimulatedValidation() {
			fmt.Printf("  Simulated:     %s\n", green.Sprint("Yes"))
			fmt.Printf("  Test Address:  %s\n", result.TestEmailAddress())
		} else {
			fmt.Printf("  Simulated:     %s\n", yellow.Sprint("Not performed"))
		}
	}

	fmt.Println()
	fmt.Printf("Latency: %dms\n", result.LatencyMs)
	fmt.Println()

	return nil
}
