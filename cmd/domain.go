package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/verifier"
)

var domainJSON bool

var domainCmd = &cobra.Command{
	Use:   "domain <domain>",
	Short: "Check domain-level information",
	Long: `Check a domain against the free and disposable provider lists and,
when an API key is configured, the remote disposable-domain lookup.

Examples:
  emailvalidate domain mailinator.com
  emailvalidate domain gmial.com
  emailvalidate domain example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDomain,
}

func init() {
	rootCmd.AddCommand(domainCmd)

	domainCmd.Flags().BoolVar(&domainJSON, "json", false, "Output as JSON")
}

func runDomain(cmd *cobra.Command, args []string) error {
	domain := args[0]
	logger.Debug("checking domain", zap.String("domain", domain))

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := pipeline.CheckDomain(ctx, domain)

	if domainJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	return outputDomainConsole(result)
}

func outputDomainConsole(result *verifier.DomainResult) error {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Println()
	white.Printf("Domain: %s\n", result.Domain)
	if result.Suggestion != "" {
		yellow.Printf("Did you mean: %s\n", result.Suggestion)
	}
	fmt.Println()

	cyan.Println("Reference lists:")
	fmt.Printf("  Free Provider: %s\n", yesNo(result.IsFreeProvider, yellow))
	fmt.Printf("  Disposable:    %s\n", yesNo(result.IsDisposable, red))
	fmt.Println()

	cyan.Println("Remote lookup:")
	switch {
	case result.LookupProvider == "":
		yellow.Println("  Not configured")
	case result.Error != "":
		fmt.Printf("  Provider:      %s\n", result.LookupProvider)
		red.Printf("  Failed:        %s\n", result.Error)
	default:
		fmt.Printf("  Provider:      %s\n", result.LookupProvider)
		fmt.Printf("  Disposable:    %s\n", yesNo(result.LookupDisposable, red))
	}
	fmt.Println()

	return nil
}
