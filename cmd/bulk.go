package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/output"
	"github.com/nephila016/emailvalidate/internal/server"
	"github.com/nephila016/emailvalidate/internal/verifier"
	"github.com/nephila016/emailvalidate/internal/worker"
)

var (
	bulkFile           string
	bulkOutput         string
	bulkWorkers        int
	bulkDelay          float64
	bulkJitter         float64
	bulkHealthEmail    string
	bulkHealthInterval int
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Validate multiple emails from a file",
	Long: `Validate email addresses from an input file using concurrent workers.

Features:
  - Concurrent validation with configurable workers
  - Delay and jitter between remote calls
  - Health checks with a known-valid email
  - Progress bar and statistics
  - Incremental saving (CSV, JSON, JSONL or TXT by extension)
  - Graceful shutdown on Ctrl+C

Examples:
  emailvalidate bulk -f emails.txt -o results.csv
  emailvalidate bulk -f emails.txt -w 5 --delay 0.2
  emailvalidate bulk -f emails.txt --health-email jane.doe@gmail.com -o results.json`,
	Args: cobra.NoArgs,
	RunE: runBulk,
}

func init() {
	rootCmd.AddCommand(bulkCmd)

	defaults := worker.DefaultPoolConfig()

	bulkCmd.Flags().StringVarP(&bulkFile, "file", "f", "", "Input file with emails (required)")
	bulkCmd.Flags().StringVarP(&bulkOutput, "output", "o", "results.csv", "Output file")
	bulkCmd.Flags().IntVarP(&bulkWorkers, "workers", "w", defaults.Workers, "Number of concurrent workers")
	bulkCmd.Flags().Float64Var(&bulkDelay, "delay", defaults.Delay.Seconds(), "Delay between checks per worker (seconds)")
	bulkCmd.Flags().Float64Var(&bulkJitter, "jitter", defaults.Jitter.Seconds(), "Random jitter added to delay (seconds)")
	bulkCmd.Flags().StringVar(&bulkHealthEmail, "health-email", "", "Known-valid email for health checks")
	bulkCmd.Flags().IntVar(&bulkHealthInterval, "health-interval", defaults.HealthInterval, "Health check every N emails per worker")

	_ = bulkCmd.MarkFlagRequired("file")
}

type bulkStats struct {
	sync.Mutex
	outcomes map[verifier.Outcome]int
	degraded int
}

func runBulk(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	emails, err := loadEmails(bulkFile)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return fmt.Errorf("no emails found in %s", bulkFile)
	}

	if !quiet {
		printBulkSettings(len(emails))
	}

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := server.WithShutdownSignals(parent, logger)
	defer cancel()

	if bulkHealthEmail != "" {
		if !runInitialHealthCheck(ctx, pipeline) {
			return fmt.Errorf("initial health check failed")
		}
	}

	writer, err := output.NewWriter(bulkOutput, output.DetectFormat(bulkOutput))
	if err != nil {
		return err
	}

	poolConfig := worker.DefaultPoolConfig()
	poolConfig.Workers = bulkWorkers
	poolConfig.Delay = time.Duration(bulkDelay * float64(time.Second))
	poolConfig.Jitter = time.Duration(bulkJitter * float64(time.Second))
	poolConfig.HealthEmail = bulkHealthEmail
	poolConfig.HealthInterval = bulkHealthInterval
	poolConfig.Logger = logger
	pool := worker.NewPool(ctx, pipeline, poolConfig)

	stats := &bulkStats{outcomes: make(map[verifier.Outcome]int)}

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(len(emails),
			progressbar.OptionSetDescription("Validating"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("emails"),
		)
	}

	var writeMu sync.Mutex
	var writeErr error
	pool.SetCallback(func(result *verifier.Result) {
		stats.Lock()
		stats.outcomes[result.Outcome]++
		if result.LookupDegraded {
			stats.degraded++
		}
		stats.Unlock()

		writeMu.Lock()
		if err := writer.Write(result); err != nil && writeErr == nil {
			writeErr = err
		} else if err == nil {
			_ = writer.Flush()
		}
		writeMu.Unlock()

		if bar != nil {
			_ = bar.Add(1)
		}

		logger.Debug("result",
			zap.String("email", logEmail(cfg, result.Email)),
			zap.String("outcome", string(result.Outcome)),
			zap.Int64("latency_ms", result.LatencyMs))
	})

	pool.Start()

	go func() {
		for i, email := range emails {
			if ctx.Err() != nil {
				break
			}
			pool.Submit(email, i)
		}
		pool.Close()
	}()

	// results are handled in the callback
	for range pool.Results() {
	}

	if err := writer.Close(); err != nil && writeErr == nil {
		writeErr = err
	}

	if ctx.Err() != nil && !quiet {
		fmt.Println("\nInterrupted, partial results kept.")
	}

	if !quiet {
		if bar != nil {
			_ = bar.Finish()
		}
		printBulkSummary(stats, pool.GetStats(startTime))
	}

	if writeErr != nil {
		return fmt.Errorf("failed to write results: %w", writeErr)
	}

	fmt.Printf("\nResults saved to: %s\n", bulkOutput)
	return nil
}

func loadEmails(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var emails []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		emails = append(emails, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return emails, nil
}

func runInitialHealthCheck(ctx context.Context, pipeline *verifier.Pipeline) bool {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if !quiet {
		yellow.Println("\n--- Initial Health Check ---")
		fmt.Printf("Testing: %s\n", bulkHealthEmail)
	}

	result := pipeline.Validate(ctx, bulkHealthEmail)

	if result.Valid() {
		if !quiet {
			green.Printf("Health check PASSED: %s is valid\n\n", bulkHealthEmail)
		}
		logger.Debug("initial health check passed")
		return true
	}

	if !quiet {
		red.Printf("Health check FAILED: %s returned %s\n", bulkHealthEmail, result.Outcome)
		fmt.Printf("Reason: %s\n", result.Summary())
	}
	logger.Error("initial health check failed", zap.String("outcome", string(result.Outcome)))
	return false
}

func printBulkSettings(count int) {
	cyan := color.New(color.FgCyan)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Println()
	cyan.Println("========================================")
	white.Println("       Email Validation Tool")
	cyan.Println("========================================")
	fmt.Println()

	fmt.Printf("Emails to validate: %d\n", count)
	fmt.Printf("Disposable lookup:  %s\n", describeLookup(cfg))
	if cfg.Mailosaur.APIKey != "" && cfg.Mailosaur.ServerID != "" {
		fmt.Printf("Verification:       Mailosaur (%s)\n", cfg.Mailosaur.ServerID)
	} else {
		fmt.Printf("Verification:       disabled\n")
	}
	fmt.Printf("Workers:            %d\n", bulkWorkers)
	fmt.Printf("Delay:              %.2fs (+%.2fs jitter)\n", bulkDelay, bulkJitter)
	if bulkHealthEmail != "" {
		fmt.Printf("Health check:       Every %d emails\n", bulkHealthInterval)
		fmt.Printf("Health email:       %s\n", bulkHealthEmail)
	}
	fmt.Printf("Output:             %s\n", bulkOutput)
	fmt.Println()
}

func printBulkSummary(stats *bulkStats, poolStats *worker.Stats) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	cyan.Println("========================================")
	cyan.Println("              SUMMARY")
	cyan.Println("========================================")
	fmt.Println()

	stats.Lock()
	defer stats.Unlock()

	fmt.Printf("Total Validated:   %d\n", poolStats.Processed)
	green.Printf("Valid:             %d\n", stats.outcomes[verifier.OutcomeValid])
	red.Printf("Invalid Format:    %d\n", stats.outcomes[verifier.OutcomeInvalidFormat])
	red.Printf("Blacklisted:       %d\n", stats.outcomes[verifier.OutcomeBlacklisted])
	red.Printf("Disposable:        %d\n", stats.outcomes[verifier.OutcomeDisposableDomain])
	yellow.Printf("Errors:            %d\n", poolStats.Errors)
	if stats.degraded > 0 {
		yellow.Printf("Lookup degraded:   %d\n", stats.degraded)
	}
	if poolStats.HealthFails > 0 {
		yellow.Printf("Health failures:   %d\n", poolStats.HealthFails)
	}
	fmt.Println()
	fmt.Printf("Duration:          %s\n", poolStats.Duration.Round(time.Millisecond))
	fmt.Printf("Rate:              %.2f emails/sec\n", poolStats.Rate)
}
