package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/appid"
	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/engine"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/submit"
	"github.com/IIExpanse/honest-sign-test-task/internal/metrics"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
	"github.com/IIExpanse/honest-sign-test-task/internal/output"
)

var submitFlagBindings = map[string]string{
	"token":         "api.token",
	"base-url":      "api.base_url",
	"timeout":       "api.timeout",
	"time-unit":     "rate_limit.time_unit",
	"time-amount":   "rate_limit.time_amount",
	"request-limit": "rate_limit.request_limit",
	"workers":       "workers",
}

var submitCmd = &cobra.Command{
	Use:   "submit <document>...",
	Short: "Submit product documents to the registry",
	Long: `Submit one or more product documents to the registry.

Each argument is a JSON or YAML file, a directory of such files, or "-" for
stdin. A file holds either a bare product document or a submission object:

  document: {...}
  product_group: shoes
  signature: <detached signature>
  type: LP_INTRODUCE_GOODS

All documents share one rate gate, so no more than request_limit calls start
within any rolling window of time_amount x time_unit.`,
	Example: `  crptdoc submit doc.json --group shoes --signature-file doc.sig
  crptdoc submit ./outbox --workers 8 --request-limit 5 --time-unit second
  cat doc.yaml | crptdoc submit - --output-format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed, total, kind, err := runSubmitCommand(cmd, args)
		if err != nil {
			return err
		}
		if failed > 0 {
			ExitForError(observability.CLILogger,
				fmt.Sprintf("%d of %d submissions failed", failed, total),
				core.Errorf(kind, "submit", "first failure: %s", kind))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("type", "", "document type override (e.g. LP_INTRODUCE_GOODS)")
	submitCmd.Flags().String("group", "", "product group override (e.g. shoes); empty keeps the file value")
	submitCmd.Flags().String("signature", "", "detached signature override")
	submitCmd.Flags().String("signature-file", "", "read the signature override from a file")

	submitCmd.Flags().String("token", "", fmt.Sprintf("registry bearer token (default $%s)", appid.EnvVar("API_TOKEN")))
	submitCmd.Flags().String("base-url", "", "registry base URL")
	submitCmd.Flags().Duration("timeout", submit.DefaultTimeout, "per-request timeout")
	submitCmd.Flags().String("time-unit", "", "rate window unit: nanosecond .. day")
	submitCmd.Flags().Int64("time-amount", 0, "rate window length in time units")
	submitCmd.Flags().Int("request-limit", 0, "calls allowed per rate window")
	submitCmd.Flags().Int("workers", 0, "concurrent submissions sharing the gate")
	submitCmd.Flags().Bool("no-journal", false, "do not record outcomes in the journal")

	addOutputFlags(submitCmd)
}

// runSubmitCommand returns the failure count and the kind of the first failure.
func runSubmitCommand(cmd *cobra.Command, args []string) (int, int, core.OutcomeKind, error) {
	logger := observability.CLILogger

	docOverrides, err := submissionOverridesFromFlags(cmd)
	if err != nil {
		return 0, 0, "", err
	}

	sources, err := loadDocuments(args, cmd.InOrStdin())
	if err != nil {
		return 0, 0, "", err
	}
	requests := make([]core.SubmissionRequest, 0, len(sources))
	for _, source := range sources {
		req, err := docOverrides.apply(source.Input).Request()
		if err != nil {
			return 0, 0, "", fmt.Errorf("%s: %w", source.Name, err)
		}
		requests = append(requests, req)
	}

	overrides := flagOverrides(cmd.Flags(), submitFlagBindings)
	if noJournal, _ := cmd.Flags().GetBool("no-journal"); noJournal {
		setNested(overrides, "journal.driver", config.JournalNone)
	}
	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		ExitForError(logger, "Invalid configuration", err)
		return 0, 0, "", err
	}

	gate, err := cfg.RateLimit.NewGate(engine.WithObserver(metrics.GateObserver{}))
	if err != nil {
		err = core.NewError(core.KindConfig, "rate limit", err)
		ExitForError(logger, "Invalid rate limit", err)
		return 0, 0, "", err
	}

	journal, err := openJournal(cmd.Context(), cfg)
	if err != nil {
		logger.Warn("Submission journal unavailable, continuing without it", zap.Error(err))
	}
	if journal != nil {
		defer journal.Close() // nolint:errcheck
	}

	submitter := &submit.Submitter{
		Gate: gate,
		Transport: &submit.HTTPTransport{
			Timeout:   cfg.API.Timeout,
			UserAgent: appid.UserAgent(versionInfo.Version),
		},
		Codec:       submit.JSONCodec{},
		Journal:     journal,
		Logger:      logger,
		BaseURL:     cfg.API.BaseURL,
		Token:       cfg.API.Token,
		ToolVersion: versionInfo.Version,
	}

	logger.Debug("Submitting documents",
		zap.Int("documents", len(requests)),
		zap.Int("workers", cfg.Workers),
		zap.Int("request_limit", gate.Limit()),
		zap.Duration("window", gate.Window()),
		zap.Stringer("api", cfg.API))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	outcomes := runSubmissions(ctx, submitter, requests, cfg.Workers)
	for _, outcome := range outcomes {
		metrics.RecordSubmission(outcome)
	}
	logThroughput(len(outcomes), startedAt)

	format, sink, err := openOutput(cmd, "submissions")
	if err != nil {
		return 0, 0, "", err
	}
	defer sink.close() // nolint:errcheck

	rendered, err := output.NewFormatter(format).FormatOutcomes(outcomes)
	if err != nil {
		return 0, 0, "", err
	}
	if err := sink.write(rendered); err != nil {
		return 0, 0, "", err
	}

	failed, kind := firstFailure(outcomes)
	return failed, len(outcomes), kind, nil
}

func submissionOverridesFromFlags(cmd *cobra.Command) (submissionOverrides, error) {
	docType, _ := cmd.Flags().GetString("type")
	group, _ := cmd.Flags().GetString("group")
	signature, _ := cmd.Flags().GetString("signature")
	signatureFile, _ := cmd.Flags().GetString("signature-file")

	if strings.TrimSpace(signatureFile) != "" {
		if strings.TrimSpace(signature) != "" {
			return submissionOverrides{}, fmt.Errorf("--signature and --signature-file are mutually exclusive")
		}
		data, err := os.ReadFile(signatureFile) // #nosec G304 -- user-supplied signature path
		if err != nil {
			return submissionOverrides{}, fmt.Errorf("read signature: %w", err)
		}
		signature = strings.TrimSpace(string(data))
		if signature == "" {
			return submissionOverrides{}, fmt.Errorf("signature file %s is empty", signatureFile)
		}
	}
	return submissionOverrides{Type: docType, Group: group, Signature: signature}, nil
}

type documentSubmitter interface {
	Submit(ctx context.Context, req core.SubmissionRequest) *core.SubmissionOutcome
}

// runSubmissions fans requests out to workers that share one submitter. Every
// request gets an outcome; after cancellation the rest come back cancelled.
func runSubmissions(ctx context.Context, submitter documentSubmitter, requests []core.SubmissionRequest, workers int) []*core.SubmissionOutcome {
	outcomes := make([]*core.SubmissionOutcome, len(requests))
	if len(requests) == 0 {
		return outcomes
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			outcomes[i] = submitter.Submit(ctx, requests[i])
		}
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(requests) {
		workers = len(requests)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func firstFailure(outcomes []*core.SubmissionOutcome) (int, core.OutcomeKind) {
	failed := 0
	var kind core.OutcomeKind
	for _, outcome := range outcomes {
		if outcome == nil || outcome.Succeeded() {
			continue
		}
		if failed == 0 {
			kind = outcome.Kind
		}
		failed++
	}
	return failed, kind
}

func logThroughput(count int, startedAt time.Time) {
	elapsed := time.Since(startedAt)
	if count == 0 || elapsed <= 0 {
		return
	}
	observability.CLILogger.Debug("Submission throughput",
		zap.Int("submissions", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("per_second", float64(count)/elapsed.Seconds()))
}
