package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/IIExpanse/honest-sign-test-task/internal/core/engine"
	"github.com/IIExpanse/honest-sign-test-task/internal/output"
)

var gateFlagBindings = map[string]string{
	"time-unit":     "rate_limit.time_unit",
	"time-amount":   "rate_limit.time_amount",
	"request-limit": "rate_limit.request_limit",
}

// gateAttempt is one simulated admission.
type gateAttempt struct {
	Call     int           `json:"call"`
	Offset   time.Duration `json:"offset"`
	Admitted bool          `json:"admitted"`
}

type gateReport struct {
	Limit    int           `json:"limit"`
	Window   string        `json:"window"`
	WindowMS int64         `json:"window_ms"`
	Attempts []gateAttempt `json:"attempts,omitempty"`
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Show the configured rate gate",
	Long: `Show the rate gate built from configuration.

With --simulate N, N concurrent callers acquire a fresh gate with the same
limit and the admission offsets are printed. No registry calls are made.`,
	Example: `  crptdoc gate
  crptdoc gate --request-limit 3 --time-unit second --simulate 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		simulate, _ := cmd.Flags().GetInt("simulate")
		if simulate < 0 {
			return fmt.Errorf("--simulate must not be negative")
		}

		cfg, err := loadConfig(cmd, gateFlagBindings)
		if err != nil {
			return err
		}
		gate, err := cfg.RateLimit.NewGate()
		if err != nil {
			return err
		}

		report := gateReport{
			Limit:    gate.Limit(),
			Window:   gate.Window().String(),
			WindowMS: gate.Window().Milliseconds(),
		}
		if simulate > 0 {
			report.Attempts = simulateGate(cmd.Context(), gate, simulate)
		}

		if format == output.FormatJSON {
			rendered, err := output.MarshalJSON(report)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		}

		lines := []string{
			fmt.Sprintf("Limit:  %d calls", report.Limit),
			fmt.Sprintf("Window: %s (rolling)", report.Window),
		}
		for _, attempt := range report.Attempts {
			status := "admitted"
			if !attempt.Admitted {
				status = "cancelled"
			}
			lines = append(lines, fmt.Sprintf("#%-3d +%-12s %s", attempt.Call, attempt.Offset.Round(time.Millisecond), status))
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

// simulateGate starts n callers at once and records when each is admitted.
func simulateGate(ctx context.Context, gate *engine.Gate, n int) []gateAttempt {
	start := time.Now()
	attempts := make([]gateAttempt, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			err := gate.Acquire(ctx)
			attempts[i] = gateAttempt{Call: i + 1, Offset: time.Since(start), Admitted: err == nil}
			done <- i
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
	return attempts
}

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().String("time-unit", "", "rate window unit override")
	gateCmd.Flags().Int64("time-amount", 0, "rate window length override")
	gateCmd.Flags().Int("request-limit", 0, "calls per window override")
	gateCmd.Flags().Int("simulate", 0, "simulate N concurrent acquisitions against a fresh gate")
	gateCmd.Flags().String("output-format", string(output.FormatTable), "output format: table, json")
}
