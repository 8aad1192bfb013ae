package analysisrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	WorkflowName    = "coach_session_analysis"
	ActivityAnalyze = "coach_session_analysis_run"

	// ErrTypeNotAnalyzable marks failures a retry cannot fix: the session is gone or not completed.
	ErrTypeNotAnalyzable = "session_not_analyzable"
)

type Input struct {
	SessionID string `json:"session_id"`
}

// Workflow runs one analysis attempt per activity execution. Transient model and parse failures
// are retried by the activity policy; ErrTypeNotAnalyzable stops immediately.
func Workflow(ctx workflow.Context, in Input) error {
	if strings.TrimSpace(in.SessionID) == "" {
		return fmt.Errorf("analysisrun: missing session_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        2 * time.Minute,
			MaximumAttempts:        4,
			NonRetryableErrorTypes: []string{ErrTypeNotAnalyzable},
		},
	})
	return workflow.ExecuteActivity(ctx, ActivityAnalyze, in).Get(ctx, nil)
}

// WorkflowID is stable per session so a repeated completion signal joins the running workflow.
func WorkflowID(sessionID string) string {
	return "session-analysis-" + strings.TrimSpace(sessionID)
}
