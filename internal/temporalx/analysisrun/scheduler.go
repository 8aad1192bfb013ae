package analysisrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Scheduler starts the analysis workflow for a completed session.
type Scheduler struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewScheduler(tc temporalsdkclient.Client, taskQueue string) *Scheduler {
	return &Scheduler{tc: tc, taskQueue: taskQueue}
}

func (s *Scheduler) ScheduleAnalysis(ctx context.Context, sessionID uuid.UUID) error {
	if s == nil || s.tc == nil {
		return fmt.Errorf("analysisrun: temporal client not configured")
	}
	id := sessionID.String()
	_, err := s.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(id),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}, WorkflowName, Input{SessionID: id})
	if err != nil {
		return fmt.Errorf("start analysis workflow %s: %w", WorkflowID(id), err)
	}
	return nil
}
