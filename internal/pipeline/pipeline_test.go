package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ideas-api/stackctl/internal/util/wait"
)

func TestRun_AllStagesSucceedInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	stages := []Stage{
		{Name: "first", Run: func(_ context.Context) error { order = append(order, "first"); return nil }},
		{Name: "second", Run: func(_ context.Context) error { order = append(order, "second"); return nil }},
		{Name: "third", Run: func(_ context.Context) error { order = append(order, "third"); return nil }},
	}

	result := New("deploy", stages).Run(context.Background())

	require.NoError(t, result.FirstFailure())
	require.Equal(t, []string{"first", "second", "third"}, order)
	for _, outcome := range result.Outcomes {
		require.Equal(t, Succeeded, outcome.Status)
	}
}

func TestRun_IdempotencyPredicateSkipsAction(t *testing.T) {
	t.Parallel()

	ran := false
	stages := []Stage{{
		Name:  "ensure-bucket",
		Check: func(_ context.Context) (bool, error) { return true, nil },
		Run:   func(_ context.Context) error { ran = true; return nil },
	}}

	result := New("deploy", stages).Run(context.Background())

	require.NoError(t, result.FirstFailure())
	require.False(t, ran, "action must never run when the predicate is satisfied")
	outcome, ok := result.OutcomeOf("ensure-bucket")
	require.True(t, ok)
	require.Equal(t, Succeeded, outcome.Status)
}

func TestRun_SatisfiedPredicateStillAwaitsPostCondition(t *testing.T) {
	t.Parallel()

	ran := false
	probes := 0
	stages := []Stage{{
		Name:   "delete-ingress",
		Policy: BestEffort,
		Check:  func(_ context.Context) (bool, error) { return true, nil },
		Run:    func(_ context.Context) error { ran = true; return nil },
		Post: &wait.Condition{
			Name:        "load-balancer-gone",
			Interval:    time.Millisecond,
			MaxAttempts: 5,
			OnTimeout:   wait.WarnAndContinue,
			Probe: func(_ context.Context) (bool, error) {
				probes++
				return probes >= 2, nil
			},
		},
	}}

	result := New("destroy", stages).Run(context.Background())

	require.NoError(t, result.FirstFailure())
	require.False(t, ran, "action must never run when the predicate is satisfied")
	require.Equal(t, 2, probes, "an already-deleted ingress can still have a draining load balancer; the wait must run")
}

func TestRun_PredicateErrorFallsThroughToAction(t *testing.T) {
	t.Parallel()

	ran := false
	stages := []Stage{{
		Name:  "ensure-table",
		Check: func(_ context.Context) (bool, error) { return false, errors.New("permission propagation delay") },
		Run:   func(_ context.Context) error { ran = true; return nil },
	}}

	result := New("deploy", stages).Run(context.Background())

	require.NoError(t, result.FirstFailure())
	require.True(t, ran, "unknown existence must not be treated as satisfied")
}

func TestRun_FailFastSkipsRemainingFailFastStages(t *testing.T) {
	t.Parallel()

	var ran []string
	boom := errors.New("apply failed")
	stages := []Stage{
		{Name: "a", Run: func(_ context.Context) error { ran = append(ran, "a"); return nil }},
		{Name: "b", Run: func(_ context.Context) error { return boom }},
		{Name: "c", Run: func(_ context.Context) error { ran = append(ran, "c"); return nil }},
	}

	result := New("deploy", stages).Run(context.Background())

	require.Error(t, result.FirstFailure())
	require.ErrorIs(t, result.FirstFailure(), boom)

	var stageErr *StageError
	require.ErrorAs(t, result.FirstFailure(), &stageErr)
	require.Equal(t, "b", stageErr.Stage)

	require.Equal(t, []string{"a"}, ran)
	outcome, _ := result.OutcomeOf("c")
	require.Equal(t, Skipped, outcome.Status)
}

func TestRun_BestEffortStagesContinueAfterFailure(t *testing.T) {
	t.Parallel()

	var ran []string
	stages := []Stage{
		{Name: "delete-ingress", Policy: BestEffort, Run: func(_ context.Context) error { return errors.New("not found") }},
		{Name: "uninstall-controller", Policy: BestEffort, Run: func(_ context.Context) error { ran = append(ran, "uninstall"); return nil }},
		{Name: "purge-registry", Policy: BestEffort, Run: func(_ context.Context) error { ran = append(ran, "purge"); return nil }},
	}

	result := New("destroy", stages).Run(context.Background())

	require.Error(t, result.FirstFailure())
	require.Equal(t, []string{"uninstall", "purge"}, ran)

	outcome, _ := result.OutcomeOf("purge-registry")
	require.Equal(t, Succeeded, outcome.Status)
}

func TestRun_FatalPostConditionTimeout(t *testing.T) {
	t.Parallel()

	stages := []Stage{{
		Name: "rollout",
		Run:  func(_ context.Context) error { return nil },
		Post: &wait.Condition{
			Name:        "rollout-complete",
			Interval:    time.Millisecond,
			MaxAttempts: 2,
			OnTimeout:   wait.Fatal,
			Probe:       func(_ context.Context) (bool, error) { return false, nil },
		},
	}}

	result := New("deploy", stages).Run(context.Background())

	require.Error(t, result.FirstFailure())
	outcome, _ := result.OutcomeOf("rollout")
	require.Equal(t, Failed, outcome.Status)
}

func TestRun_WarnAndContinuePostConditionTimeout(t *testing.T) {
	t.Parallel()

	reached := false
	stages := []Stage{
		{
			Name:   "delete-ingress",
			Policy: BestEffort,
			Run:    func(_ context.Context) error { return nil },
			Post: &wait.Condition{
				Name:        "load-balancer-gone",
				Interval:    time.Millisecond,
				MaxAttempts: 3,
				OnTimeout:   wait.WarnAndContinue,
				Probe:       func(_ context.Context) (bool, error) { return false, nil },
			},
		},
		{Name: "destroy-network", Policy: BestEffort, Run: func(_ context.Context) error { reached = true; return nil }},
	}

	result := New("destroy", stages).Run(context.Background())

	require.NoError(t, result.FirstFailure())
	require.True(t, reached, "teardown must proceed past a tolerated wait timeout")
	outcome, _ := result.OutcomeOf("delete-ingress")
	require.Equal(t, Succeeded, outcome.Status)
}

func TestRun_PostConditionSatisfied(t *testing.T) {
	t.Parallel()

	checks := 0
	stages := []Stage{{
		Name: "delete-ingress",
		Run:  func(_ context.Context) error { return nil },
		Post: &wait.Condition{
			Name:        "load-balancer-gone",
			Interval:    time.Millisecond,
			MaxAttempts: 30,
			OnTimeout:   wait.WarnAndContinue,
			Probe: func(_ context.Context) (bool, error) {
				checks++
				return checks >= 3, nil
			},
		},
	}}

	result := New("destroy", stages).Run(context.Background())

	require.NoError(t, result.FirstFailure())
	require.Equal(t, 3, checks)
}
