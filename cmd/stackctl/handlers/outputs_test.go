package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ideas-api/stackctl/internal/analysis"
	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/terraform"
)

type fakeOutputsReader struct {
	outputs *terraform.Outputs
	err     error
}

func (f *fakeOutputsReader) Outputs(context.Context) (*terraform.Outputs, error) {
	return f.outputs, f.err
}

func stubOutputsReader(t *testing.T, reader *fakeOutputsReader) {
	t.Helper()
	orig := newOutputsReader
	newOutputsReader = func(*config.Config) outputsReader { return reader }
	t.Cleanup(func() { newOutputsReader = orig })
}

func TestOutputsPrintsRecordedValues(t *testing.T) {
	stubOutputsReader(t, &fakeOutputsReader{outputs: &terraform.Outputs{
		RegistryURL:     "123.dkr.ecr.eu-west-1.amazonaws.com/ideas-api",
		ClusterName:     "ideas-api-staging",
		ClusterEndpoint: "https://example.eks.amazonaws.com",
	}})

	require.NoError(t, Outputs(context.Background(), "", "staging", false))
	require.NoError(t, Outputs(context.Background(), "", "staging", true))
}

func TestOutputsPropagatesReadFailure(t *testing.T) {
	stubOutputsReader(t, &fakeOutputsReader{err: errors.New("state not initialized")})

	err := Outputs(context.Background(), "", "staging", false)
	require.ErrorContains(t, err, "state not initialized")
}

type fakeAnalyzeRunner struct {
	report *analysis.Report
	err    error
}

func (f *fakeAnalyzeRunner) Run(context.Context) (*analysis.Report, error) {
	return f.report, f.err
}

func stubAnalyzeRunner(t *testing.T, runner *fakeAnalyzeRunner, err error) {
	t.Helper()
	orig := newAnalyzeRunner
	newAnalyzeRunner = func(context.Context, *config.Config, time.Duration) (analyzeRunner, error) {
		return runner, err
	}
	t.Cleanup(func() { newAnalyzeRunner = orig })
}

func TestAnalyzePrintsReport(t *testing.T) {
	stubAnalyzeRunner(t, &fakeAnalyzeRunner{report: &analysis.Report{
		Health:     &analysis.HealthReport{Found: true, Healthy: true, ReadyReplicas: 2, DesiredReplicas: 2},
		Assessment: analysis.Assess([]string{"error: db timeout"}),
		Advice:     "The deployment is healthy and the logs look normal.",
	}}, nil)

	require.NoError(t, Analyze(context.Background(), "", "staging", 15*time.Minute))
}

func TestAnalyzePropagatesWiringFailure(t *testing.T) {
	stubAnalyzeRunner(t, nil, errors.New("cluster ideas-api-staging is not active"))

	err := Analyze(context.Background(), "", "staging", 15*time.Minute)
	require.ErrorContains(t, err, "not active")
}
