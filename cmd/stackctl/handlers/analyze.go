package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/ideas-api/stackctl/internal/analysis"
	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/kube"
	"github.com/ideas-api/stackctl/internal/platform/aws"
)

// analyzeRunner matches analysis.Analyzer.
type analyzeRunner interface {
	Run(ctx context.Context) (*analysis.Report, error)
}

// newAnalyzeRunner can be replaced in tests.
var newAnalyzeRunner = func(ctx context.Context, cfg *config.Config, window time.Duration) (analyzeRunner, error) {
	client, err := aws.NewClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	info, err := client.DescribeCluster(ctx, cfg.ClusterName())
	if err != nil {
		return nil, err
	}
	kubeconfig, err := kube.Kubeconfig(info, cfg.Region)
	if err != nil {
		return nil, err
	}
	kc, err := kube.NewClient(kubeconfig)
	if err != nil {
		return nil, err
	}

	return analysis.NewAnalyzer(client, analysis.HeuristicAdvisor{}, cfg.LogGroup, window,
		func(ctx context.Context) (*analysis.HealthReport, error) {
			return analysis.CheckDeploymentHealth(ctx, kc.Clientset(), cfg.Namespace, cfg.Workload.DeploymentName)
		}), nil
}

// Analyze handles the analyze command.
func Analyze(ctx context.Context, configPath, environment string, window time.Duration) error {
	cfg, err := loadConfig(configPath, environment)
	if err != nil {
		return err
	}

	runner, err := newAnalyzeRunner(ctx, cfg, window)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("deployment: %s\n", report.Health)
	fmt.Printf("severity:   %s (%d critical, %d errors, %d warnings over %v)\n",
		report.Assessment.Severity,
		report.Assessment.CriticalCount,
		report.Assessment.ErrorCount,
		report.Assessment.WarningCount,
		window)
	for _, sample := range report.Assessment.Samples {
		fmt.Printf("  > %s\n", sample)
	}
	fmt.Printf("\n%s\n", report.Advice)
	return nil
}
