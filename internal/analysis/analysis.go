// Package analysis inspects a running deployment: workload health, recent
// logs, and a heuristic severity assessment with remediation suggestions.
package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Severity grades how bad the recent logs look.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// HealthReport summarizes the workload deployment's replica state.
type HealthReport struct {
	Found           bool
	Healthy         bool
	ReadyReplicas   int32
	DesiredReplicas int32
}

func (h *HealthReport) String() string {
	if !h.Found {
		return "deployment not found"
	}
	return fmt.Sprintf("%d/%d replicas ready", h.ReadyReplicas, h.DesiredReplicas)
}

// CheckDeploymentHealth reads the deployment's replica counts. Healthy means
// every desired replica is ready and at least one is desired.
func CheckDeploymentHealth(ctx context.Context, clientset kubernetes.Interface, namespace, name string) (*HealthReport, error) {
	deployment, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return &HealthReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment %s/%s: %w", namespace, name, err)
	}

	desired := int32(0)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}
	ready := deployment.Status.ReadyReplicas

	return &HealthReport{
		Found:           true,
		Healthy:         desired > 0 && ready == desired,
		ReadyReplicas:   ready,
		DesiredReplicas: desired,
	}, nil
}

// errorPatterns and criticalPatterns are matched case-insensitively against
// each log message.
var (
	criticalPatterns = []string{"panic", "fatal", "traceback", "oomkilled", "crashloopbackoff"}
	errorPatterns    = []string{"error", "exception", "failed", "refused"}
	warningPatterns  = []string{"warning", "warn", "deprecated", "retrying"}
)

// Assessment is the heuristic verdict over a window of log messages.
type Assessment struct {
	Severity      Severity
	CriticalCount int
	ErrorCount    int
	WarningCount  int
	Samples       []string
}

// maxSamples caps how many offending lines the assessment keeps for display.
const maxSamples = 5

// Assess grades the messages. Severity is driven by the worst pattern class
// seen and by volume: any critical pattern or an error flood is CRITICAL,
// a handful of errors is HIGH, scattered errors or many warnings MEDIUM.
func Assess(messages []string) *Assessment {
	a := &Assessment{Severity: SeverityLow}

	for _, msg := range messages {
		lower := strings.ToLower(msg)
		switch {
		case matchesAny(lower, criticalPatterns):
			a.CriticalCount++
			a.sample(msg)
		case matchesAny(lower, errorPatterns):
			a.ErrorCount++
			a.sample(msg)
		case matchesAny(lower, warningPatterns):
			a.WarningCount++
		}
	}

	switch {
	case a.CriticalCount > 0 || a.ErrorCount > 10:
		a.Severity = SeverityCritical
	case a.ErrorCount > 3:
		a.Severity = SeverityHigh
	case a.ErrorCount > 0 || a.WarningCount > 5:
		a.Severity = SeverityMedium
	}
	return a
}

// ShouldRollback reports whether the assessment warrants rolling the
// deployment back: always on CRITICAL, and on HIGH once errors pile up.
func (a *Assessment) ShouldRollback() bool {
	if a.Severity == SeverityCritical {
		return true
	}
	return a.Severity == SeverityHigh && a.ErrorCount > 3
}

func (a *Assessment) sample(msg string) {
	if len(a.Samples) < maxSamples {
		a.Samples = append(a.Samples, msg)
	}
}

func matchesAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// SuggestReplicas proposes a replica count between 1 and 10. An unhealthy
// but quiet workload gets more replicas; a workload drowning in errors does
// not, since scaling a crashing service only multiplies the crashes.
func SuggestReplicas(report *HealthReport, assessment *Assessment) int32 {
	current := report.DesiredReplicas
	if current < 1 {
		current = 1
	}

	suggested := current
	if !report.Healthy && assessment.Severity == SeverityLow {
		suggested = current + 1
	}
	if assessment.ShouldRollback() {
		suggested = current
	}

	if suggested > 10 {
		suggested = 10
	}
	if suggested < 1 {
		suggested = 1
	}
	return suggested
}

// LogSource fetches recent log messages for a log group.
type LogSource interface {
	FetchLogMessages(ctx context.Context, logGroup string, window time.Duration) ([]string, error)
}

// Advisor turns a health report and assessment into operator guidance. The
// built-in heuristic is the only implementation here; an external advisor
// can be plugged in at the CLI layer.
type Advisor interface {
	Advise(ctx context.Context, report *HealthReport, assessment *Assessment) (string, error)
}

// HeuristicAdvisor is a rule-based Advisor.
type HeuristicAdvisor struct{}

// Advise implements Advisor.
func (HeuristicAdvisor) Advise(_ context.Context, report *HealthReport, assessment *Assessment) (string, error) {
	var b strings.Builder

	switch {
	case !report.Found:
		b.WriteString("The workload deployment does not exist; run a deploy first.")
	case assessment.ShouldRollback():
		fmt.Fprintf(&b, "Severity %s with %d errors: roll back to the previous image and inspect the samples below.",
			assessment.Severity, assessment.CriticalCount+assessment.ErrorCount)
	case !report.Healthy:
		fmt.Fprintf(&b, "Only %s and logs are quiet: the rollout is likely still progressing or the pods are under-resourced.",
			report)
	default:
		b.WriteString("The deployment is healthy and the logs look normal.")
	}

	if suggested := SuggestReplicas(report, assessment); report.Found && suggested != report.DesiredReplicas {
		fmt.Fprintf(&b, " Consider running %d replicas.", suggested)
	}
	return b.String(), nil
}

// Report is the full analyze result.
type Report struct {
	Health     *HealthReport
	Assessment *Assessment
	Advice     string
}

// Analyzer composes health, logs, and advice for one workload.
type Analyzer struct {
	logs    LogSource
	advisor Advisor

	// checkHealth is swapped in tests.
	checkHealth func(ctx context.Context) (*HealthReport, error)

	logGroup string
	window   time.Duration
}

// NewAnalyzer creates an analyzer for the given log group and window.
func NewAnalyzer(logs LogSource, advisor Advisor, logGroup string, window time.Duration,
	checkHealth func(ctx context.Context) (*HealthReport, error)) *Analyzer {
	return &Analyzer{
		logs:        logs,
		advisor:     advisor,
		checkHealth: checkHealth,
		logGroup:    logGroup,
		window:      window,
	}
}

// Run produces a report. Log fetch failures degrade to an empty assessment
// rather than failing the whole analysis.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	health, err := a.checkHealth(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := a.logs.FetchLogMessages(ctx, a.logGroup, a.window)
	if err != nil {
		log.Printf("[analyze] log fetch from %s failed, assessment covers no log data: %v", a.logGroup, err)
		messages = nil
	}
	assessment := Assess(messages)

	advice, err := a.advisor.Advise(ctx, health, assessment)
	if err != nil {
		return nil, err
	}

	return &Report{
		Health:     health,
		Assessment: assessment,
		Advice:     advice,
	}, nil
}
