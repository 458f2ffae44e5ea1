package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable wait and retry bounds.
// These values can be customized via environment variables.
type Timeouts struct {
	SettleDelay        time.Duration // Pause after namespace creation before dependent objects
	RolloutTimeout     time.Duration // Max wait for deployment rollout completion
	RolloutInterval    time.Duration // Interval between rollout status checks
	IngressInterval    time.Duration // Interval between ingress address checks
	IngressMaxAttempts int           // Max ingress address checks
	LBGoneInterval     time.Duration // Interval between load-balancer disappearance checks
	LBGoneMaxAttempts  int           // Max load-balancer disappearance checks
	TableInterval      time.Duration // Interval between lock-table status checks
	TableMaxAttempts   int           // Max lock-table status checks
	RetryMaxAttempts   int           // Max retries for transient API failures
	RetryInitialDelay  time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - STACKCTL_SETTLE_DELAY (default: 10s)
//   - STACKCTL_TIMEOUT_ROLLOUT (default: 5m)
//   - STACKCTL_INTERVAL_ROLLOUT (default: 5s)
//   - STACKCTL_INTERVAL_INGRESS (default: 10s)
//   - STACKCTL_ATTEMPTS_INGRESS (default: 30)
//   - STACKCTL_INTERVAL_LB_GONE (default: 10s)
//   - STACKCTL_ATTEMPTS_LB_GONE (default: 30)
//   - STACKCTL_INTERVAL_LOCK_TABLE (default: 2s)
//   - STACKCTL_ATTEMPTS_LOCK_TABLE (default: 30)
//   - STACKCTL_RETRY_MAX_ATTEMPTS (default: 4)
//   - STACKCTL_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		SettleDelay:        parseDuration("STACKCTL_SETTLE_DELAY", 10*time.Second),
		RolloutTimeout:     parseDuration("STACKCTL_TIMEOUT_ROLLOUT", 5*time.Minute),
		RolloutInterval:    parseDuration("STACKCTL_INTERVAL_ROLLOUT", 5*time.Second),
		IngressInterval:    parseDuration("STACKCTL_INTERVAL_INGRESS", 10*time.Second),
		IngressMaxAttempts: parseInt("STACKCTL_ATTEMPTS_INGRESS", 30),
		LBGoneInterval:     parseDuration("STACKCTL_INTERVAL_LB_GONE", 10*time.Second),
		LBGoneMaxAttempts:  parseInt("STACKCTL_ATTEMPTS_LB_GONE", 30),
		TableInterval:      parseDuration("STACKCTL_INTERVAL_LOCK_TABLE", 2*time.Second),
		TableMaxAttempts:   parseInt("STACKCTL_ATTEMPTS_LOCK_TABLE", 30),
		RetryMaxAttempts:   parseInt("STACKCTL_RETRY_MAX_ATTEMPTS", 4),
		RetryInitialDelay:  parseDuration("STACKCTL_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
