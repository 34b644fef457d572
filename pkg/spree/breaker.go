package spree

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/spree-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
)

// BreakerSettings controls when the client stops calling a failing commerce API.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	ErrorRatePercent    int
	OpenTimeout         time.Duration
}

func breakerSettingsFromConfig(cfg config.SpreeConfig) BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: cfg.BreakerConsecutiveFailures,
		ErrorRatePercent:    cfg.BreakerErrorRatePercent,
		OpenTimeout:         cfg.BreakerOpenTimeout,
	}
}

func newBreaker(s BreakerSettings) *gobreaker.CircuitBreaker[struct{}] {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "spree-store-api",
		MaxRequests: 3,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= s.ConsecutiveFailures {
				return true
			}
			total := counts.TotalSuccesses + counts.TotalFailures
			if s.ErrorRatePercent <= 0 || total < s.ConsecutiveFailures {
				return false
			}
			return float64(counts.TotalFailures)/float64(total)*100 > float64(s.ErrorRatePercent)
		},
		IsSuccessful: isBreakerSuccess,
	})
}

// isBreakerSuccess only counts unavailability as failure. A 404 or a rejected
// checkout step means the API is healthy.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	return typed.Code() != pkgerrors.CodeDependency
}
