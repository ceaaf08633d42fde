package extractor

import (
	"context"

	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"golang.org/x/time/rate"
)

// Limited throttles calls to an [Extractor] to a steady rate.
type Limited struct {
	next    Extractor
	limiter *rate.Limiter
}

// NewLimited allows perSecond extractions per second with a burst of one.
func NewLimited(next Extractor, perSecond float64) *Limited {
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (l *Limited) Name() string { return l.next.Name() }

// Extract waits for a token, then delegates. A cancelled wait is reported as a failure.
func (l *Limited) Extract(ctx context.Context, target string, p profiles.OptionProfile) (*models.Info, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, Classify(target, err)
	}
	return l.next.Extract(ctx, target, p)
}
