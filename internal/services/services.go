// package services implements the catalog and relay operations on top of an extractor
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ytrelay/internal/extractor"
	"github.com/desertthunder/ytrelay/internal/shared"
)

// Search limits accepted by [Catalog.Search].
const (
	MinSearchLimit     = 1
	MaxSearchLimit     = 20
	DefaultSearchLimit = 10
)

// ExtractionError maps an extractor failure on the catalog paths to
// [shared.ErrExtractionFailed], keeping the extractor's own message as the detail.
// Bot-detection failures are not singled out here; see [StreamError].
func ExtractionError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	var extractErr *extractor.Error
	if errors.As(err, &extractErr) {
		msg = extractErr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s", shared.ErrExtractionFailed, shared.ErrTimeout, msg)
	}
	return fmt.Errorf("%w: %s", shared.ErrExtractionFailed, msg)
}

// StreamError maps an extractor failure while opening a relay. Bot-detection failures
// wrap [shared.ErrBotDetected]; everything else is an [ExtractionError].
func StreamError(err error) error {
	if err == nil {
		return nil
	}

	var extractErr *extractor.Error
	if errors.As(err, &extractErr) {
		if extractErr.Kind == extractor.KindBotDetected {
			return fmt.Errorf("%w: %s", shared.ErrBotDetected, extractErr.Message)
		}
	} else if extractor.IsBotDetection(err.Error()) {
		return fmt.Errorf("%w: %s", shared.ErrBotDetected, err.Error())
	}
	return ExtractionError(err)
}
