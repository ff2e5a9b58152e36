package poller

import (
	"fmt"

	"github.com/jackzampolin/wikibook/internal/types"
)

// Message returns the user-facing progress text for a polled status.
// attempt is the 1-indexed poll number; serverMsg is the server's own message.
// Unknown statuses have no message.
func Message(status types.JobStatus, attempt int, serverMsg string) string {
	switch status {
	case types.StatusProcessing:
		return fmt.Sprintf("processing page %d... (%s)", attempt, serverMsg)
	case types.StatusDownloading:
		return "downloading content..."
	case types.StatusGenerating:
		return "generating PDF file..."
	case types.StatusCompleted:
		return "book completed successfully!"
	case types.StatusFailed:
		return "book generation failed"
	case types.StatusError:
		return "an error occurred"
	default:
		return ""
	}
}

// TransportMessage is reported when a status request itself fails.
func TransportMessage(attempt, maxAttempts int) string {
	return fmt.Sprintf("status check failed (attempt %d/%d)", attempt, maxAttempts)
}
