package labreport

import (
	"fmt"
	"strings"

	"github.com/clinicdesk/clinic/internal/domain/prescribing"
)

// statusTransitions lists the forward moves allowed out of each status.
// Completed is terminal.
var statusTransitions = map[prescribing.LabReportStatus][]prescribing.LabReportStatus{
	prescribing.StatusPending:    {prescribing.StatusInProgress, prescribing.StatusCompleted},
	prescribing.StatusInProgress: {prescribing.StatusCompleted},
	prescribing.StatusCompleted:  {},
}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (prescribing.LabReportStatus, error) {
	s = strings.TrimSpace(s)
	for status := range statusTransitions {
		if strings.EqualFold(s, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, s)
}

// ValidateTransition accepts the moves in statusTransitions and re-setting the
// current status.
func ValidateTransition(from, to prescribing.LabReportStatus) error {
	if from == to {
		return nil
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}
