package enums

import "fmt"

// PreviewStatus tracks a single partner-submitted design preview.
type PreviewStatus string

const (
	PreviewStatusPending          PreviewStatus = "pending"
	PreviewStatusApproved         PreviewStatus = "approved"
	PreviewStatusChangesRequested PreviewStatus = "changes_requested"
)

var validPreviewStatuses = []PreviewStatus{
	PreviewStatusPending,
	PreviewStatusApproved,
	PreviewStatusChangesRequested,
}

// IsValid reports whether the value is a known PreviewStatus.
func (s PreviewStatus) IsValid() bool {
	for _, candidate := range validPreviewStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePreviewStatus converts raw input into a PreviewStatus.
func ParsePreviewStatus(value string) (PreviewStatus, error) {
	for _, candidate := range validPreviewStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid preview status %q", value)
}
