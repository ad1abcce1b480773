package domain

import (
	"fmt"
	"strings"
)

// Priority is a display ordering hint for glossary terms.
type Priority string

const (
	// PriorityNormal is the default ordering tier.
	PriorityNormal Priority = "normal"
	// PriorityHigh floats a term above normal entries.
	PriorityHigh Priority = "high"
	// PriorityCampaign marks a term central to campaign messaging.
	PriorityCampaign Priority = "campaign"
)

// ParsePriority parses a priority label. Empty input maps to PriorityNormal.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return PriorityNormal, nil
	case string(PriorityNormal):
		return PriorityNormal, nil
	case string(PriorityHigh):
		return PriorityHigh, nil
	case string(PriorityCampaign):
		return PriorityCampaign, nil
	default:
		return "", fmt.Errorf("invalid priority %q", value)
	}
}

// Rank returns the sort rank for a priority; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCampaign:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}
