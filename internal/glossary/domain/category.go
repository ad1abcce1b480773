package domain

import (
	"fmt"
	"strings"
)

// Categories is the fixed set of glossary category labels, in display order.
var Categories = []string{
	"Budget & Taxes",
	"Housing",
	"Public Safety",
	"Transit & Infrastructure",
	"Health & Environment",
	"Education",
	"Economic Development",
	"Jobs & Wages",
	"Democracy & Elections",
	"Criminal Justice",
	"Immigration",
	"Civil Rights",
	"Metro Government",
}

// NormalizeCategory resolves a label to its canonical category, matching
// case-insensitively. An empty label is allowed and returns "".
func NormalizeCategory(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", nil
	}
	for _, category := range Categories {
		if strings.EqualFold(category, label) {
			return category, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", label)
}
