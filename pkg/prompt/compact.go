// Package prompt builds bounded-size request payloads for analysis calls.
package prompt

import (
	"fmt"
	"strings"
)

// TruncationMarker is appended to every value cut by Truncate.
const TruncationMarker = "...[truncated]"

// Truncate cuts s to maxLen characters and appends TruncationMarker.
// The cut is not word-aware. maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + TruncationMarker
}

// Field is one labelled section of a prompt.
type Field struct {
	Label string // full label, used by the verbose tier
	Key   string // abbreviated label, used by the compact tier
	Value string
}

// Compact renders fields as labelled sections, truncating each value to maxLen.
func Compact(fields []Field, maxLen int) string {
	return render(fields, maxLen, false)
}

func render(fields []Field, maxLen int, abbreviate bool) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := f.Label
		if abbreviate && f.Key != "" {
			label = f.Key
		}
		fmt.Fprintf(&b, "【%s】\n%s", label, Truncate(f.Value, maxLen))
	}
	return b.String()
}

// Tier is a named compaction configuration.
type Tier struct {
	Name        string
	MaxFieldLen int
	// TopN limits list-like sections (e.g. hourly distribution); 0 keeps all.
	TopN       int
	Abbreviate bool
}

// Built-in tiers. VerboseTier keeps full labels and distributions; Compact
// abbreviates labels and keeps only the top entries.
var (
	VerboseTier = Tier{Name: "verbose", MaxFieldLen: 3000}
	CompactTier = Tier{Name: "compact", MaxFieldLen: 1000, TopN: 5, Abbreviate: true}
)

// TierByName resolves "verbose" or "compact".
func TierByName(name string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case VerboseTier.Name:
		return VerboseTier, nil
	case CompactTier.Name, "":
		return CompactTier, nil
	default:
		return Tier{}, fmt.Errorf("unknown prompt tier %q", name)
	}
}

// WithMaxFieldLen returns a copy of t with a different field bound.
func (t Tier) WithMaxFieldLen(n int) Tier {
	if n > 0 {
		t.MaxFieldLen = n
	}
	return t
}

// Render renders fields under this tier.
func (t Tier) Render(fields []Field) string {
	return render(fields, t.MaxFieldLen, t.Abbreviate)
}
