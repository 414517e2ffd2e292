package pattern

import (
	"strconv"
	"strings"
)

// On-disk delimiters. Patterns are joined by "~"; within a pattern the
// candle values, high diff and low diff are joined by "{}".
const (
	PatternSeparator = "~"
	FieldSeparator   = "{}"
)

// EncodeMemoryText serialises the pattern sequences to the
// neural_patterns file format:
//
//	v1 v2{}high_diff{}low_diff~v1 v2{}high_diff{}low_diff~...
func EncodeMemoryText(m *Memory) string {
	parts := make([]string, 0, len(m.Patterns))
	for i, pat := range m.Patterns {
		vals := make([]string, len(pat))
		for j, v := range pat {
			vals[j] = formatFloat(v)
		}
		entry := strings.Join(vals, " ") +
			FieldSeparator + formatFloat(diffAt(m.HighDiffs, i)) +
			FieldSeparator + formatFloat(diffAt(m.LowDiffs, i))
		parts = append(parts, entry)
	}
	return strings.Join(parts, PatternSeparator)
}

// EncodeWeights serialises a weight channel: space-separated floats,
// one per pattern.
func EncodeWeights(ws []float64) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = formatFloat(w)
	}
	return strings.Join(parts, " ")
}

// ParseMemoryText parses the neural_patterns format plus the three
// parallel weight files and the threshold. Blank or unparseable
// pattern entries are skipped; weight channels are read as-is and
// default to 1.0 per pattern when missing or short.
func ParseMemoryText(text, weightsText, weightsHighText, weightsLowText string, threshold float64) *Memory {
	m := &Memory{Threshold: threshold}

	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		for _, raw := range strings.Split(trimmed, PatternSeparator) {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			fields := strings.Split(raw, FieldSeparator)
			vals := ParseFloats(fields[0])
			if len(vals) == 0 {
				continue
			}
			m.Patterns = append(m.Patterns, vals)
			if len(fields) > 1 {
				m.HighDiffs = append(m.HighDiffs, safeFloat(fields[1]))
			} else {
				m.HighDiffs = append(m.HighDiffs, 0)
			}
			if len(fields) > 2 {
				m.LowDiffs = append(m.LowDiffs, safeFloat(fields[2]))
			} else {
				m.LowDiffs = append(m.LowDiffs, 0)
			}
		}
	}

	m.Weights = ParseFloats(weightsText)
	m.WeightsHigh = ParseFloats(weightsHighText)
	m.WeightsLow = ParseFloats(weightsLowText)
	return m
}

// ParseFloats parses whitespace-separated floats, skipping tokens that
// fail to parse.
func ParseFloats(text string) []float64 {
	var out []float64
	for _, tok := range strings.Fields(text) {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func safeFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
