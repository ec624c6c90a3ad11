package policy

import (
	"strings"
)

// Canonical run types
const (
	RunEasy      = "easy"
	RunTempo     = "tempo"
	RunIntervals = "intervals"
	RunLongRun   = "longRun"
)

var runTypeKeys = map[string]string{
	"easy":      RunEasy,
	"tempo":     RunTempo,
	"intervals": RunIntervals,
	"longrun":   RunLongRun,
}

// longRunSeparators may join "long" and "run"
const longRunSeparators = " \t_-"

// CanonicalRunTypes returns the four run type tokens
func CanonicalRunTypes() []string {
	return []string{RunEasy, RunTempo, RunIntervals, RunLongRun}
}

// NormalizeRunType maps a run type variant ("Long Run", "long_run", "LONGRUN") to its
// canonical token. Matching ignores case and surrounding space; separators are only
// accepted between the two words of longRun. The second result is false for tokens
// outside the vocabulary.
func NormalizeRunType(token string) (string, bool) {
	canonical, ok := runTypeKeys[runTypeKey(token)]
	return canonical, ok
}

// IsValidRunType reports whether token normalizes to a canonical run type
func IsValidRunType(token string) bool {
	_, ok := NormalizeRunType(token)
	return ok
}

// IsCanonicalRunType reports whether token already is a canonical run type
func IsCanonicalRunType(token string) bool {
	switch token {
	case RunEasy, RunTempo, RunIntervals, RunLongRun:
		return true
	}
	return false
}

func runTypeKey(token string) string {
	key := strings.ToLower(strings.TrimSpace(token))
	if _, ok := runTypeKeys[key]; ok {
		return key
	}
	if rest, ok := strings.CutPrefix(key, "long"); ok {
		if middle, ok := strings.CutSuffix(rest, "run"); ok && strings.Trim(middle, longRunSeparators) == "" {
			return "longrun"
		}
	}
	return key
}
