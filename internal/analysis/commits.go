// Package analysis scores pull requests without calling anything: commit
// message hygiene and a keyword scan of changed source files.
//
// Both checks are heuristics meant to point a reviewer somewhere, not to gate
// a merge.
package analysis

import "strings"

// Quality is the verdict on a single commit message.
type Quality int

const (
	QualityGood Quality = iota
	QualityBad
)

// Suggestions emitted by Commits.
const (
	SuggestCleanup      = "Consider cleaning up temporary or debug commits before merging"
	SuggestSplit        = "Consider breaking this PR into smaller, more focused changes"
	SuggestConsistency  = "Review commit messages for clarity and consistency"
	SuggestSingleCommit = "Single commit PRs should have clear, descriptive messages"
)

const (
	// A PR with more commits than this is probably doing several things.
	maxFocusedCommits = 20
	// Below this share of good messages the history needs a second look.
	minGoodRatio = 0.7
)

// Intent words win over throwaway words: "fix flaky test" is a real change.
var (
	intentWords    = []string{"fix", "add", "update", "improve", "refactor", "implement", "create"}
	throwawayWords = []string{"temp", "debug", "test", "wip", "work in progress", "temporary"}
)

// CommitReport summarizes a list of commit messages.
type CommitReport struct {
	Total       int      `json:"total"`
	Good        int      `json:"good"`
	Bad         int      `json:"bad"`
	Suggestions []string `json:"suggestions"`
}

// Classify judges one commit message. Words match anywhere in the lowercased
// message, and a message with neither kind of word counts as good.
func Classify(message string) Quality {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, intentWords):
		return QualityGood
	case containsAny(msg, throwawayWords):
		return QualityBad
	default:
		return QualityGood
	}
}

// Commits classifies every message and derives review suggestions.
// Suggestions is never nil so it encodes as [] when there is nothing to say.
func Commits(messages []string) CommitReport {
	report := CommitReport{Total: len(messages), Suggestions: []string{}}
	for _, m := range messages {
		if Classify(m) == QualityBad {
			report.Bad++
		} else {
			report.Good++
		}
	}

	if report.Bad > 0 {
		report.Suggestions = append(report.Suggestions, SuggestCleanup)
	}
	if report.Total > maxFocusedCommits {
		report.Suggestions = append(report.Suggestions, SuggestSplit)
	}
	if report.Total > 0 && float64(report.Good)/float64(report.Total) < minGoodRatio {
		report.Suggestions = append(report.Suggestions, SuggestConsistency)
	}
	if report.Total == 1 && report.Bad == 1 {
		report.Suggestions = append(report.Suggestions, SuggestSingleCommit)
	}
	return report
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
