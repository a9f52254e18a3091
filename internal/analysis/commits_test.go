package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Quality
	}{
		{"Fix nil pointer in session lookup", QualityGood},
		{"Add repository list endpoint", QualityGood},
		{"refactor: split handler", QualityGood},
		{"Merge branch 'main' into feature", QualityGood},
		{"wip", QualityBad},
		{"WIP: half done", QualityBad},
		{"debug logging", QualityBad},
		{"temp", QualityBad},
		{"Work in progress", QualityBad},
		{"more testing", QualityBad},
		// Intent words take precedence over throwaway words.
		{"fix flaky test", QualityGood},
		{"Update debug output", QualityGood},
		{"", QualityGood},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func repeat(message string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = message
	}
	return out
}

func TestCommits(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     CommitReport
	}{
		{
			name:     "no commits",
			messages: nil,
			want:     CommitReport{Suggestions: []string{}},
		},
		{
			name:     "clean history",
			messages: []string{"Add login", "Fix redirect", "Improve logging"},
			want:     CommitReport{Total: 3, Good: 3, Suggestions: []string{}},
		},
		{
			name:     "single throwaway commit",
			messages: []string{"wip"},
			want: CommitReport{Total: 1, Bad: 1, Suggestions: []string{
				SuggestCleanup, SuggestConsistency, SuggestSingleCommit,
			}},
		},
		{
			name:     "mostly throwaway",
			messages: []string{"wip", "debug", "Fix it"},
			want: CommitReport{Total: 3, Good: 1, Bad: 2, Suggestions: []string{
				SuggestCleanup, SuggestConsistency,
			}},
		},
		{
			name:     "exactly seventy percent good",
			messages: append(repeat("Add feature", 7), repeat("temp", 3)...),
			want:     CommitReport{Total: 10, Good: 7, Bad: 3, Suggestions: []string{SuggestCleanup}},
		},
		{
			name:     "too many commits",
			messages: repeat("Update docs", 21),
			want:     CommitReport{Total: 21, Good: 21, Suggestions: []string{SuggestSplit}},
		},
		{
			name:     "twenty commits is still focused",
			messages: repeat("Update docs", 20),
			want:     CommitReport{Total: 20, Good: 20, Suggestions: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Commits(tt.messages))
		})
	}
}

func TestCommits_EmptySuggestionsEncodeAsArray(t *testing.T) {
	out, err := json.Marshal(Commits(nil))
	require.NoError(t, err)

	assert.JSONEq(t, `{"total":0,"good":0,"bad":0,"suggestions":[]}`, string(out))
}
