package dashboard

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/stretchr/testify/require"
)

var analyzedAt = time.Date(2026, 3, 14, 9, 5, 0, 0, time.Local)

func TestBuildTiers(t *testing.T) {
	tests := []struct {
		score    int
		wantText string
		wantTier Tier
	}{
		{score: 100, wantTier: TierExcellent, wantText: "Excellent! Very confident delivery"},
		{score: 80, wantTier: TierExcellent, wantText: "Excellent! Very confident delivery"},
		{score: 79, wantTier: TierGood, wantText: "Good! Solid performance"},
		{score: 60, wantTier: TierGood, wantText: "Good! Solid performance"},
		{score: 59, wantTier: TierAverage, wantText: "Average. Room for improvement"},
		{score: 40, wantTier: TierAverage, wantText: "Average. Room for improvement"},
		{score: 39, wantTier: TierNeedsPractice, wantText: "Needs practice. Keep working on it"},
		{score: 0, wantTier: TierNeedsPractice, wantText: "Needs practice. Keep working on it"},
	}

	for _, tc := range tests {
		view := Build(analysis.Result{ConfidenceScore: analysis.Score(tc.score)}, analyzedAt)
		require.Equal(t, tc.wantTier, view.Tier, "score %d", tc.score)
		require.Equal(t, tc.wantText, view.TierText, "score %d", tc.score)
		require.Equal(t, tc.score, view.BarFill)
	}
}

func TestBuildClampsScore(t *testing.T) {
	high := Build(analysis.Result{ConfidenceScore: 140}, analyzedAt)
	require.Equal(t, 100, high.Score)
	require.Equal(t, "100%", high.ScoreText)
	require.Equal(t, 100, high.BarFill)

	low := Build(analysis.Result{ConfidenceScore: -3}, analyzedAt)
	require.Equal(t, 0, low.Score)
	require.Equal(t, "0%", low.ScoreText)
}

func TestBuildPlaceholders(t *testing.T) {
	view := Build(analysis.Result{EyeContact: "   ", SpeakingStyle: "\n"}, analyzedAt)

	require.Equal(t, 0, view.Score)
	require.Equal(t, "0%", view.ScoreText)
	require.Equal(t, "No transcript available", view.Transcript)
	require.Equal(t, "Not detected", view.EyeContact)
	require.Equal(t, "Not detected", view.FacialExpressions)
	require.Equal(t, "Not detected", view.SpeakingStyle)
	require.Equal(t, []string{"No specific feedback points available"}, view.Feedback)
	require.Equal(t, "Analyzed at 09:05", view.AnalyzedAt)
}

func TestBuildKeepsFeedbackOrder(t *testing.T) {
	view := Build(analysis.Result{
		ConfidenceScore:   72,
		Transcript:        "I led the migration.",
		EyeContact:        "Steady",
		FacialExpressions: "Relaxed",
		SpeakingStyle:     "Clear",
		FeedbackPoints:    analysis.Points{"Slow down", " ", "Add metrics"},
	}, analyzedAt)

	require.Equal(t, "72%", view.ScoreText)
	require.Equal(t, "I led the migration.", view.Transcript)
	require.Equal(t, "Steady", view.EyeContact)
	require.Equal(t, []string{"Slow down", " ", "Add metrics"}, view.Feedback)
}

func TestBuildKeepsBlankFeedbackEntries(t *testing.T) {
	view := Build(analysis.Result{FeedbackPoints: analysis.Points{"", "B"}}, analyzedAt)
	require.Equal(t, []string{"", "B"}, view.Feedback)

	empty := Build(analysis.Result{FeedbackPoints: analysis.Points{}}, analyzedAt)
	require.Equal(t, []string{"No specific feedback points available"}, empty.Feedback)
}

func TestBuildClampsDecodedExtremeScore(t *testing.T) {
	var result analysis.Result
	require.NoError(t, json.Unmarshal([]byte(`{"confidence_score": 1e19}`), &result))

	view := Build(result, analyzedAt)
	require.Equal(t, "100%", view.ScoreText)
	require.Equal(t, TierExcellent, view.Tier)
}

func TestPresenterShowsViewThenNotifies(t *testing.T) {
	var order []string
	var shown View
	sink := SinkFunc(func(v View) {
		order = append(order, "show")
		shown = v
	})
	notifier := &recordingNotifier{order: &order}

	p := NewPresenter(sink, notifier)
	p.now = func() time.Time { return analyzedAt }

	got := p.Present(analysis.Result{ConfidenceScore: 85})
	require.Equal(t, []string{"show", "success"}, order)
	require.Equal(t, got, shown)
	require.Equal(t, TierExcellent, shown.Tier)
	require.Equal(t, []string{CompleteMessage}, notifier.messages)
}

func TestPresenterToleratesNilCollaborators(t *testing.T) {
	p := NewPresenter(nil, nil)
	view := p.Present(analysis.Result{ConfidenceScore: 50})
	require.Equal(t, TierAverage, view.Tier)
}

func TestSummaryAndRender(t *testing.T) {
	view := Build(analysis.Result{
		ConfidenceScore: 64,
		Transcript:      "Tell me about yourself.",
		FeedbackPoints:  analysis.Points{"Pause less"},
	}, analyzedAt)

	summary := Summary(view)
	require.Contains(t, summary, "Confidence: 64% (Good! Solid performance)")
	require.Contains(t, summary, "- Pause less")
	require.True(t, strings.HasSuffix(summary, "Analyzed at 09:05"))

	rendered := Render(view, 0, 60)
	require.Contains(t, rendered, "Interview Analysis")
	require.Contains(t, rendered, "64%")
	require.Contains(t, rendered, "Pause less")
}

func TestBarFill(t *testing.T) {
	require.Equal(t, 0, strings.Count(Bar(TierGood, 0), "█"))
	require.Equal(t, barCells/2, strings.Count(Bar(TierGood, 50), "█"))
	require.Equal(t, barCells, strings.Count(Bar(TierGood, 150), "█"))
}

type recordingNotifier struct {
	order    *[]string
	messages []string
}

func (n *recordingNotifier) Success(message string) {
	*n.order = append(*n.order, "success")
	n.messages = append(n.messages, message)
}
