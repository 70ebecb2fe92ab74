// Package dashboard turns an analysis result into the feedback view.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
)

const (
	noTranscript = "No transcript available"
	notDetected  = "Not detected"
	noFeedback   = "No specific feedback points available"

	// CompleteMessage is the success notification sent after a result is shown.
	CompleteMessage = "Analysis complete! Review your feedback below."
)

// Tier buckets the confidence score.
type Tier string

const (
	TierExcellent     Tier = "excellent"
	TierGood          Tier = "good"
	TierAverage       Tier = "average"
	TierNeedsPractice Tier = "needs practice"
)

// View is everything the surface needs to draw one analysis.
type View struct {
	Score             int
	ScoreText         string
	BarFill           int
	Tier              Tier
	TierText          string
	Transcript        string
	EyeContact        string
	FacialExpressions string
	SpeakingStyle     string
	Feedback          []string
	AnalyzedAt        string
}

// Build derives the view from result. It has no side effects.
func Build(result analysis.Result, now time.Time) View {
	score := clampScore(int(result.ConfidenceScore))
	tier, tierText := tierFor(score)

	return View{
		Score:             score,
		ScoreText:         fmt.Sprintf("%d%%", score),
		BarFill:           score,
		Tier:              tier,
		TierText:          tierText,
		Transcript:        orDefault(result.Transcript, noTranscript),
		EyeContact:        orDefault(result.EyeContact, notDetected),
		FacialExpressions: orDefault(result.FacialExpressions, notDetected),
		SpeakingStyle:     orDefault(result.SpeakingStyle, notDetected),
		Feedback:          feedbackList(result.FeedbackPoints),
		AnalyzedAt:        "Analyzed at " + now.Format("15:04"),
	}
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

func tierFor(score int) (Tier, string) {
	switch {
	case score >= 80:
		return TierExcellent, "Excellent! Very confident delivery"
	case score >= 60:
		return TierGood, "Good! Solid performance"
	case score >= 40:
		return TierAverage, "Average. Room for improvement"
	default:
		return TierNeedsPractice, "Needs practice. Keep working on it"
	}
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// feedbackList keeps every point of a non-empty list as given, blanks
// included; only an empty or absent list gets the placeholder.
func feedbackList(points analysis.Points) []string {
	if len(points) == 0 {
		return []string{noFeedback}
	}
	return append([]string(nil), points...)
}

// Summary is a plain-text rendition used for clipboard export and history.
func Summary(v View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Confidence: %s (%s)\n", v.ScoreText, v.TierText)
	fmt.Fprintf(&b, "Eye contact: %s\n", v.EyeContact)
	fmt.Fprintf(&b, "Facial expressions: %s\n", v.FacialExpressions)
	fmt.Fprintf(&b, "Speaking style: %s\n", v.SpeakingStyle)
	b.WriteString("\nTranscript:\n")
	b.WriteString(v.Transcript)
	b.WriteString("\n\nFeedback:\n")
	for _, point := range v.Feedback {
		fmt.Fprintf(&b, "- %s\n", point)
	}
	b.WriteString("\n")
	b.WriteString(v.AnalyzedAt)
	return b.String()
}
