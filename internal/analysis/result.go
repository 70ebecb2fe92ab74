package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the analysis returned by the backend. Every field is optional.
type Result struct {
	ConfidenceScore   Score  `json:"confidence_score"`
	Transcript        string `json:"transcript"`
	EyeContact        string `json:"eye_contact"`
	FacialExpressions string `json:"facial_expressions"`
	SpeakingStyle     string `json:"speaking_style"`
	FeedbackPoints    Points `json:"feedback_points"`
}

// envelope is a 2xx body: either a Result or an error report.
type envelope struct {
	Result
	Error     string `json:"error"`
	Details   string `json:"details"`
	RawOutput string `json:"raw_output"`
}

// Score is a 0-100 confidence value. The model behind the backend sometimes
// emits it as a float or a quoted number, so decoding is lenient.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*s = scoreFromFloat(number)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("confidence_score: expected number or numeric string")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "%")
	if text == "" {
		*s = 0
		return nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("confidence_score: %w", err)
	}
	*s = scoreFromFloat(number)
	return nil
}

// scoreFromFloat clamps before converting; out-of-range floats have no
// defined int conversion. NaN counts as 0.
func scoreFromFloat(number float64) Score {
	if math.IsNaN(number) {
		return 0
	}
	return Score(math.Round(math.Max(0, math.Min(100, number))))
}

// Points is an ordered feedback list; a bare string decodes as one point.
type Points []string

func (p *Points) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("feedback_points: expected string array")
	}
	if strings.TrimSpace(single) == "" {
		*p = nil
		return nil
	}
	*p = Points{single}
	return nil
}
