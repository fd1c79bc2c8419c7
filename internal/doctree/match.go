package doctree

// MatchResult is one ranked answer section for a question.
type MatchResult struct {
	SectionTitle    string  `json:"section_title"`
	PageRange       [2]int  `json:"page_range"` // 0-based, inclusive
	SimilarityScore float64 `json:"similarity_score"`
	TextExcerpt     string  `json:"text_excerpt"`
}

// QAMatch holds the ranked matches of a single question.
type QAMatch struct {
	Question    string        `json:"question"`
	Matches     []MatchResult `json:"matches"`
	IsUnmatched bool          `json:"is_unmatched"`
}

// QAReport is the result of one comparison run.
type QAReport struct {
	Questions       []QAMatch `json:"questions"`
	QuestionsSource string    `json:"questions_source"`
	AnswersSource   string    `json:"answers_source"`
	GeneratedAt     string    `json:"generated_at"`
}

// Matched counts questions with at least one match.
func (r QAReport) Matched() int {
	n := 0
	for _, q := range r.Questions {
		if !q.IsUnmatched {
			n++
		}
	}
	return n
}
