package domain

import "strings"

// QuestionRef identifies a question and the section/subsection it belongs to.
// Both the response ledger and the review scheduler key their records by it.
type QuestionRef struct {
	QuestionID   string `json:"question_id"`
	SectionID    string `json:"section_id"`
	SubsectionID string `json:"subsection_id"`
}

// NewQuestionRef trims the identifiers and validates them.
func NewQuestionRef(questionID, sectionID, subsectionID string) (QuestionRef, error) {
	ref := QuestionRef{
		QuestionID:   strings.TrimSpace(questionID),
		SectionID:    strings.TrimSpace(sectionID),
		SubsectionID: strings.TrimSpace(subsectionID),
	}
	if err := ref.Validate(); err != nil {
		return QuestionRef{}, err
	}
	return ref, nil
}

// Validate checks that every identifier is present.
func (r QuestionRef) Validate() error {
	if strings.TrimSpace(r.QuestionID) == "" {
		return ErrEmptyQuestionID
	}
	if strings.TrimSpace(r.SectionID) == "" {
		return ErrEmptySectionID
	}
	if strings.TrimSpace(r.SubsectionID) == "" {
		return ErrEmptySubsectionID
	}
	return nil
}

// InScope reports whether the question belongs to the given section and subsection.
func (r QuestionRef) InScope(sectionID, subsectionID string) bool {
	return r.SectionID == sectionID && r.SubsectionID == subsectionID
}

// NormalizeScope trims a (section, subsection) pair used to filter records
// and rejects blank identifiers. Stored refs are trimmed, so filters must be too.
func NormalizeScope(sectionID, subsectionID string) (string, string, error) {
	sectionID = strings.TrimSpace(sectionID)
	subsectionID = strings.TrimSpace(subsectionID)
	if sectionID == "" {
		return "", "", ErrEmptySectionID
	}
	if subsectionID == "" {
		return "", "", ErrEmptySubsectionID
	}
	return sectionID, subsectionID, nil
}
