// Package review schedules questions for spaced repetition.
//
// UpdateSchedule applies a 0-5 quality rating to a question's review state
// inside one transaction, and GetDueQuestions assembles the combined
// "needs review" view from due states and the session's incorrect answers.
package review
