package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Lecture is a unit of course content: a document, a hosted video, or a quiz.
type Lecture struct {
	ID          string          `db:"id" json:"id"`
	CourseID    string          `db:"course_id" json:"course_id"`
	Position    int             `db:"position" json:"position"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	File        string          `db:"file" json:"file"`
	VideoLink   string          `db:"video_link" json:"video_link"`
	VideoMeta   json.RawMessage `db:"video_meta" json:"video_meta,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	Quiz        Quiz            `db:"-" json:"quiz"`
	CompletedBy []string        `db:"-" json:"completed_by"`
}

// HasQuiz reports whether the lecture carries at least one question.
func (l *Lecture) HasQuiz() bool {
	return len(l.Quiz.MCQs) > 0
}

// Quiz is the question bank attached to a lecture.
type Quiz struct {
	MCQs []MCQ `json:"mcqs"`
}

// MCQ is a multiple-choice question with per-student answer history.
type MCQ struct {
	ID              string          `db:"id" json:"id"`
	LectureID       string          `db:"lecture_id" json:"-"`
	Position        int             `db:"position" json:"position"`
	Question        string          `db:"question" json:"question"`
	Options         pq.StringArray  `db:"options" json:"options"`
	CorrectAnswer   string          `db:"correct_answer" json:"correct_answer,omitempty"`
	StudentsAnswers []StudentAnswer `db:"-" json:"students_answers"`
}

// AnswerFor returns the recorded answer for a student, if any.
func (m *MCQ) AnswerFor(studentID string) *StudentAnswer {
	for i := range m.StudentsAnswers {
		if m.StudentsAnswers[i].StudentID == studentID {
			return &m.StudentsAnswers[i]
		}
	}
	return nil
}

// StudentAnswer is one student's latest answer to one question. At most one
// entry exists per student per question.
type StudentAnswer struct {
	StudentID string `db:"student_id" json:"student_id"`
	Answer    string `db:"answer" json:"answer"`
	Result    bool   `db:"result" json:"result"`
}

// QuizSubmission is one submitted answer pair. Unknown question ids are
// ignored during grading.
type QuizSubmission struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// QuizResult pairs the updated lecture with the grading outcome.
type QuizResult struct {
	Lecture *Lecture `json:"lecture"`
	Pass    bool     `json:"pass"`
	Score   float64  `json:"score"`
}

// LectureFilter captures list filters for lectures.
type LectureFilter struct {
	CourseID string
	Page     int
	PageSize int
}
