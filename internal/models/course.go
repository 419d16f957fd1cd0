package models

import "time"

// CourseStatus tracks the course lifecycle. Publishing is one-directional:
// once published a course never returns to Draft, and archiving does not
// revert the published flags.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "Draft"
	CourseStatusPublished CourseStatus = "Published"
	CourseStatusArchived  CourseStatus = "Archived"
)

// Course groups ordered lectures under a module manager.
type Course struct {
	ID               string       `db:"id" json:"id"`
	Title            string       `db:"title" json:"title"`
	Subtitle         string       `db:"subtitle" json:"subtitle"`
	Category         string       `db:"category" json:"category"`
	Description      string       `db:"description" json:"description"`
	Thumbnail        string       `db:"thumbnail" json:"thumbnail"`
	Trailer          string       `db:"trailer" json:"trailer"`
	ModuleManagerID  string       `db:"module_manager_id" json:"module_manager"`
	Status           CourseStatus `db:"status" json:"status"`
	IsPublished      bool         `db:"is_published" json:"is_published"`
	IsArchived       bool         `db:"is_archived" json:"is_archived"`
	Version          int          `db:"version" json:"-"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
	Lectures         []string     `db:"-" json:"lectures"`
	EnrolledStudents []string     `db:"-" json:"enrolled_students"`
}

// CourseFilter captures list filters for courses.
type CourseFilter struct {
	PublishedOnly bool
	Archived      *bool
	CoachType     *CoachType
	ManagerID     string
	Search        string
	Page          int
	PageSize      int
}

// CourseProgress is the read model produced by the progress rollup. It is
// computed on demand and never persisted.
type CourseProgress struct {
	CourseID                    string            `json:"course_id"`
	StudentID                   string            `json:"student_id"`
	TotalLectures               int               `json:"total_lectures"`
	CompletedLectures           int               `json:"completed_lectures"`
	TotalQuestions              int               `json:"total_questions"`
	AnsweredQuestions           int               `json:"answered_questions"`
	LectureCompletionPercentage float64           `json:"lecture_completion_percentage"`
	QuizCompletionPercentage    float64           `json:"quiz_completion_percentage"`
	Lectures                    []LectureProgress `json:"lectures"`
}

// LectureProgress is the per-lecture slice of a progress rollup.
type LectureProgress struct {
	LectureID     string `db:"lecture_id" json:"lecture_id"`
	LectureTitle  string `db:"lecture_title" json:"lecture_title"`
	IsCompleted   bool   `db:"is_completed" json:"is_completed"`
	QuestionCount int    `db:"question_count" json:"question_count"`
	AnsweredCount int    `db:"answered_count" json:"answered_count"`
}
