package models

// Student is the STUDENT variant: the base user plus trajectory, the coach
// back-link and the ordered courses roadmap.
type Student struct {
	User
	CoachingTrajectory CoachType `db:"coaching_trajectory" json:"coaching_trajectory"`
	AssignedCoach      *string   `db:"assigned_coach_id" json:"assigned_coach,omitempty"`
	Version            int       `db:"version" json:"-"`
	CoursesRoadmap     []string  `db:"-" json:"courses_roadmap"`
}

// StudentFilter captures list filters for students.
type StudentFilter struct {
	CoachingTrajectory *CoachType
	AssignedCoach      string
	WithoutCoach       bool
	Active             *bool
	Search             string
	Page               int
	PageSize           int
}
