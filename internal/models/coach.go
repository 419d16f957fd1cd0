package models

// CoachType classifies the coaching tier. A coach only serves students whose
// trajectory matches its type.
type CoachType string

const (
	CoachTypeHighTicket CoachType = "HIGH_TICKET"
	CoachTypeLowTicket  CoachType = "LOW_TICKET"
)

// Label returns the human form used in validation messages.
func (t CoachType) Label() string {
	if t == CoachTypeHighTicket {
		return "High Ticket"
	}
	return "Low Ticket"
}

// Coach is the COACH variant: the base user plus tier payload and the owned
// assignment set.
type Coach struct {
	User
	CoachType              CoachType `db:"coach_type" json:"coach_type"`
	HighTicketStudentSpots int       `db:"high_ticket_student_spots" json:"high_ticket_student_spots"`
	LowTicketStudentSpots  int       `db:"low_ticket_student_spots" json:"low_ticket_student_spots"`
	Bio                    string    `db:"bio" json:"bio"`
	Version                int       `db:"version" json:"-"`
	AssignedStudents       []string  `db:"-" json:"assigned_students"`
}

// Spots reports the capacity of the coach's active tier.
func (c *Coach) Spots() int {
	if c.CoachType == CoachTypeHighTicket {
		return c.HighTicketStudentSpots
	}
	return c.LowTicketStudentSpots
}

// CoachFilter captures list filters for coaches.
type CoachFilter struct {
	CoachType *CoachType
	Active    *bool
	Search    string
	Page      int
	PageSize  int
}
