package exam

import "github.com/alem-hub/mentorship-hub/internal/domain/shared"

// CatalogRepository is the storage gateway for exams.
type CatalogRepository = shared.Collection[*Exam]

// AssignmentRepository is the storage gateway for exam assignments.
type AssignmentRepository = shared.Collection[*Assignment]

// Queryable field names (JSON keys).
const (
	FieldTitle            = "title"
	FieldMentorshipID     = "mentorship_id"
	FieldExamID           = "exam_id"
	FieldAssignedByUserID = "assigned_by_user_id"
	FieldAssignedDate     = "assigned_date"
	FieldCompletedDate    = "completed_date"
	FieldCreatedAt        = "created_at"
)

// CatalogSchema describes the exam catalog collection.
var CatalogSchema = shared.Schema[*Exam]{
	Name: "simulated_exams",
	Fields: map[string]shared.Field[*Exam]{
		FieldTitle:     {Kind: shared.KindString, Get: func(e *Exam) any { return e.Title }},
		FieldCreatedAt: {Kind: shared.KindTime, Get: func(e *Exam) any { return e.CreatedAt }},
	},
}

// AssignmentSchema describes the exam assignment collection.
var AssignmentSchema = shared.Schema[*Assignment]{
	Name: "mentorship_exams",
	Fields: map[string]shared.Field[*Assignment]{
		FieldMentorshipID:     {Kind: shared.KindString, Get: func(a *Assignment) any { return a.MentorshipID }},
		FieldExamID:           {Kind: shared.KindString, Get: func(a *Assignment) any { return a.ExamID }},
		FieldAssignedByUserID: {Kind: shared.KindString, Get: func(a *Assignment) any { return a.AssignedByUserID }},
		FieldAssignedDate:     {Kind: shared.KindTime, Get: func(a *Assignment) any { return a.AssignedDate }},
		FieldCompletedDate: {Kind: shared.KindTime, Get: func(a *Assignment) any {
			if a.CompletedDate == nil {
				return nil
			}
			return *a.CompletedDate
		}},
		FieldCreatedAt: {Kind: shared.KindTime, Get: func(a *Assignment) any { return a.CreatedAt }},
	},
}
