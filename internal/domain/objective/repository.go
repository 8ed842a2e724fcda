package objective

import "github.com/alem-hub/mentorship-hub/internal/domain/shared"

// Repository is the storage gateway for objectives.
type Repository = shared.Collection[*Objective]

// Queryable field names (JSON keys).
const (
	FieldMentorshipID = "mentorship_id"
	FieldStatus       = "status"
	FieldTitle        = "title"
	FieldProgress     = "progress"
	FieldTargetDate   = "target_date"
	FieldCreatedAt    = "created_at"
)

// Schema describes the objectives collection.
var Schema = shared.Schema[*Objective]{
	Name: "objectives",
	Fields: map[string]shared.Field[*Objective]{
		FieldMentorshipID: {Kind: shared.KindString, Get: func(o *Objective) any { return o.MentorshipID }},
		FieldStatus:       {Kind: shared.KindString, Get: func(o *Objective) any { return string(o.Status) }},
		FieldTitle:        {Kind: shared.KindString, Get: func(o *Objective) any { return o.Title }},
		FieldProgress:     {Kind: shared.KindInt, Get: func(o *Objective) any { return o.Progress }},
		FieldTargetDate: {Kind: shared.KindTime, Get: func(o *Objective) any {
			if o.TargetDate == nil {
				return nil
			}
			return *o.TargetDate
		}},
		FieldCreatedAt: {Kind: shared.KindTime, Get: func(o *Objective) any { return o.CreatedAt }},
	},
}
