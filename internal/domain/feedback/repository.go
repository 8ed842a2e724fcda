package feedback

import "github.com/alem-hub/mentorship-hub/internal/domain/shared"

// Repository is the storage gateway for feedback.
type Repository = shared.Collection[*Feedback]

// Queryable field names (JSON keys).
const (
	FieldMentorshipID = "mentorship_id"
	FieldFromUserID   = "from_user_id"
	FieldToUserID     = "to_user_id"
	FieldMeetingID    = "meeting_id"
	FieldRating       = "rating"
	FieldCreatedAt    = "created_at"
)

// Schema describes the feedback collection.
var Schema = shared.Schema[*Feedback]{
	Name: "mentorship_feedback",
	Fields: map[string]shared.Field[*Feedback]{
		FieldMentorshipID: {Kind: shared.KindString, Get: func(f *Feedback) any { return f.MentorshipID }},
		FieldFromUserID:   {Kind: shared.KindString, Get: func(f *Feedback) any { return f.FromUserID }},
		FieldToUserID:     {Kind: shared.KindString, Get: func(f *Feedback) any { return f.ToUserID }},
		FieldMeetingID: {Kind: shared.KindString, Get: func(f *Feedback) any {
			if f.MeetingID == nil {
				return nil
			}
			return *f.MeetingID
		}},
		FieldRating: {Kind: shared.KindInt, Get: func(f *Feedback) any {
			if f.Rating == nil {
				return nil
			}
			return *f.Rating
		}},
		FieldCreatedAt: {Kind: shared.KindTime, Get: func(f *Feedback) any { return f.CreatedAt }},
	},
}
