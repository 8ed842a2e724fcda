// Package feedback contains MentorshipFeedback: a comment, optionally
// rated, that one party of a mentorship leaves for the other.
package feedback

import (
	"math"
	"strings"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

const domainName = "feedback"

// Rating bounds for a single feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a message from one mentorship party to the other.
type Feedback struct {
	ID           string    `json:"id"`
	MentorshipID string    `json:"mentorship_id"`
	FromUserID   string    `json:"from_user_id"`
	ToUserID     string    `json:"to_user_id"`
	Content      string    `json:"content"`
	Rating       *int      `json:"rating,omitempty"`
	MeetingID    *string   `json:"meeting_id,omitempty"`
	IsAnonymous  bool      `json:"is_anonymous"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Parties is the mentor/mentee pair of the mentorship a feedback belongs to.
type Parties struct {
	MentorID string
	MenteeID string
}

func (p Parties) has(userID string) bool {
	return userID == p.MentorID || userID == p.MenteeID
}

// NewFeedbackParams holds the input of NewFeedback.
type NewFeedbackParams struct {
	ID           string
	MentorshipID string
	FromUserID   string
	ToUserID     string
	Content      string
	Rating       *int
	MeetingID    *string
	IsAnonymous  bool
	Parties      Parties
	Now          time.Time
}

// NewFeedback validates the parties and rating and creates a feedback.
func NewFeedback(p NewFeedbackParams) (*Feedback, error) {
	const op = "Create"

	if p.ID == "" {
		return nil, shared.Validation(domainName, op, "id is required")
	}
	if p.MentorshipID == "" || p.FromUserID == "" || p.ToUserID == "" {
		return nil, shared.Validation(domainName, op, "mentorship, sender and recipient are required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, shared.Validation(domainName, op, "content is required")
	}
	if err := ValidateParties(op, p.Parties, p.FromUserID, p.ToUserID); err != nil {
		return nil, err
	}
	if err := ValidateRating(op, p.Rating); err != nil {
		return nil, err
	}

	now := p.Now.UTC()
	return &Feedback{
		ID:           p.ID,
		MentorshipID: p.MentorshipID,
		FromUserID:   p.FromUserID,
		ToUserID:     p.ToUserID,
		Content:      p.Content,
		Rating:       clonePtr(p.Rating),
		MeetingID:    clonePtr(p.MeetingID),
		IsAnonymous:  p.IsAnonymous,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateParties checks that from and to are the two distinct parties.
func ValidateParties(op string, parties Parties, from, to string) error {
	if !parties.has(from) {
		return shared.Validation(domainName, op, "sender %s is not a party of the mentorship", from)
	}
	if !parties.has(to) {
		return shared.Validation(domainName, op, "recipient %s is not a party of the mentorship", to)
	}
	if from == to {
		return shared.Validation(domainName, op, "sender and recipient must differ")
	}
	return nil
}

// ValidateRating accepts nil or a value in [1, 5].
func ValidateRating(op string, rating *int) error {
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return shared.NewDomainError(domainName, op, shared.ErrValueOutOfRange, "rating must be between 1 and 5")
	}
	return nil
}

// Patch is a partial update. ClearRating removes the rating.
type Patch struct {
	Content     *string
	Rating      *int
	ClearRating bool
	IsAnonymous *bool
}

// TouchesRating reports whether applying p may change the rating.
func (p Patch) TouchesRating() bool {
	return p.Rating != nil || p.ClearRating
}

// Apply validates and applies p.
func (f *Feedback) Apply(now time.Time, p Patch) error {
	const op = "Update"

	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return shared.Validation(domainName, op, "content cannot be empty")
	}
	if err := ValidateRating(op, p.Rating); err != nil {
		return err
	}
	if p.Content != nil {
		f.Content = *p.Content
	}
	switch {
	case p.ClearRating:
		f.Rating = nil
	case p.Rating != nil:
		f.Rating = clonePtr(p.Rating)
	}
	if p.IsAnonymous != nil {
		f.IsAnonymous = *p.IsAnonymous
	}
	f.UpdatedAt = now
	return nil
}

// HasRating reports whether the feedback carries a rating.
func (f *Feedback) HasRating() bool { return f.Rating != nil }

// RecordID implements shared.Record.
func (f *Feedback) RecordID() string { return f.ID }

// Clone returns a deep copy.
func (f *Feedback) Clone() *Feedback {
	if f == nil {
		return nil
	}
	c := *f
	c.Rating = clonePtr(f.Rating)
	c.MeetingID = clonePtr(f.MeetingID)
	return &c
}

// AverageRating is the mean of the non-nil ratings rounded to one decimal,
// or nil when there are none.
func AverageRating(items []*Feedback) *float64 {
	var sum, n int
	for _, f := range items {
		if f.Rating == nil {
			continue
		}
		sum += *f.Rating
		n++
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(n)*10) / 10
	return &avg
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
