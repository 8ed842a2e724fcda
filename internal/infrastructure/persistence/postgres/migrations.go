package postgres

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_mentorships",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_meetings_and_objectives",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_feedback_and_profiles",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_exams",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: MENTORSHIPS
// ══════════════════════════════════════════════════════════════════════════════

// Every collection table has the same shape: the record as a JSONB document,
// plus seq for a stable insertion order.
const migration001Up = `
CREATE TABLE IF NOT EXISTS mentorships (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    CONSTRAINT mentorships_valid_status CHECK (
        data->>'status' IN ('pending', 'active', 'completed', 'cancelled')
    )
);

CREATE INDEX IF NOT EXISTS idx_mentorships_mentor ON mentorships ((data->>'mentor_id'));
CREATE INDEX IF NOT EXISTS idx_mentorships_mentee ON mentorships ((data->>'mentee_id'));
CREATE INDEX IF NOT EXISTS idx_mentorships_status ON mentorships ((data->>'status'));
CREATE INDEX IF NOT EXISTS idx_mentorships_seq ON mentorships (seq);
`

const migration001Down = `
DROP TABLE IF EXISTS mentorships;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: MEETINGS AND OBJECTIVES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS meetings (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    CONSTRAINT meetings_valid_status CHECK (
        data->>'status' IN ('scheduled', 'completed', 'cancelled', 'rescheduled')
    ),
    CONSTRAINT meetings_valid_duration CHECK ((data->>'duration')::int > 0)
);

CREATE INDEX IF NOT EXISTS idx_meetings_mentorship ON meetings ((data->>'mentorship_id'));
CREATE INDEX IF NOT EXISTS idx_meetings_status ON meetings ((data->>'status'));
CREATE INDEX IF NOT EXISTS idx_meetings_rescheduled_from ON meetings ((data->>'rescheduled_from_id'))
    WHERE data ? 'rescheduled_from_id';

CREATE TABLE IF NOT EXISTS objectives (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    CONSTRAINT objectives_valid_progress CHECK (
        (data->>'progress')::int BETWEEN 0 AND 100
    )
);

CREATE INDEX IF NOT EXISTS idx_objectives_mentorship ON objectives ((data->>'mentorship_id'));
CREATE INDEX IF NOT EXISTS idx_objectives_status ON objectives ((data->>'status'));
`

const migration002Down = `
DROP TABLE IF EXISTS objectives;
DROP TABLE IF EXISTS meetings;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: FEEDBACK AND MENTOR PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS mentorship_feedback (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_feedback_mentorship ON mentorship_feedback ((data->>'mentorship_id'));
CREATE INDEX IF NOT EXISTS idx_feedback_to_user ON mentorship_feedback ((data->>'to_user_id'));
CREATE INDEX IF NOT EXISTS idx_feedback_from_user ON mentorship_feedback ((data->>'from_user_id'));

CREATE TABLE IF NOT EXISTS mentor_profiles (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS mentor_profiles;
DROP TABLE IF EXISTS mentorship_feedback;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: SIMULATED EXAMS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS simulated_exams (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS mentorship_exams (
    seq BIGSERIAL NOT NULL,
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mentorship_exams_pair
    ON mentorship_exams ((data->>'mentorship_id'), (data->>'exam_id'));
CREATE INDEX IF NOT EXISTS idx_mentorship_exams_assigned_by ON mentorship_exams ((data->>'assigned_by_user_id'));
`

const migration004Down = `
DROP TABLE IF EXISTS mentorship_exams;
DROP TABLE IF EXISTS simulated_exams;
`
