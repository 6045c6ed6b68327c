package store

// StudySession is the persisted snapshot of a learning session.
// Each user has at most one snapshot. Timestamps are unix milliseconds.
type StudySession struct {
	UserID            int32
	SetID             string
	Mode              string
	Grading           string
	Queue             []string
	MasteredIDs       []string
	CurrentCardID     string
	QuestionsAnswered int
	CorrectCount      int
	SummaryPending    bool
	StartedTs         int64
	SavedTs           int64
}

// FindStudySession specifies the snapshot to load.
type FindStudySession struct {
	UserID int32
}

// DeleteStudySession specifies the snapshot to delete.
type DeleteStudySession struct {
	UserID int32
}
