package usecase

import "time"

const (
	// DefaultIssueAttempts is how many times OpenAccount tries a fresh card
	// number before giving up on collisions.
	DefaultIssueAttempts = 5

	// issueInitialInterval and issueMaxInterval bound the backoff between attempts.
	issueInitialInterval = 5 * time.Millisecond
	issueMaxInterval     = 200 * time.Millisecond
)
