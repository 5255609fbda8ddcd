package services

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who is performing an operation.
type Actor struct {
	UserID  uuid.UUID
	IsStaff bool
}

// Anonymous is the actor for unauthenticated requests.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}

// String renders the actor for logs.
func (a Actor) String() string {
	switch {
	case !a.Authenticated():
		return "anonymous"
	case a.IsStaff:
		return "staff:" + a.UserID.String()
	}
	return "user:" + a.UserID.String()
}

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
