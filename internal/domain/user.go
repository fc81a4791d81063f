package domain

import "time"

type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Email      string

	HasAccess bool
	IsAdmin   bool

	// Course progress. CurrentDay is the highest unlocked day (0 = course
	// not started). Code holds the collected completion-code letters with
	// '_' for unfilled positions.
	CurrentDay    int
	CompletedDays int
	Code          string

	Timezone               string
	LastActivity           time.Time
	LastUnlockNotification *time.Time
	CourseStartedAt        *time.Time
	CourseCompletedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) CourseFinished() bool {
	return u.CourseCompletedAt != nil
}

// UnlockNotifiedOn reports whether an unlock notification was already sent
// on the given UTC date.
func (u *User) UnlockNotifiedOn(day time.Time) bool {
	if u.LastUnlockNotification == nil {
		return false
	}
	y1, m1, d1 := u.LastUnlockNotification.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
