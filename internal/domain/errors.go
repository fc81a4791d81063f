package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrProgressNotFound = errors.New("progress not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrDayNotFound      = errors.New("day not found")
	ErrNoAccess         = errors.New("no course access")
	ErrDayLocked        = errors.New("day is locked")
	ErrAttemptLimit     = errors.New("attempt limit reached")
	ErrActiveRequest    = errors.New("active request exists")
	ErrVoiceTooShort    = errors.New("voice message too short")
	ErrVoiceTooLong     = errors.New("voice message too long")
)
