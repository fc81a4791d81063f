package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

// memStore is an in-memory repository.Store mirroring the Postgres
// implementation's semantics: monotonic current_day, one-way payment status,
// domain sentinels for not-found.
type memStore struct {
	mu sync.Mutex

	users     map[int64]*domain.User
	progress  map[int64]map[int]*domain.Progress
	attempts  map[int64]*domain.TaskAttempt
	payments  map[int64]*domain.Payment
	reminders []domain.Reminder

	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*domain.User),
		progress: make(map[int64]map[int]*domain.Progress),
		attempts: make(map[int64]*domain.TaskAttempt),
		payments: make(map[int64]*domain.Payment),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{
		ID:         m.id(),
		TelegramID: arg.TelegramID,
		Username:   arg.Username,
		FirstName:  arg.FirstName,
		LastName:   arg.LastName,
		Timezone:   arg.Timezone,
		IsAdmin:    arg.IsAdmin,
		Code:       arg.Code,
		CreatedAt:  time.Now(),
	}
	m.users[u.ID] = u
	return copyUser(u), nil
}

func (m *memStore) UserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memStore) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (m *memStore) UserByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return m.UserByID(ctx, id)
}

func (m *memStore) UpdateUserInfo(ctx context.Context, id int64, firstName, lastName, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FirstName, u.LastName, u.Username = firstName, lastName, username
	return nil
}

func (m *memStore) UpdateUserEmail(ctx context.Context, id int64, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Email = email
	return nil
}

func (m *memStore) TouchUserActivity(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastActivity = at
	}
	return nil
}

func (m *memStore) SetUserCurrentDay(ctx context.Context, id int64, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if day > u.CurrentDay {
		u.CurrentDay = day
	}
	return nil
}

func (m *memStore) GrantUserAccess(ctx context.Context, id int64, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.HasAccess = true
	if u.CurrentDay < 1 {
		u.CurrentDay = 1
	}
	if u.CourseStartedAt == nil {
		t := startedAt
		u.CourseStartedAt = &t
	}
	return nil
}

func (m *memStore) SetUserCode(ctx context.Context, id int64, code string, completedDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Code = code
	u.CompletedDays = completedDays
	return nil
}

func (m *memStore) SetCourseCompleted(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.CourseCompletedAt == nil {
		t := at
		u.CourseCompletedAt = &t
	}
	return nil
}

func (m *memStore) SetLastUnlockNotification(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	t := at
	u.LastUnlockNotification = &t
	return nil
}

func (m *memStore) ListUnlockCandidates(ctx context.Context, courseDays int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.HasAccess && u.CourseCompletedAt == nil && u.CurrentDay > 0 && u.CurrentDay < courseDays {
			out = append(out, *copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListInactiveUsers(ctx context.Context, cutoff time.Time, courseDays int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.HasAccess && u.CourseCompletedAt == nil && u.LastActivity.Before(cutoff) {
			out = append(out, *copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateProgress(ctx context.Context, arg repository.CreateProgressParams) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDay := m.progress[arg.UserID]
	if byDay == nil {
		byDay = make(map[int]*domain.Progress)
		m.progress[arg.UserID] = byDay
	}
	if p, ok := byDay[arg.DayNumber]; ok {
		p.TotalTasks = arg.TotalTasks
		return copyProgress(p), nil
	}
	p := &domain.Progress{
		ID:         m.id(),
		UserID:     arg.UserID,
		DayNumber:  arg.DayNumber,
		TotalTasks: arg.TotalTasks,
		StartedAt:  arg.StartedAt,
	}
	byDay[arg.DayNumber] = p
	return copyProgress(p), nil
}

func (m *memStore) ProgressByDay(ctx context.Context, userID int64, day int) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.progress[userID][day]; ok {
		return copyProgress(p), nil
	}
	return nil, domain.ErrProgressNotFound
}

func (m *memStore) ListProgress(ctx context.Context, userID int64) ([]domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Progress
	for _, p := range m.progress[userID] {
		out = append(out, *copyProgress(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (m *memStore) CompleteProgress(ctx context.Context, userID int64, day int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[userID][day]
	if !ok {
		return domain.ErrProgressNotFound
	}
	p.TasksCompleted = true
	if p.CompletedAt == nil {
		t := at
		p.CompletedAt = &t
	}
	return nil
}

func (m *memStore) MarkMaterialViewed(ctx context.Context, userID int64, day int, material repository.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[userID][day]
	if !ok {
		return domain.ErrProgressNotFound
	}
	switch material {
	case repository.MaterialVideo:
		p.VideoWatched = true
	case repository.MaterialBrief:
		p.BriefRead = true
	}
	return nil
}

func (m *memStore) BumpProgressCounters(ctx context.Context, userID int64, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[userID][day]
	if !ok {
		return domain.ErrProgressNotFound
	}
	p.CompletedTasks++
	p.CorrectAnswers++
	return nil
}

func (m *memStore) ResetProgress(ctx context.Context, userID int64, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[userID][day]
	if !ok {
		return nil
	}
	p.TasksCompleted = false
	p.CompletedTasks = 0
	p.CorrectAnswers = 0
	p.CompletedAt = nil
	return nil
}

func (m *memStore) AttemptByTask(ctx context.Context, userID int64, day, task int) (*domain.TaskAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.UserID == userID && a.DayNumber == day && a.TaskNumber == task {
			return copyAttempt(a), nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (m *memStore) CreateAttempt(ctx context.Context, arg repository.CreateAttemptParams) (*domain.TaskAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &domain.TaskAttempt{
		ID:             m.id(),
		UserID:         arg.UserID,
		DayNumber:      arg.DayNumber,
		TaskNumber:     arg.TaskNumber,
		TaskType:       arg.TaskType,
		IsCorrect:      arg.IsCorrect,
		Attempts:       1,
		UserAnswer:     arg.UserAnswer,
		CorrectAnswer:  arg.CorrectAnswer,
		VoiceFileID:    arg.VoiceFileID,
		VoiceDuration:  arg.VoiceDuration,
		RecognizedText: arg.RecognizedText,
		CreatedAt:      time.Now(),
		CompletedAt:    arg.CompletedAt,
	}
	m.attempts[a.ID] = a
	return copyAttempt(a), nil
}

func (m *memStore) UpdateAttempt(ctx context.Context, arg repository.UpdateAttemptParams) (*domain.TaskAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[arg.ID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	a.IsCorrect = arg.IsCorrect
	a.Attempts = arg.Attempts
	if arg.UserAnswer != "" {
		a.UserAnswer = arg.UserAnswer
	}
	if arg.VoiceFileID != "" {
		a.VoiceFileID = arg.VoiceFileID
	}
	if arg.VoiceDuration != 0 {
		a.VoiceDuration = arg.VoiceDuration
	}
	if arg.RecognizedText != "" {
		a.RecognizedText = arg.RecognizedText
	}
	if a.CompletedAt == nil {
		a.CompletedAt = arg.CompletedAt
	}
	return copyAttempt(a), nil
}

func (m *memStore) LatestAttempt(ctx context.Context, userID int64) (*domain.TaskAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.TaskAttempt
	for _, a := range m.attempts {
		if a.UserID != userID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) ||
			(a.CreatedAt.Equal(latest.CreatedAt) && a.ID > latest.ID) {
			latest = a
		}
	}
	if latest == nil {
		return nil, domain.ErrTaskNotFound
	}
	return copyAttempt(latest), nil
}

func (m *memStore) DeleteDayAttempts(ctx context.Context, userID int64, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.attempts {
		if a.UserID == userID && a.DayNumber == day {
			delete(m.attempts, id)
		}
	}
	return nil
}

func (m *memStore) CreatePayment(ctx context.Context, arg repository.CreatePaymentParams) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.Payment{
		ID:            m.id(),
		UserID:        arg.UserID,
		PaymentID:     arg.PaymentID,
		Amount:        arg.Amount,
		Currency:      arg.Currency,
		Status:        domain.PaymentStatusPending,
		Description:   arg.Description,
		PaymentMethod: arg.PaymentMethod,
		Metadata:      arg.Metadata,
		CreatedAt:     time.Now(),
	}
	m.payments[p.ID] = p
	return copyPayment(p), nil
}

func (m *memStore) PaymentByProviderID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.PaymentID == paymentID {
			return copyPayment(p), nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *memStore) ListPendingPayments(ctx context.Context, userID int64) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.UserID == userID && p.Status == domain.PaymentStatusPending {
			out = append(out, *copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	// Terminal statuses are one-way, same as the SQL status='pending' gate.
	if p.Status != domain.PaymentStatusPending {
		return nil
	}
	p.Status = status
	if paidAt != nil {
		t := *paidAt
		p.PaidAt = &t
	}
	return nil
}

func (m *memStore) CountReminders(ctx context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reminders {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateReminder(ctx context.Context, arg repository.CreateReminderParams) (*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := domain.Reminder{
		ID:           m.id(),
		UserID:       arg.UserID,
		DayNumber:    arg.DayNumber,
		ReminderType: arg.ReminderType,
		MessageText:  arg.MessageText,
		SentAt:       arg.SentAt,
	}
	m.reminders = append(m.reminders, r)
	return &r, nil
}

func (m *memStore) CourseStats(ctx context.Context) (*repository.CourseStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.CourseStats{
		Revenue:        decimal.Zero,
		DayCompletions: make(map[int]int64),
	}
	for _, u := range m.users {
		stats.TotalUsers++
		if u.HasAccess {
			stats.PaidUsers++
		}
		if u.CourseCompletedAt != nil {
			stats.FinishedUsers++
		}
	}
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusSucceeded {
			stats.Revenue = stats.Revenue.Add(p.Amount)
		}
	}
	for _, byDay := range m.progress {
		for day, p := range byDay {
			if p.TasksCompleted {
				stats.DayCompletions[day]++
			}
		}
	}
	return stats, nil
}

// WithTx runs fn against the same store; the fake does not model rollback.
func (m *memStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(m)
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyProgress(p *domain.Progress) *domain.Progress {
	c := *p
	return &c
}

func copyAttempt(a *domain.TaskAttempt) *domain.TaskAttempt {
	c := *a
	return &c
}

func copyPayment(p *domain.Payment) *domain.Payment {
	c := *p
	return &c
}

// recordingNotifier captures outbound messages for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	fail     bool
}

type sentMessage struct {
	ChatID int64
	Text   string
}

func (n *recordingNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return context.DeadlineExceeded
	}
	n.messages = append(n.messages, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
