// Package content holds the read-only course catalog: per-day material and
// task definitions loaded from day_NN.json files. Nothing in the engine
// mutates this data.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neovoice/escapebot/internal/domain"
)

type DialogStep struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

type Task struct {
	TaskNumber    int             `json:"task_number"`
	Type          domain.TaskKind `json:"type"`
	Title         string          `json:"title"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Hints         []string        `json:"hints"`

	// Voice tasks
	VoicePrompt   string   `json:"voice_prompt"`
	VoiceKeywords []string `json:"voice_keywords"`

	// Dialog tasks
	DialogSteps []DialogStep `json:"dialog_steps"`
}

// Hint returns the first hint, or a fallback when the task has none.
func (t *Task) Hint() string {
	if len(t.Hints) > 0 {
		return t.Hints[0]
	}
	return "Попробуй ещё раз!"
}

type Day struct {
	DayNumber int    `json:"day_number"`
	Title     string `json:"title"`
	Video     string `json:"video"`
	Brief     string `json:"brief"`
	Tasks     []Task `json:"tasks"`
}

// Catalog is the static course definition plus the code word whose letters
// are handed out one per completed day.
type Catalog struct {
	days       map[int]*Day
	codeWord   string
	courseDays int
}

// Load reads day_01.json .. day_NN.json from dir. Missing day files are
// tolerated (the day simply has no content yet); unreadable ones are not.
func Load(dir, codeWord string, courseDays int) (*Catalog, error) {
	c := &Catalog{
		days:       make(map[int]*Day, courseDays),
		codeWord:   codeWord,
		courseDays: courseDays,
	}

	for n := 1; n <= courseDays; n++ {
		path := filepath.Join(dir, fmt.Sprintf("day_%02d.json", n))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var day Day
		if err := json.Unmarshal(data, &day); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if day.DayNumber == 0 {
			day.DayNumber = n
		}
		c.days[n] = &day
	}

	return c, nil
}

func (c *Catalog) CourseDays() int { return c.courseDays }

func (c *Catalog) Day(n int) (*Day, error) {
	day, ok := c.days[n]
	if !ok {
		return nil, domain.ErrDayNotFound
	}
	return day, nil
}

func (c *Catalog) DayTitle(n int) string {
	if day, ok := c.days[n]; ok && day.Title != "" {
		return day.Title
	}
	return fmt.Sprintf("День %d", n)
}

func (c *Catalog) Tasks(day int) []Task {
	if d, ok := c.days[day]; ok {
		return d.Tasks
	}
	return nil
}

func (c *Catalog) Task(day, task int) (*Task, error) {
	for i := range c.Tasks(day) {
		t := &c.days[day].Tasks[i]
		if t.TaskNumber == task {
			return t, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

// LetterForDay maps a day to its position in the code word. Out-of-range
// days yield "".
func (c *Catalog) LetterForDay(day int) string {
	if day < 1 || day > len(c.codeWord) || day > c.courseDays {
		return ""
	}
	return string(c.codeWord[day-1])
}

// CodeTemplate is the all-placeholder code string for a fresh user.
func (c *Catalog) CodeTemplate() string {
	return strings.Repeat("_", len(c.codeWord))
}

func (c *Catalog) FinalCode() string { return c.codeWord }
