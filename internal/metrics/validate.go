package metrics

import (
	"strings"
	"time"

	"github.com/sakif/taskflow/internal/model"
)

// Validation messages, byte-for-byte what the UI shows next to each field.
const (
	msgTitleTooShort      = "Title must be at least 3 characters long"
	msgTitleTooLong       = "Title must be less than 200 characters"
	msgDescriptionTooLong = "Description must be less than 2000 characters"
	msgDeadlinePast       = "Deadline must be in the future"
)

// ValidationResult reports every violated field, not just the first. Errors
// maps field name to a human-readable message; IsValid is simply "no
// entries".
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
}

// ValidateTask checks a task draft against the input rules:
//   - title: required, 3–200 characters (minimum judged on the trimmed
//     title, maximum on the raw one)
//   - description: optional, at most 2000 characters
//   - deadline: optional, strictly in the future at validation time
//
// Rules are evaluated independently so a draft with three bad fields
// reports three messages. A nil task fails the title rule only.
func ValidateTask(task *model.Task) ValidationResult {
	return ValidateTaskAt(task, time.Now())
}

// ValidateTaskAt is ValidateTask with an explicit clock.
func ValidateTaskAt(task *model.Task, now time.Time) ValidationResult {
	errs := make(map[string]string)

	var title, description string
	var deadline *time.Time
	if task != nil {
		title = task.Title
		description = task.Description
		deadline = task.Deadline
	}

	if len([]rune(strings.TrimSpace(title))) < 3 {
		errs["title"] = msgTitleTooShort
	}
	if len([]rune(title)) > 200 {
		errs["title"] = msgTitleTooLong
	}

	if len([]rune(description)) > 2000 {
		errs["description"] = msgDescriptionTooLong
	}

	if deadline != nil && !deadline.After(now) {
		errs["deadline"] = msgDeadlinePast
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
