// Package validate holds the form checks run before any mutation is sent.
package validate

import (
	"regexp"
	"strings"

	"github.com/kidandcat/portfolio/internal/model"
)

const (
	MsgRequired        = "Please fill in all required fields"
	MsgInvalidEmail    = "Please enter a valid email address"
	MsgPasswordLength  = "Password must be at least 6 characters long"
	MsgEmailTaken      = "A user with this email already exists"
	MsgInvalidStatus   = "Please choose a valid status"
	MsgInvalidProgress = "Progress must be between 0 and 100"
)

// MinPasswordLength applies to newly created accounts only.
const MinPasswordLength = 6

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Result struct {
	IsValid bool
	Message string
}

func ok() Result { return Result{IsValid: true} }

func fail(msg string) Result { return Result{Message: msg} }

func Required(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func Email(email string) bool {
	return emailRe.MatchString(email)
}

// UserForm checks required fields, email shape and, when requirePassword is
// set (create, not edit), the password length. The first failure wins.
func UserForm(first, last, email, password string, requirePassword bool) Result {
	if !Required(first, last, email) {
		return fail(MsgRequired)
	}
	if !Email(email) {
		return fail(MsgInvalidEmail)
	}
	if requirePassword && len(password) < MinPasswordLength {
		return fail(MsgPasswordLength)
	}
	return ok()
}

// EmailTaken scans the loaded users for email, ignoring excludeID (the user
// being edited; pass 0 on create). Only users already fetched are seen.
func EmailTaken(users []model.User, email string, excludeID int64) bool {
	email = strings.TrimSpace(email)
	for _, u := range users {
		if u.ID == excludeID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(u.Email), email) {
			return true
		}
	}
	return false
}

func ProjectForm(in model.ProjectInput) Result {
	if !Required(in.Name) {
		return fail(MsgRequired)
	}
	if in.Status != "" && !model.ValidProjectStatus(in.Status) {
		return fail(MsgInvalidStatus)
	}
	if in.Progress < 0 || in.Progress > 100 {
		return fail(MsgInvalidProgress)
	}
	return ok()
}

func BacklogForm(in model.BacklogInput) Result {
	if !Required(in.Title) || in.ProjectID == 0 {
		return fail(MsgRequired)
	}
	return ok()
}

func UserStoryForm(in model.UserStoryInput) Result {
	if !Required(in.Title, in.Description) {
		return fail(MsgRequired)
	}
	return ok()
}

// Error is a failed Result used as an error value.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &Error{Message: r.Message}
}
