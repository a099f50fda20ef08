// Package filter derives the visible subset of a loaded collection from the
// search box and dropdown state. Everything here is pure.
package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kidandcat/portfolio/internal/model"
)

// Sentinel categorical values.
const (
	All        = "all"
	Unassigned = "unassigned"
)

type Spec[T any] struct {
	Search   string
	Category string

	// Fields returns the values searched by Search.
	Fields func(T) []string
	// CategoryOf returns the item's category and false when the optional
	// field behind it is empty.
	CategoryOf func(T) (string, bool)
	// Less, when set, sorts the result.
	Less func(a, b T) bool
}

// Apply returns the items matching s. The result never contains an item
// that is not in items.
func Apply[T any](items []T, s Spec[T]) []T {
	term := strings.ToLower(strings.TrimSpace(s.Search))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !matchesText(it, term, s.Fields) {
			continue
		}
		if !matchesCategory(it, s.Category, s.CategoryOf) {
			continue
		}
		out = append(out, it)
	}
	if s.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return s.Less(out[i], out[j]) })
	}
	return out
}

func matchesText[T any](it T, term string, fields func(T) []string) bool {
	if term == "" || fields == nil {
		return true
	}
	for _, f := range fields(it) {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func matchesCategory[T any](it T, want string, categoryOf func(T) (string, bool)) bool {
	if want == "" || want == All || categoryOf == nil {
		return true
	}
	got, present := categoryOf(it)
	if want == Unassigned {
		return !present
	}
	return present && got == want
}

// Users matches first/last/full name and email; role is a role id, All or Unassigned.
func Users(users []model.User, search, role string) []model.User {
	return Apply(users, Spec[model.User]{
		Search:   search,
		Category: role,
		Fields: func(u model.User) []string {
			return []string{u.FirstName, u.LastName, u.FullName(), u.Email}
		},
		CategoryOf: func(u model.User) (string, bool) {
			if u.RoleID == nil {
				return "", false
			}
			return strconv.FormatInt(*u.RoleID, 10), true
		},
	})
}

// ActiveState values for UsersByState.
const (
	Active   = "active"
	Inactive = "inactive"
)

// UsersByState narrows users by the active toggle.
func UsersByState(users []model.User, state string) []model.User {
	return Apply(users, Spec[model.User]{
		Category: state,
		CategoryOf: func(u model.User) (string, bool) {
			if u.IsActive {
				return Active, true
			}
			return Inactive, true
		},
	})
}

// Projects matches name and description; status is one of model.ProjectStatuses or All.
func Projects(projects []model.Project, search, status string) []model.Project {
	return Apply(projects, Spec[model.Project]{
		Search:   search,
		Category: status,
		Fields: func(p model.Project) []string {
			return []string{p.Name, p.Description}
		},
		CategoryOf: func(p model.Project) (string, bool) {
			return p.Status, p.Status != ""
		},
	})
}

// Items filters board items by title/description/tags and assignee.
func Items(items []model.BacklogItem, search, assignee string) []model.BacklogItem {
	return Apply(items, Spec[model.BacklogItem]{
		Search:   search,
		Category: assignee,
		Fields: func(it model.BacklogItem) []string {
			return append([]string{it.Title, it.Description}, it.Tags...)
		},
		CategoryOf: func(it model.BacklogItem) (string, bool) {
			return it.Assignee, it.Assignee != ""
		},
		Less: func(a, b model.BacklogItem) bool { return a.Order < b.Order },
	})
}
