// Package model holds the records exchanged with the portfolio API.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	RoleID    *int64    `json:"roleId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project statuses.
const (
	StatusInProgress = "In Progress"
	StatusPlanning   = "Planning"
	StatusCompleted  = "Completed"
	StatusOnHold     = "On Hold"
)

var ProjectStatuses = []string{StatusInProgress, StatusPlanning, StatusCompleted, StatusOnHold}

func ValidProjectStatus(s string) bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Project struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Progress    int     `json:"progress"`
	Members     []User  `json:"members"`
	EndDate     *string `json:"endDate,omitempty"`
}

type Backlog struct {
	ID             int64       `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Priority       string      `json:"priority"`
	Status         string      `json:"status"`
	ProjectID      int64       `json:"projectId"`
	EstimatedHours *float64    `json:"estimatedHours,omitempty"`
	UserStories    []UserStory `json:"UserStories"`
}

// UnmarshalJSON accepts the legacy "Nom" field as the backlog title.
func (b *Backlog) UnmarshalJSON(data []byte) error {
	type plain Backlog
	var aux struct {
		plain
		Nom string `json:"Nom"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Backlog(aux.plain)
	if b.Title == "" {
		b.Title = aux.Nom
	}
	return nil
}

type UserStory struct {
	ID                 int64  `json:"Id"`
	Title              string `json:"Title"`
	Description        string `json:"Description"`
	AcceptanceCriteria string `json:"AcceptanceCriteria"`
	Status             string `json:"Status"`
	Priority           string `json:"Priority"`
	Points             int    `json:"points"`
	CommentCount       int    `json:"CommentCount"`
	BacklogID          int64  `json:"backlogId"`
	Order              int    `json:"order"`
}

// UserStoryInput is the create/update payload for a story.
type UserStoryInput struct {
	Title              string `json:"Title"`
	Description        string `json:"Description"`
	AcceptanceCriteria string `json:"AcceptanceCriteria"`
	Status             string `json:"Status"`
	Priority           string `json:"Priority"`
	Points             int    `json:"points,omitempty"`
}

// OrderEntry is one element of a reorder submission.
type OrderEntry struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

type UserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	RoleID    *int64 `json:"roleId,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

type ProjectInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Progress    int     `json:"progress"`
	MemberIDs   []int64 `json:"memberIds,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
}

type BacklogInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	Status         string   `json:"status"`
	ProjectID      int64    `json:"projectId"`
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`
}
