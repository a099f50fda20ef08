package model

import "strings"

type ItemType string

const (
	TypeStory ItemType = "story"
	TypeBug   ItemType = "bug"
	TypeTask  ItemType = "task"
	TypeEpic  ItemType = "epic"
)

type ItemPriority string

const (
	PriorityLowest  ItemPriority = "lowest"
	PriorityLow     ItemPriority = "low"
	PriorityMedium  ItemPriority = "medium"
	PriorityHigh    ItemPriority = "high"
	PriorityHighest ItemPriority = "highest"
)

type ItemStatus string

const (
	ItemNew        ItemStatus = "new"
	ItemReady      ItemStatus = "ready"
	ItemInProgress ItemStatus = "in_progress"
	ItemReview     ItemStatus = "review"
	ItemDone       ItemStatus = "done"
)

// ItemStatuses lists board columns left to right.
var ItemStatuses = []ItemStatus{ItemNew, ItemReady, ItemInProgress, ItemReview, ItemDone}

// BacklogItem is the board view of a user story.
type BacklogItem struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Type          ItemType     `json:"type"`
	Priority      ItemPriority `json:"priority"`
	BusinessValue int          `json:"businessValue"`
	Effort        int          `json:"effort"`
	Status        ItemStatus   `json:"status"`
	Assignee      string       `json:"assignee,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	Order         int          `json:"order"`
}

// ItemFromStory projects a story onto the board item shape.
func ItemFromStory(s UserStory) BacklogItem {
	return BacklogItem{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Type:        TypeStory,
		Priority:    itemPriority(s.Priority),
		Effort:      s.Points,
		Status:      ItemStatusFromStory(s.Status),
		Order:       s.Order,
	}
}

// ItemStatusFromStory maps the free-form story status vocabulary onto board columns.
func ItemStatusFromStory(status string) ItemStatus {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(status), " ", "_")) {
	case "ready", "todo", "to_do":
		return ItemReady
	case "in_progress", "inprogress", "active":
		return ItemInProgress
	case "review", "in_review", "testing":
		return ItemReview
	case "done", "completed", "closed":
		return ItemDone
	default:
		return ItemNew
	}
}

// StoryStatus is the inverse of ItemStatusFromStory for the canonical values.
func StoryStatus(s ItemStatus) string {
	switch s {
	case ItemReady:
		return "Ready"
	case ItemInProgress:
		return "In Progress"
	case ItemReview:
		return "Review"
	case ItemDone:
		return "Done"
	default:
		return "Pending"
	}
}

func itemPriority(p string) ItemPriority {
	switch strings.ToLower(p) {
	case "lowest":
		return PriorityLowest
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "highest", "critical", "urgent":
		return PriorityHighest
	default:
		return PriorityMedium
	}
}
