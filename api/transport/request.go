package transport

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

type TaskRequest struct {
	Title       string            `json:"title" validate:"required"`
	Status      string            `json:"status" validate:"omitempty,oneof=todo in_progress done blocked"`
	Priority    string            `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Source      string            `json:"source" validate:"omitempty,oneof=team personal manual"`
	DueDate     string            `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Tags        []string          `json:"tags"`
	Description string            `json:"description"`
	Assignee    string            `json:"assignee"`
	Metadata    map[string]string `json:"metadata"`
}

// TaskPatchRequest carries only the fields to change. An empty due_date
// string clears the date.
type TaskPatchRequest struct {
	Title       *string           `json:"title" validate:"omitempty,min=1"`
	Status      *string           `json:"status" validate:"omitempty,oneof=todo in_progress done blocked"`
	Priority    *string           `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *string           `json:"due_date" validate:"omitempty"`
	Tags        *[]string         `json:"tags"`
	Description *string           `json:"description"`
	Assignee    *string           `json:"assignee"`
	Metadata    map[string]string `json:"metadata"`
}
