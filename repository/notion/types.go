package notion

import (
	"encoding/json"
	"strings"
	"time"
)

// Property type names as used by the Notion API.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeStatus      = "status"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
	TypeDate        = "date"
	TypePeople      = "people"
	TypeCreatedTime = "created_time"
)

// maxTextChunk is the longest content Notion accepts in one rich text segment.
const maxTextChunk = 2000

// Page is a database row in the Notion wire format.
type Page struct {
	Object         string              `json:"object,omitempty"`
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	Parent         Parent              `json:"parent"`
	Properties     map[string]Property `json:"properties"`
}

type Parent struct {
	Type       string `json:"type,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
}

// Property is a typed page property value. Only the member named by Type is meaningful.
type Property struct {
	Type        string     `json:"type"`
	Title       []RichText `json:"title,omitempty"`
	RichText    []RichText `json:"rich_text,omitempty"`
	Status      *Option    `json:"status,omitempty"`
	Select      *Option    `json:"select,omitempty"`
	MultiSelect []Option   `json:"multi_select,omitempty"`
	Date        *DateValue `json:"date,omitempty"`
	People      []User     `json:"people,omitempty"`
	CreatedTime *time.Time `json:"created_time,omitempty"`
}

// MarshalJSON emits only the member selected by Type so that empty values
// (cleared dates, empty tag lists) reach the API explicitly.
func (p Property) MarshalJSON() ([]byte, error) {
	var value interface{}
	switch p.Type {
	case TypeTitle:
		value = nonNil(p.Title)
	case TypeRichText:
		value = nonNil(p.RichText)
	case TypeStatus:
		value = p.Status
	case TypeSelect:
		value = p.Select
	case TypeMultiSelect:
		value = nonNil(p.MultiSelect)
	case TypeDate:
		value = p.Date
	case TypePeople:
		value = nonNil(p.People)
	case TypeCreatedTime:
		value = p.CreatedTime
	default:
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}{p.Type: value})
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

type RichText struct {
	Type      string    `json:"type,omitempty"`
	Text      *TextBody `json:"text,omitempty"`
	PlainText string    `json:"plain_text,omitempty"`
}

type TextBody struct {
	Content string `json:"content"`
}

type Option struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

type User struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
}

type queryRequest struct {
	PageSize    int         `json:"page_size,omitempty"`
	StartCursor string      `json:"start_cursor,omitempty"`
	Sorts       []querySort `json:"sorts,omitempty"`
}

type querySort struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
}

type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type createRequest struct {
	Parent     Parent              `json:"parent"`
	Properties map[string]Property `json:"properties"`
}

type updateRequest struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Archived   *bool               `json:"archived,omitempty"`
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return e.Code + ": " + e.Message
}

// textOf concatenates every segment of a rich text value.
func textOf(segments []RichText) string {
	var b strings.Builder
	for _, seg := range segments {
		switch {
		case seg.PlainText != "":
			b.WriteString(seg.PlainText)
		case seg.Text != nil:
			b.WriteString(seg.Text.Content)
		}
	}
	return b.String()
}

// richText splits content into API-sized text segments.
func richText(content string) []RichText {
	if content == "" {
		return []RichText{}
	}
	runes := []rune(content)
	var out []RichText
	for len(runes) > 0 {
		n := len(runes)
		if n > maxTextChunk {
			n = maxTextChunk
		}
		out = append(out, RichText{Type: "text", Text: &TextBody{Content: string(runes[:n])}})
		runes = runes[n:]
	}
	return out
}

// sameID compares Notion ids ignoring the dashes the API may or may not include.
func sameID(a, b string) bool {
	return strings.EqualFold(strings.ReplaceAll(a, "-", ""), strings.ReplaceAll(b, "-", ""))
}
