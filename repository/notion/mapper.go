package notion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
)

const dateLayout = "2006-01-02"

// Mapper translates between canonical tasks and pages of one database,
// driven entirely by the configured property names and labels.
type Mapper struct {
	source          domain.Source
	props           config.PropertyNames
	statusToLabel   map[domain.Status]string
	labelToStatus   map[string]domain.Status
	priorityToLabel map[domain.Priority]string
	labelToPriority map[string]domain.Priority
}

// NewMapper builds a mapper for source. Labels must be distinct.
func NewMapper(source domain.Source, schema config.NotionSchema) (*Mapper, error) {
	if schema.Properties.Title == "" || schema.Properties.Status == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "title and status property names are required")
	}
	m := &Mapper{
		source: source,
		props:  schema.Properties,
		statusToLabel: map[domain.Status]string{
			domain.StatusTodo:       schema.Status.Todo,
			domain.StatusInProgress: schema.Status.InProgress,
			domain.StatusDone:       schema.Status.Done,
			domain.StatusBlocked:    schema.Status.Blocked,
		},
		priorityToLabel: map[domain.Priority]string{
			domain.PriorityLow:    schema.Priority.Low,
			domain.PriorityMedium: schema.Priority.Medium,
			domain.PriorityHigh:   schema.Priority.High,
			domain.PriorityUrgent: schema.Priority.Urgent,
		},
	}
	if m.props.StatusType == "" {
		m.props.StatusType = TypeStatus
	}

	var err error
	if m.labelToStatus, err = invert("status", m.statusToLabel); err != nil {
		return nil, err
	}
	if m.labelToPriority, err = invert("priority", m.priorityToLabel); err != nil {
		return nil, err
	}
	return m, nil
}

func invert[K comparable](field string, forward map[K]string) (map[string]K, error) {
	reverse := make(map[string]K, len(forward))
	for canonical, label := range forward {
		if label == "" {
			return nil, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("empty %s label for %v", field, canonical))
		}
		if other, ok := reverse[label]; ok {
			return nil, domain.NewError(domain.ErrCodeInvalid,
				fmt.Sprintf("%s label %q is used for both %v and %v", field, label, other, canonical))
		}
		reverse[label] = canonical
	}
	return reverse, nil
}

// Source returns the task source this mapper stamps on tasks.
func (m *Mapper) Source() domain.Source { return m.source }

// ToTask converts a page into a canonical task.
func (m *Mapper) ToTask(page Page) (domain.Task, error) {
	task := domain.Task{
		ID:        domain.TaskID(page.ID),
		Source:    m.source,
		CreatedAt: page.CreatedTime.UTC(),
		UpdatedAt: page.LastEditedTime.UTC(),
	}
	props := page.Properties

	title, ok := props[m.props.Title]
	if !ok || strings.TrimSpace(textOf(title.Title)) == "" {
		return domain.Task{}, missing(m.props.Title)
	}
	task.Title = textOf(title.Title)

	statusProp, ok := props[m.props.Status]
	option := selected(statusProp)
	if !ok || option == nil {
		return domain.Task{}, missing(m.props.Status)
	}
	status, ok := m.labelToStatus[option.Name]
	if !ok {
		return domain.Task{}, domain.NewMappingError("status", option.Name)
	}
	task.Status = status

	task.Priority = domain.PriorityMedium
	if name := m.props.Priority; name != "" {
		if option := selected(props[name]); option != nil {
			priority, ok := m.labelToPriority[option.Name]
			if !ok {
				return domain.Task{}, domain.NewMappingError("priority", option.Name)
			}
			task.Priority = priority
		}
	}

	if name := m.props.DueDate; name != "" {
		if date := props[name].Date; date != nil && date.Start != "" {
			due, err := parseDate(date.Start)
			if err != nil {
				return domain.Task{}, domain.NewMappingError("due date", date.Start)
			}
			task.DueDate = &due
		}
	}

	if name := m.props.Tags; name != "" {
		var tags []string
		for _, opt := range props[name].MultiSelect {
			tags = append(tags, opt.Name)
		}
		task.Tags = domain.NormalizeTags(tags)
	}

	if name := m.props.Description; name != "" {
		task.Description = textOf(props[name].RichText)
	}

	if name := m.props.Assignee; name != "" {
		prop := props[name]
		// The people id is the only value a write can send back.
		if len(prop.People) > 0 {
			task.Assignee = prop.People[0].ID
		} else {
			task.Assignee = textOf(prop.RichText)
		}
	}

	if name := m.props.Metadata; name != "" {
		if raw := textOf(props[name].RichText); raw != "" {
			var meta map[string]string
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				return domain.Task{}, domain.NewMappingError("metadata", raw)
			}
			if len(meta) > 0 {
				task.Metadata = meta
			}
		}
	}

	if name := m.props.Created; name != "" {
		if created := props[name].CreatedTime; created != nil {
			task.CreatedAt = created.UTC()
		}
	}

	return task, nil
}

// FromTask converts a task into a page carrying every configured property.
func (m *Mapper) FromTask(task domain.Task) Page {
	page := Page{
		ID:             string(task.ID),
		CreatedTime:    task.CreatedAt,
		LastEditedTime: task.UpdatedAt,
		Properties:     make(map[string]Property),
	}
	props := page.Properties

	props[m.props.Title] = Property{Type: TypeTitle, Title: richText(task.Title)}
	props[m.props.Status] = m.statusProperty(task.Status)
	if name := m.props.Priority; name != "" {
		props[name] = Property{Type: TypeSelect, Select: &Option{Name: m.priorityToLabel[task.Priority]}}
	}
	if name := m.props.DueDate; name != "" && task.DueDate != nil {
		props[name] = dateProperty(task.DueDate)
	}
	if name := m.props.Tags; name != "" && len(task.Tags) > 0 {
		props[name] = tagsProperty(task.Tags)
	}
	if name := m.props.Description; name != "" && task.Description != "" {
		props[name] = Property{Type: TypeRichText, RichText: richText(task.Description)}
	}
	if name := m.props.Assignee; name != "" && task.Assignee != "" {
		props[name] = assigneeProperty(task.Assignee)
	}
	if name := m.props.Metadata; name != "" && len(task.Metadata) > 0 {
		props[name] = metadataProperty(task.Metadata)
	}
	if name := m.props.Created; name != "" {
		created := task.CreatedAt
		props[name] = Property{Type: TypeCreatedTime, CreatedTime: &created}
	}
	return page
}

// PatchProperties returns only the properties touched by patch. A field the
// database has no column for is rejected rather than silently dropped.
func (m *Mapper) PatchProperties(patch domain.TaskPatch) (map[string]Property, error) {
	props := make(map[string]Property)
	column := func(field, name string) (string, error) {
		if name == "" {
			return "", domain.NewError(domain.ErrCodeInvalid,
				fmt.Sprintf("%s database has no %s property", m.source, field))
		}
		return name, nil
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, domain.NewError(domain.ErrCodeInvalid, "task title is required")
		}
		props[m.props.Title] = Property{Type: TypeTitle, Title: richText(*patch.Title)}
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, domain.NewError(domain.ErrCodeInvalid, "unknown task status "+string(*patch.Status))
		}
		props[m.props.Status] = m.statusProperty(*patch.Status)
	}
	if patch.Priority != nil {
		name, err := column("priority", m.props.Priority)
		if err != nil {
			return nil, err
		}
		label, ok := m.priorityToLabel[*patch.Priority]
		if !ok {
			return nil, domain.NewError(domain.ErrCodeInvalid, "unknown task priority "+string(*patch.Priority))
		}
		props[name] = Property{Type: TypeSelect, Select: &Option{Name: label}}
	}
	if patch.DueDate != nil || patch.ClearDueDate {
		name, err := column("due date", m.props.DueDate)
		if err != nil {
			return nil, err
		}
		if patch.ClearDueDate {
			props[name] = Property{Type: TypeDate}
		} else {
			props[name] = dateProperty(patch.DueDate)
		}
	}
	if patch.Tags != nil {
		name, err := column("tags", m.props.Tags)
		if err != nil {
			return nil, err
		}
		props[name] = tagsProperty(domain.NormalizeTags(*patch.Tags))
	}
	if patch.Description != nil {
		name, err := column("description", m.props.Description)
		if err != nil {
			return nil, err
		}
		props[name] = Property{Type: TypeRichText, RichText: richText(*patch.Description)}
	}
	if patch.Assignee != nil {
		name, err := column("assignee", m.props.Assignee)
		if err != nil {
			return nil, err
		}
		if *patch.Assignee == "" {
			props[name] = Property{Type: TypePeople}
		} else {
			props[name] = assigneeProperty(*patch.Assignee)
		}
	}
	if patch.Metadata != nil {
		name, err := column("metadata", m.props.Metadata)
		if err != nil {
			return nil, err
		}
		props[name] = metadataProperty(patch.Metadata)
	}
	return props, nil
}

// writable drops read-only properties before a page is sent to the API.
func writable(props map[string]Property) map[string]Property {
	out := make(map[string]Property, len(props))
	for name, prop := range props {
		if prop.Type == TypeCreatedTime {
			continue
		}
		out[name] = prop
	}
	return out
}

func (m *Mapper) statusProperty(status domain.Status) Property {
	option := &Option{Name: m.statusToLabel[status]}
	if m.props.StatusType == TypeSelect {
		return Property{Type: TypeSelect, Select: option}
	}
	return Property{Type: TypeStatus, Status: option}
}

// selected reads a status or select option, whichever the property carries.
func selected(prop Property) *Option {
	if prop.Status != nil {
		return prop.Status
	}
	return prop.Select
}

func dateProperty(due *time.Time) Property {
	return Property{Type: TypeDate, Date: &DateValue{Start: domain.Date(*due).Format(dateLayout)}}
}

func tagsProperty(tags []string) Property {
	options := make([]Option, 0, len(tags))
	for _, tag := range tags {
		options = append(options, Option{Name: tag})
	}
	return Property{Type: TypeMultiSelect, MultiSelect: options}
}

func assigneeProperty(assignee string) Property {
	return Property{Type: TypePeople, People: []User{{Object: "user", ID: assignee}}}
}

func metadataProperty(meta map[string]string) Property {
	raw, _ := json.Marshal(meta)
	if len(meta) == 0 {
		raw = nil
	}
	return Property{Type: TypeRichText, RichText: richText(string(raw))}
}

// parseDate accepts plain dates and RFC 3339 timestamps; the calendar day is
// taken in the timestamp's own offset.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return domain.Date(t), nil
}

func missing(property string) error {
	return domain.NewError(domain.ErrCodeMapping, fmt.Sprintf("missing required property %q", property))
}
