package tasks

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) Fields {
	t.Helper()
	fields, err := DecodeFields(strings.NewReader(body))
	require.NoError(t, err)
	return fields
}

func TestDecodeFields(t *testing.T) {
	t.Run("object keeps only present keys", func(t *testing.T) {
		fields := decode(t, `{"title": "x", "completed": false}`)
		assert.Len(t, fields, 2)
		assert.Contains(t, fields, "completed")
		assert.NotContains(t, fields, "priority")
	})

	t.Run("empty object", func(t *testing.T) {
		fields := decode(t, `{}`)
		assert.Empty(t, fields)
		assert.NotNil(t, fields)
	})

	for name, body := range map[string]string{
		"null":          `null`,
		"array":         `[1, 2]`,
		"broken":        `{"title": `,
		"trailing data": `{} {}`,
		"empty body":    ``,
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := DecodeFields(strings.NewReader(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBody))
		})
	}
}

func TestNewTask(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		task, err := NewTask(decode(t, `{
			"title": "Write report",
			"description": "quarterly",
			"priority": 2,
			"due_date": "2030-05-01T10:00:00Z"
		}`))
		require.NoError(t, err)

		assert.Equal(t, "Write report", task.Title)
		assert.Equal(t, "quarterly", task.Description)
		assert.Equal(t, PriorityMedium, task.Priority)
		assert.True(t, task.DueDate.Equal(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)))
		assert.False(t, task.Completed)
		assert.Zero(t, task.ID)
	})

	t.Run("completed and id are not settable at creation", func(t *testing.T) {
		task, err := NewTask(decode(t, `{
			"id": 42,
			"title": "t",
			"description": "d",
			"priority": 1,
			"due_date": "2030-05-01",
			"completed": true
		}`))
		require.NoError(t, err)
		assert.False(t, task.Completed)
		assert.Zero(t, task.ID)
	})

	t.Run("empty description is accepted", func(t *testing.T) {
		_, err := NewTask(decode(t, `{"title": "t", "description": "", "priority": 3, "due_date": "2030-05-01"}`))
		assert.NoError(t, err)
	})

	t.Run("missing required fields are all reported", func(t *testing.T) {
		_, err := NewTask(decode(t, `{}`))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Errors, 4)
		for i, name := range []string{"title", "description", "priority", "due_date"} {
			assert.Equal(t, []string{"body", name}, verr.Errors[i].Loc)
			assert.Equal(t, "missing", verr.Errors[i].Type)
		}
	})

	t.Run("invalid priority", func(t *testing.T) {
		_, err := NewTask(decode(t, `{"title": "t", "description": "d", "priority": 10, "due_date": "2030-05-01"}`))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Errors, 1)
		assert.Equal(t, "Input should be 1, 2 or 3", verr.Errors[0].Msg)
		assert.Equal(t, []string{"body", "priority"}, verr.Errors[0].Loc)
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := NewTask(decode(t, `{"title": "", "description": "d", "priority": 1, "due_date": "2030-05-01"}`))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "string_too_short", verr.Errors[0].Type)
	})
}

func TestParseChanges(t *testing.T) {
	t.Run("only supplied fields", func(t *testing.T) {
		changes, err := ParseChanges(decode(t, `{"title": "Edited Task"}`))
		require.NoError(t, err)
		assert.Equal(t, Changes{"title": "Edited Task"}, changes)
	})

	t.Run("zero values are still changes", func(t *testing.T) {
		changes, err := ParseChanges(decode(t, `{"completed": false, "description": ""}`))
		require.NoError(t, err)
		assert.Equal(t, Changes{"completed": false, "description": ""}, changes)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		changes, err := ParseChanges(decode(t, `{"id": 7, "owner": "bob"}`))
		require.NoError(t, err)
		assert.Empty(t, changes)
	})

	t.Run("explicit null is rejected", func(t *testing.T) {
		_, err := ParseChanges(decode(t, `{"title": null}`))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "string_type", verr.Errors[0].Type)
	})

	t.Run("one bad field rejects the whole set", func(t *testing.T) {
		changes, err := ParseChanges(decode(t, `{"title": "ok", "priority": 0, "completed": "yes"}`))
		assert.Nil(t, changes)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Errors, 2)
		assert.Equal(t, []string{"body", "priority"}, verr.Errors[0].Loc)
		assert.Equal(t, []string{"body", "completed"}, verr.Errors[1].Loc)
	})

	t.Run("non integer priority", func(t *testing.T) {
		_, err := ParseChanges(decode(t, `{"priority": "high"}`))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "int_type", verr.Errors[0].Type)
	})
}

func TestChanges_Apply(t *testing.T) {
	due := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
	task := Task{ID: 9, Title: "a", Description: "b", Priority: PriorityLow, DueDate: due}

	Changes{"title": "new", "completed": true, "priority": 1}.Apply(&task)

	assert.Equal(t, uint(9), task.ID)
	assert.Equal(t, "new", task.Title)
	assert.Equal(t, "b", task.Description)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, due, task.DueDate)
	assert.True(t, task.Completed)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2030-05-01T10:00:00Z", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01T12:00:00+02:00", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01T10:00:00.5", time.Date(2030, 5, 1, 10, 0, 0, 500000000, time.UTC)},
		{"2030-05-01T10:00:00", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01 10:00:00", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}

	_, err := ParseTimestamp("tomorrow")
	assert.Error(t, err)
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		assert.True(t, p.Valid(), p.String())
	}
	for _, p := range []Priority{-1, 0, 4, 10} {
		assert.False(t, p.Valid())
	}
}

func TestNewValidator_PriorityTag(t *testing.T) {
	var v interface {
		Var(field any, tag string) error
	}
	require.NotPanics(t, func() { v = newValidator() })

	assert.NoError(t, v.Var(2, "task_priority"))
	assert.Error(t, v.Var(0, "task_priority"))
	assert.Error(t, v.Var(4, "task_priority"))
}
