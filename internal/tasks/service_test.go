package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, pageSize int) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(NewRepository(db), pageSize, nil, nil), db
}

func TestService_ListTasks_PagesConcatenate(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()

	var want []uint
	for i := range 13 {
		task := createTask(t, db, withCompleted(i%3 == 0))
		if !task.Completed {
			want = append(want, task.ID)
		}
	}

	f := Filter{Completed: ptr(false)}
	var got []uint
	for page := 1; ; page++ {
		res, err := svc.ListTasks(ctx, f, page)
		require.NoError(t, err)
		assert.Equal(t, int64(len(want)), res.Page.Total)
		assert.LessOrEqual(t, len(res.Items), 5)

		for _, task := range res.Items {
			got = append(got, task.ID)
		}
		if !res.Page.HasNext() {
			break
		}
	}
	assert.Equal(t, want, got)
}

func TestService_ListTasks_EmptyResult(t *testing.T) {
	svc, db := newTestService(t, 5)
	createTask(t, db, withPriority(PriorityHigh))

	for _, page := range []int{1, 2, 50} {
		res, err := svc.ListTasks(context.Background(), Filter{Priority: ptr(PriorityLow)}, page)
		require.NoError(t, err)
		assert.Zero(t, res.Page.Total)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items)
		assert.Nil(t, res.Page.NextURL("/tasks/", Filter{}))
		assert.Nil(t, res.Page.PrevURL("/tasks/", Filter{}))
	}
}

func TestService_ListTasks_InvalidPage(t *testing.T) {
	svc, _ := newTestService(t, 5)

	_, err := svc.ListTasks(context.Background(), Filter{}, 0)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestService_CreateTask(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, decode(t, `{"title": "A", "description": "", "priority": 3, "due_date": "2030-01-01"}`))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, created.ID, reload(t, db, created.ID).ID)

	_, err = svc.CreateTask(ctx, decode(t, `{"title": "B", "description": "x", "priority": 9, "due_date": "2030-01-01"}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	var n int64
	require.NoError(t, db.Model(&Task{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestService_UpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("only named fields change", func(t *testing.T) {
		svc, db := newTestService(t, 5)
		task := createTask(t, db, withTitle("Old"), withDescription("keep"), withPriority(PriorityLow))

		updated, err := svc.UpdateTask(ctx, task.ID, decode(t, `{"title": "Edited Task"}`))
		require.NoError(t, err)
		assert.Equal(t, "Edited Task", updated.Title)
		assert.Equal(t, "keep", updated.Description)
		assert.Equal(t, PriorityLow, updated.Priority)
		assert.True(t, task.DueDate.Equal(updated.DueDate))
		assert.Equal(t, task.ID, updated.ID)
	})

	t.Run("empty payload is a no-op", func(t *testing.T) {
		svc, db := newTestService(t, 5)
		task := createTask(t, db)
		before := reload(t, db, task.ID)

		updated, err := svc.UpdateTask(ctx, task.ID, decode(t, `{}`))
		require.NoError(t, err)
		assert.Equal(t, before, updated)
		assert.Equal(t, before, reload(t, db, task.ID))
	})

	t.Run("invalid priority leaves the task unchanged", func(t *testing.T) {
		svc, db := newTestService(t, 5)
		task := createTask(t, db, withTitle("Same"))
		before := reload(t, db, task.ID)

		_, err := svc.UpdateTask(ctx, task.ID, decode(t, `{"title": "Changed", "priority": 10}`))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Input should be 1, 2 or 3", verr.Errors[0].Msg)
		assert.Equal(t, before, reload(t, db, task.ID))
	})

	t.Run("missing task wins over invalid payload", func(t *testing.T) {
		svc, _ := newTestService(t, 5)

		_, err := svc.UpdateTask(ctx, 42, decode(t, `{"priority": "nope"}`))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_DeleteTask(t *testing.T) {
	svc, db := newTestService(t, 5)
	ctx := context.Background()
	task := createTask(t, db)

	require.NoError(t, svc.DeleteTask(ctx, task.ID))

	_, err := svc.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTask(ctx, task.ID), ErrNotFound)
}

func TestService_CanceledContext(t *testing.T) {
	svc, db := newTestService(t, 5)
	task := createTask(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.UpdateTask(ctx, task.ID, decode(t, `{"title": "x"}`))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, svc.DeleteTask(ctx, task.ID), context.Canceled)

	assert.Equal(t, task.Title, reload(t, db, task.ID).Title)
}

func TestService_Metrics(t *testing.T) {
	db := setupTestDB(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewService(NewRepository(db), 5, nil, metrics)
	ctx := context.Background()

	_, err := svc.GetTask(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.CreateTask(ctx, decode(t, `{}`))
	require.Error(t, err)
	_, err = svc.CreateTask(ctx, decode(t, `{"title": "t", "description": "d", "priority": 1, "due_date": "2030-01-01"}`))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("create", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("create", "ok")))
}

func TestNewService_DefaultPageSize(t *testing.T) {
	svc, _ := newTestService(t, 0)
	assert.Equal(t, DefaultPageSize, svc.PageSize())
}
