package application

import "context"

// calendarTask is one independent external call in an ordered batch.
type calendarTask[T any] struct {
	label string
	run   func(ctx context.Context) (T, error)
}

// taskResult captures the outcome of a single calendarTask.
type taskResult[T any] struct {
	label string
	value T
	err   error
}

// runAbortOnFirst executes tasks in order and stops at the first failure. The
// results of every task that ran, including the failed one, are returned with
// the failure.
func runAbortOnFirst[T any](ctx context.Context, tasks []calendarTask[T]) ([]taskResult[T], error) {
	results := make([]taskResult[T], 0, len(tasks))
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		value, err := task.run(ctx)
		results = append(results, taskResult[T]{label: task.label, value: value, err: err})
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// runCollectAll executes every task in order regardless of individual failures.
func runCollectAll[T any](ctx context.Context, tasks []calendarTask[T]) []taskResult[T] {
	results := make([]taskResult[T], 0, len(tasks))
	for _, task := range tasks {
		value, err := task.run(ctx)
		results = append(results, taskResult[T]{label: task.label, value: value, err: err})
	}
	return results
}

func deleteTasks(calendar CalendarGateway, eventIDs []string) []calendarTask[struct{}] {
	tasks := make([]calendarTask[struct{}], 0, len(eventIDs))
	for _, id := range eventIDs {
		id := id
		tasks = append(tasks, calendarTask[struct{}]{
			label: id,
			run: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, calendar.DeleteEvent(ctx, id)
			},
		})
	}
	return tasks
}
