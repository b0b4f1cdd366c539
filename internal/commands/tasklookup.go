package commands

import (
	"context"
	"errors"
	"fmt"

	"taskman/internal/service"
	"taskman/internal/tasks"
)

var errOutOfRange = errors.New("task number out of range")

// findTaskByNumber returns task num. In the shell a number on the page
// already shown is resolved from the controller's view; otherwise the page
// holding it is loaded, and stays current so a following mutation refetches
// it.
func findTaskByNumber(ctx context.Context, env *Env, num int) (service.Task, error) {
	pageSize := env.Tasks.PageSize()

	page := (num-1)/pageSize + 1
	indexInPage := (num - 1) % pageSize

	view := env.Tasks.View()
	if !env.Interactive || !view.Loaded || view.CurrentPage != page {
		var err error
		view, err = env.Tasks.FetchPage(ctx, page)
		var rangeErr *tasks.PageRangeError
		if errors.As(err, &rangeErr) {
			return service.Task{}, fmt.Errorf("%w: %d", errOutOfRange, num)
		}
		if err != nil {
			return service.Task{}, err
		}
	}

	if indexInPage >= len(view.Items) {
		return service.Task{}, fmt.Errorf("%w: %d", errOutOfRange, num)
	}

	return view.Items[indexInPage], nil
}
