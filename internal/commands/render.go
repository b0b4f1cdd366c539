package commands

import "taskman/internal/output"

// renderView prints the controller's current view.
func renderView(env *Env) {
	output.RenderTasks(env.Out, env.userName(), env.Tasks.View(), env.Tasks.PageSize(), env.Tasks.Updating)
}
