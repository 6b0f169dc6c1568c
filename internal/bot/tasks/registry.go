package tasks

// RegisterAllTasks builds the task registry. Map keys match the task
// names used in the scheduler config section.
func RegisterAllTasks(deps Deps) map[string]Func {
	registry := map[string]Func{
		"admission_sweep": newAdmissionSweepTask(deps),
		"sql_maintenance": newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(registry))
	return registry
}
