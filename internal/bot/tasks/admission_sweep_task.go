package tasks

import "context"

// newAdmissionSweepTask expires stale busy markers so a crashed
// in-flight request cannot block a user indefinitely.
func newAdmissionSweepTask(deps Deps) Func {
	log := deps.Logger.With("task", "admission_sweep")
	maxAge := deps.Config.Admission.MaxAge

	return func(ctx context.Context) error {
		if removed := deps.Admission.SweepExpired(maxAge); removed > 0 {
			log.InfoContext(ctx, "Expired stale busy markers", "removed", removed)
		}
		return nil
	}
}
