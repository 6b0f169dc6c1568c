package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"personabot/internal/bot/tasks"
	"personabot/internal/config"
)

// Scheduler runs the registered background tasks on their configured
// cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       config.SchedulerConfig
	taskMap   map[string]tasks.Func
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler over the given task registry.
func NewScheduler(logger *slog.Logger, cfg config.SchedulerConfig, taskMap map[string]tasks.Func) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules all enabled tasks and begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	for name, taskCfg := range s.cfg.Tasks {
		if !taskCfg.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", name)
			continue
		}
		taskFunc, ok := s.taskMap[name]
		if !ok {
			s.logger.Warn("Task configured but not registered, skipping", "task_name", name)
			continue
		}
		if taskCfg.Schedule == "" {
			s.logger.Warn("Task enabled with empty schedule, skipping", "task_name", name)
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskCfg.Schedule, true),
			gocron.NewTask(
				func(ctx context.Context, taskName string) {
					start := time.Now()
					if taskErr := taskFunc(ctx); taskErr != nil {
						s.logger.Error("Scheduled task failed",
							"task_name", taskName, "error", taskErr)
					}
					s.logger.Debug("Scheduled task finished",
						"task_name", taskName, "duration", time.Since(start))
				},
				context.Background(),
				name,
			),
			gocron.WithName(name),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task",
				"task_name", name, "schedule", taskCfg.Schedule, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", name, "schedule", taskCfg.Schedule)
		scheduled++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.scheduler.Shutdown()
}
