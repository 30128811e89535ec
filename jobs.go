package bridge

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jetkvm/chatpad-bridge/internal/utils"
)

const (
	watchdogInterval  = time.Second
	statusLogInterval = time.Minute
	procTitleInterval = 5 * time.Second
)

// startJobs schedules the heartbeat watchdog, the periodic status log and the
// process title refresh.
func startJobs(status *statusTracker, staleAfter time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	jobs := []struct {
		name     string
		interval time.Duration
		task     func()
	}{
		{"heartbeat-watchdog", watchdogInterval, func() { checkHeartbeat(status, time.Now(), staleAfter) }},
		{"status-log", statusLogInterval, func() { logStatus(status) }},
		{"proc-title", procTitleInterval, func() { refreshProcTitle(status) }},
	}
	for _, j := range jobs {
		_, err := s.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(j.task),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
	}

	s.Start()
	jobsLogger.Info().Int("jobs", len(jobs)).Msg("scheduler started")
	return s, nil
}

func checkHeartbeat(status *statusTracker, now time.Time, staleAfter time.Duration) bool {
	if !status.checkStale(now, staleAfter) {
		return false
	}
	st := status.Snapshot()
	jobsLogger.Warn().
		Str("session", st.Session.String).
		Time("last_heartbeat", st.LastHeartbeat.Time).
		Dur("stale_after", staleAfter).
		Msg("no heartbeat from chatpad")
	return true
}

func logStatus(status *statusTracker) {
	st := status.Snapshot()
	ps := readProcessStats()
	ev := jobsLogger.Info().
		Str("state", string(st.State)).
		Bool("stale", st.Stale).
		Uint64("polls", st.Polls).
		Int("sessions", st.Sessions)
	if ps.ResidentMemory.Valid {
		ev = ev.Int64("rss", ps.ResidentMemory.Int64)
	}
	ev.Msg("status")
}

func refreshProcTitle(status *statusTracker) {
	st := status.Snapshot()
	utils.SetProcTitle(utils.ProcTitle("chatpad-bridge", string(st.State), st.Port.String, st.Polls))
}
