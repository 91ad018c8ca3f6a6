package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/notify"
	"github.com/manav03panchal/projecthub/internal/runtime"
	"github.com/manav03panchal/projecthub/internal/scheduler"
)

// stateSpec rewrites the state file with fresh health and metrics.
const stateSpec = "30 * * * * *"

// Daemon manages the background daemon process.
type Daemon struct {
	rt        *runtime.Context
	pidFile   *PIDFile
	scheduler *scheduler.Scheduler
	queue     *notify.RetryQueue
	health    *HealthChecker
	metrics   *Metrics
	version   string
	startedAt time.Time
	debug     bool
}

// Status represents the daemon status as reported by "daemon status".
type Status struct {
	Running   bool             `json:"running"`
	PID       int              `json:"pid,omitempty"`
	StartedAt time.Time        `json:"started_at,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	NextRun   time.Time        `json:"next_run,omitempty"`
	Health    *HealthStatus    `json:"health,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
	LogPath   string           `json:"log_path"`
}

// NewDaemon creates a new daemon manager over an open runtime context.
func NewDaemon(rt *runtime.Context) *Daemon {
	return &Daemon{
		rt:      rt,
		pidFile: NewPIDFile(),
		metrics: NewMetrics(),
		version: "dev",
	}
}

// SetDebug enables debug mode.
func (d *Daemon) SetDebug(debug bool) {
	d.debug = debug
}

// SetVersion sets the version reported by health checks.
func (d *Daemon) SetVersion(version string) {
	d.version = version
}

// Metrics returns the daemon's metrics.
func (d *Daemon) Metrics() *Metrics {
	return d.metrics
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() *Status {
	status := &Status{LogPath: GetLogPath()}

	pid := d.pidFile.GetRunningPID()
	if pid == 0 {
		return status
	}
	status.Running = true
	status.PID = pid

	if state, err := readState(); err == nil {
		status.StartedAt = state.StartedAt
		status.Uptime = formatUptime(time.Since(state.StartedAt))
		status.NextRun = state.NextRun
		status.Health = state.Health
		status.Metrics = state.Metrics
	}
	return status
}

// IsRunning returns true if the daemon is running.
func (d *Daemon) IsRunning() bool {
	return d.pidFile.IsRunning()
}

// Start runs the daemon in the foreground until ctx is cancelled or a
// shutdown signal arrives.
func (d *Daemon) Start(ctx context.Context) error {
	if d.IsRunning() {
		return ErrAlreadyRunning
	}
	if err := d.pidFile.Write(); err != nil {
		return err
	}
	defer d.pidFile.Remove()

	logFile, err := OpenLogFile(GetLogPath(), defaultMaxLogSize)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logCfg := logging.DaemonConfig(logFile)
	if d.debug {
		logCfg.Level = slog.LevelDebug
	}
	logging.Init(logCfg)
	defer logging.Init(logging.DefaultConfig())

	if err := d.setup(ctx); err != nil {
		logging.Error("daemon failed to start", logging.KeyError, err)
		return err
	}

	d.queue.Start()
	if err := d.scheduler.Start(); err != nil {
		d.queue.Stop()
		return err
	}
	if _, err := d.scheduler.AddJob(stateSpec, func() { d.saveState(ctx) }); err != nil {
		logging.Warn("state refresh disabled", logging.KeyError, err)
	}

	d.startedAt = time.Now()
	d.saveState(ctx)
	logging.Info("daemon started", "pid", os.Getpid(), "version", d.version, "next_run", d.scheduler.NextRun())

	sigHandler := NewSignalHandler()
	sigHandler.Setup()
	defer sigHandler.Cleanup()

	if sig := sigHandler.Wait(ctx); sig != nil {
		logging.Info("received signal", "signal", sig.String())
	}

	d.scheduler.Stop()
	d.queue.Stop()
	removeState()
	logging.Info("daemon stopped", "pending_notifications", d.queue.Pending())
	return nil
}

// setup wires the scheduler jobs, the retry queue and the health checks.
func (d *Daemon) setup(ctx context.Context) error {
	svc, err := d.rt.SyncService(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect backends: %w", err)
	}

	d.queue = notify.NewRetryQueue(notify.NewHTTPClient())
	dispatcher := d.rt.Dispatcher()
	dispatcher.SetRetryQueue(d.queue)
	dispatcher.OnResult(d.metrics.RecordDispatch)

	db := d.rt.DB
	runner := scheduler.NewSyncRunner(db, svc, dispatcher)
	runner.OnResult(d.metrics.RecordSync)

	d.scheduler = scheduler.NewScheduler()
	d.scheduler.SetEventReminderChecker(scheduler.NewEventReminderChecker(db, dispatcher))
	d.scheduler.SetTaskDueChecker(scheduler.NewTaskDueChecker(db, dispatcher))
	d.scheduler.SetAgendaGenerator(scheduler.NewAgendaGenerator(db, dispatcher))
	d.scheduler.SetSyncRunner(runner)
	d.scheduler.SetDebug(d.debug)

	d.health = NewHealthChecker(d.version)
	d.health.SetPendingFunc(d.queue.Pending)
	d.health.AddCheck("database", func(context.Context) error {
		return db.CheckIntegrity()
	})
	if client := d.rt.Redis(); client != nil {
		d.health.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	if m := d.rt.Mirror(); m != nil {
		d.health.AddCheck("postgres", m.Ping)
	}
	return nil
}

// StartBackground starts the daemon as a detached child process.
func (d *Daemon) StartBackground() (int, error) {
	if d.IsRunning() {
		return d.pidFile.GetRunningPID(), ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"daemon", "start", "--foreground"}
	if d.debug {
		args = append(args, "--debug")
	}
	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil

	// Errors printed before the structured log is open still reach the log.
	logPath := GetLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
		if logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			defer logFile.Close()
			cmd.Stdout = logFile
			cmd.Stderr = logFile
		}
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	go cmd.Wait()

	time.Sleep(config.Global.Daemon.StartupWait)

	if !d.pidFile.IsRunning() {
		if errMsg := readLastLogError(logPath); errMsg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", errMsg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", logPath)
	}
	return cmd.Process.Pid, nil
}

// readLastLogError returns the last error-looking line among the final ten
// lines of the log.
func readLastLogError(logPath string) string {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := max(len(lines)-10, 0)
	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.Contains(strings.ToLower(line), "error") ||
			strings.Contains(line, "cannot access database") ||
			strings.Contains(line, "failed to") {
			return line
		}
	}
	return ""
}

// Stop stops the running daemon.
func (d *Daemon) Stop() error {
	pid := d.pidFile.GetRunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	// The daemon is not our child, so poll instead of Wait.
	deadline := time.Now().Add(config.Global.Daemon.KillTimeout)
	for IsProcessRunning(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if IsProcessRunning(pid) {
		process.Kill()
	}

	d.pidFile.Remove()
	removeState()
	return nil
}

// DaemonState is the state file the running daemon refreshes for "daemon status".
type DaemonState struct {
	PID       int              `json:"pid"`
	StartedAt time.Time        `json:"started_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	NextRun   time.Time        `json:"next_run,omitempty"`
	Health    *HealthStatus    `json:"health,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

func (d *Daemon) saveState(ctx context.Context) {
	snap := d.metrics.Snapshot()
	state := &DaemonState{
		PID:       os.Getpid(),
		StartedAt: d.startedAt,
		UpdatedAt: time.Now(),
		NextRun:   d.scheduler.NextRun(),
		Health:    d.health.Check(ctx),
		Metrics:   &snap,
	}
	if state.Health.Status != StatusHealthy {
		logging.Warn("daemon unhealthy", "checks", state.Health.Checks)
	}
	if err := writeState(state); err != nil {
		logging.Warn("failed to write daemon state", logging.KeyError, err)
	}
}

func getStatePath() string {
	return filepath.Join(stateDir(), "daemon.json")
}

func writeState(state *DaemonState) error {
	path := getStatePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readState() (*DaemonState, error) {
	data, err := os.ReadFile(getStatePath())
	if err != nil {
		return nil, err
	}
	var state DaemonState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func removeState() {
	if err := os.Remove(getStatePath()); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove daemon state file", logging.KeyError, err, "path", getStatePath())
	}
}

// formatUptime formats a duration as uptime.
func formatUptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
