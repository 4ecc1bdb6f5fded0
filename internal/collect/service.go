package collect

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// dockerPrefix marks configured service names that refer to Docker
// containers instead of systemd units.
const dockerPrefix = "docker-"

// checkTimeout bounds each systemctl/docker invocation.
const checkTimeout = 5 * time.Second

// runner executes a command and returns its stdout and whether it exited
// zero. A non-nil error means the command could not run at all.
type runner func(ctx context.Context, name string, args ...string) (stdout string, ok bool, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), false, nil
		}
		return "", false, err
	}
	return string(out), true, nil
}

// ServiceCollector checks the status of configured systemd units and Docker
// containers. Container names carry the "docker-" prefix in configuration.
type ServiceCollector struct {
	services []string
	run      runner

	dockerAvailable bool
}

func NewServiceCollector(services []string, logger *slog.Logger) *ServiceCollector {
	c := &ServiceCollector{services: services, run: execRunner}
	c.dockerAvailable = c.probeDocker()
	if logger != nil {
		if c.dockerAvailable {
			logger.Info("docker support enabled for service monitoring")
		} else {
			logger.Info("docker not available, using systemd only")
		}
	}
	return c
}

func (c *ServiceCollector) probeDocker() bool {
	_, ok, err := c.run(context.Background(), "docker", "--version")
	return err == nil && ok
}

func (c *ServiceCollector) Name() string { return "services" }

func (c *ServiceCollector) Collect(ctx context.Context) (any, error) {
	out := make(map[string]ServiceStatus, len(c.services))
	for _, svc := range c.services {
		if strings.HasPrefix(svc, dockerPrefix) && c.dockerAvailable {
			out[svc] = c.checkDocker(ctx, strings.TrimPrefix(svc, dockerPrefix))
		} else {
			out[svc] = c.checkSystemd(ctx, svc)
		}
	}
	return out, nil
}

func (c *ServiceCollector) checkSystemd(ctx context.Context, unit string) ServiceStatus {
	stdout, ok, err := c.run(ctx, "systemctl", "is-active", unit)
	if err != nil {
		return ServiceStatus{Active: false, Status: "error", Type: "systemd", Error: err.Error()}
	}
	return ServiceStatus{
		Active: ok,
		Status: strings.TrimSpace(stdout),
		Type:   "systemd",
	}
}

func (c *ServiceCollector) checkDocker(ctx context.Context, container string) ServiceStatus {
	const format = "{{.State.Status}}|{{.State.Running}}|{{with .State.Health}}{{.Status}}{{end}}|{{.RestartCount}}"

	stdout, ok, err := c.run(ctx, "docker", "inspect", container, "--format="+format)
	if err != nil {
		return ServiceStatus{Active: false, Status: "error", Type: "docker", Error: err.Error()}
	}
	if !ok {
		return ServiceStatus{
			Active: false,
			Status: "not_found",
			Type:   "docker",
			Error:  "container " + container + " not found",
		}
	}

	parts := strings.Split(strings.TrimSpace(stdout), "|")
	status := ServiceStatus{Type: "docker", ContainerName: container, Status: "unknown"}

	if len(parts) > 0 {
		status.Status = parts[0]
	}
	running := len(parts) > 1 && parts[1] == "true"
	if len(parts) > 2 && parts[2] != "" {
		status.HealthStatus = parts[2]
	}
	if len(parts) > 3 {
		if n, err := strconv.Atoi(parts[3]); err == nil {
			status.RestartCount = n
		}
	}

	// A running container is active when its health check (if any) passes.
	if running {
		if status.HealthStatus != "" {
			status.Active = status.HealthStatus == "healthy"
			status.Status = status.Status + " (" + status.HealthStatus + ")"
		} else {
			status.Active = true
		}
	}

	return status
}
