// Package sandbox provides a Docker-isolated MatchExecutor: an optional
// adapter to internal/executor.MatchExecutor that runs each match inside
// a locked-down container instead of calling Player implementations
// in-process. Bot artifact loading/placement on the host is still an
// out-of-scope external collaborator (BotPathResolver); this package only
// owns the sandboxing and the result parsing.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"go.uber.org/zap"
)

// BotPathResolver locates the host filesystem path of a bot's runnable
// artifact. Placing/validating that artifact is the out-of-scope bot
// loader's job.
type BotPathResolver interface {
	PathFor(bot domain.Bot) (string, error)
}

// Config configures the sandbox's container resource limits.
// MemoryLimitMB is the per-container memory cap in megabytes; it is set
// directly by whoever builds the Config, not derived from EventConfig.
type Config struct {
	Image             string
	BinaryPath        string // path to the match-runner binary inside Image
	CPUQuota          int64
	MemoryLimitMB     int64
	PidsLimit         int64
	ProgramsHostPath  string
	ProgramsMountPath string
}

// Executor runs matches in a single-use, network-disabled container per
// match, parsing its stdout/exit code into a MatchResult. It satisfies
// internal/executor.MatchExecutor.
type Executor struct {
	cfg    Config
	docker *client.Client
	paths  BotPathResolver
	log    *logger.Logger
}

func NewExecutor(cfg Config, paths BotPathResolver, log *logger.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Executor{cfg: cfg, docker: cli, paths: paths, log: log}, nil
}

func (e *Executor) Execute(ctx context.Context, bot1, bot2 domain.Bot, game domain.GameDescriptor) domain.MatchResult {
	start := time.Now()
	result := domain.MatchResult{Bot1: bot1, Bot2: bot2, GameType: game.GameType, StartUtc: start}

	path1, err1 := e.paths.PathFor(bot1)
	path2, err2 := e.paths.PathFor(bot2)
	if err1 != nil || err2 != nil {
		result.EndUtc = time.Now()
		result.Outcome, result.Winner = classify(err1 != nil, err2 != nil, bot1, bot2)
		if err1 != nil {
			result.Errors = append(result.Errors, "bot1: "+err1.Error())
		}
		if err2 != nil {
			result.Errors = append(result.Errors, "bot2: "+err2.Error())
		}
		return result
	}

	moveCtx, cancel := context.WithTimeout(ctx, game.MoveTimeout*time.Duration(max(1, game.MaxRounds)))
	defer cancel()

	score1, score2, errored1, errored2, logLines, err := e.runInContainer(moveCtx, game, path1, path2)
	result.EndUtc = time.Now()
	if err != nil {
		e.log.LogError("sandbox match run failed", err, zap.String("game_type", game.GameType))
		result.Outcome = domain.OutcomeBothErr
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Score1, result.Score2 = score1, score2
	result.Log = logLines
	switch {
	case errored1 || errored2:
		result.Outcome, result.Winner = classify(errored1, errored2, bot1, bot2)
	case score1 > score2:
		result.Outcome, result.Winner = domain.OutcomeP1Win, &bot1
	case score2 > score1:
		result.Outcome, result.Winner = domain.OutcomeP2Win, &bot2
	default:
		result.Outcome, result.Winner = domain.OutcomeDraw, nil
	}
	return result
}

func classify(errored1, errored2 bool, bot1, bot2 domain.Bot) (domain.Outcome, *domain.Bot) {
	switch {
	case errored1 && errored2:
		return domain.OutcomeBothErr, nil
	case errored1:
		return domain.OutcomeP1Err, &bot2
	case errored2:
		return domain.OutcomeP2Err, &bot1
	default:
		return domain.OutcomeDraw, nil
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (e *Executor) runInContainer(ctx context.Context, game domain.GameDescriptor, path1, path2 string) (score1, score2 int, errored1, errored2 bool, log []string, err error) {
	cmd := []string{e.cfg.BinaryPath, game.GameType, e.hostToContainerPath(path1), e.hostToContainerPath(path2)}

	containerConfig := &container.Config{
		Image: e.cfg.Image,
		Cmd:   cmd,
		Tty:   false,
	}

	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			CPUQuota:   e.cfg.CPUQuota,
			CPUPeriod:  100000,
			Memory:     e.cfg.MemoryLimitMB * 1024 * 1024,
			MemorySwap: e.cfg.MemoryLimitMB * 1024 * 1024,
			PidsLimit:  &e.cfg.PidsLimit,
			Ulimits: []*container.Ulimit{
				{Name: "nofile", Soft: 64, Hard: 64},
				{Name: "nproc", Soft: 32, Hard: 32},
			},
		},
		Binds:          []string{fmt.Sprintf("%s:%s:ro", e.cfg.ProgramsHostPath, e.cfg.ProgramsMountPath)},
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		SecurityOpt:    []string{"no-new-privileges:true"},
		CapDrop:        []string{"ALL"},
		Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=64m"},
		AutoRemove:     false,
	}

	resp, createErr := e.docker.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if createErr != nil {
		return 0, 0, false, false, nil, fmt.Errorf("create container: %w", createErr)
	}
	containerID := resp.ID
	defer e.cleanup(containerID)

	if startErr := e.docker.ContainerStart(ctx, containerID, container.StartOptions{}); startErr != nil {
		return 0, 0, false, false, nil, fmt.Errorf("start container: %w", startErr)
	}

	statusCh, errCh := e.docker.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case waitErr := <-errCh:
		if waitErr != nil {
			return 0, 0, false, false, nil, fmt.Errorf("wait for container: %w", waitErr)
		}
	case status := <-statusCh:
		stdout, stderr, logErr := e.getContainerLogs(ctx, containerID)
		if logErr != nil {
			return 0, 0, false, false, nil, fmt.Errorf("container exited %d, read logs: %w", status.StatusCode, logErr)
		}
		return parseResult(status.StatusCode, stdout, stderr)
	case <-ctx.Done():
		_ = e.docker.ContainerStop(context.Background(), containerID, container.StopOptions{})
		return 0, 0, true, true, nil, nil
	}
	return 0, 0, false, false, nil, fmt.Errorf("unexpected sandbox execution flow")
}

func (e *Executor) getContainerLogs(ctx context.Context, containerID string) (string, string, error) {
	logs, err := e.docker.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	buf := make([]byte, 8192)
	for {
		n, readErr := logs.Read(buf)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", "", readErr
		}
		if n > 8 {
			switch buf[0] {
			case 1:
				stdout.Write(buf[8:n])
			case 2:
				stderr.Write(buf[8:n])
			}
		}
	}
	return stdout.String(), stderr.String(), nil
}

func parseResult(exitCode int64, stdout, stderr string) (score1, score2 int, errored1, errored2 bool, log []string, err error) {
	if exitCode != 0 {
		if exitCode == 1 {
			return 0, 0, true, false, nil, nil
		}
		return 0, 0, false, true, nil, nil
	}

	fields := strings.Fields(strings.TrimSpace(stdout))
	if len(fields) < 2 {
		return 0, 0, false, false, nil, fmt.Errorf("invalid sandbox output, expected 2 scores: %q", stdout)
	}
	score1, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, false, false, nil, fmt.Errorf("invalid score1: %s", fields[0])
	}
	score2, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, false, false, nil, fmt.Errorf("invalid score2: %s", fields[1])
	}
	if stderr != "" {
		log = strings.Split(strings.TrimSpace(stderr), "\n")
	}
	return score1, score2, false, false, log, nil
}

func (e *Executor) cleanup(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = e.docker.ContainerStop(ctx, containerID, container.StopOptions{})
	if err := e.docker.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		e.log.Error("failed to remove sandbox container", zap.Error(err), zap.String("container_id", containerID))
	}
}

func (e *Executor) hostToContainerPath(hostPath string) string {
	if strings.HasPrefix(hostPath, e.cfg.ProgramsHostPath) {
		return strings.Replace(hostPath, e.cfg.ProgramsHostPath, e.cfg.ProgramsMountPath, 1)
	}
	return hostPath
}

func (e *Executor) Close() error {
	if e.docker != nil {
		return e.docker.Close()
	}
	return nil
}
