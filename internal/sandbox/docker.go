package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerBackend runs submissions inside a long-lived container with the
// network disabled and memory/CPU capped. Each Run copies the source in and
// execs the interpreter against it.
type DockerBackend struct {
	cfg         Config
	client      *client.Client
	containerID string
}

// NewDockerBackend creates a backend using the local Docker daemon.
func NewDockerBackend(cfg Config) (*DockerBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker not reachable: %w", err)
	}

	return &DockerBackend{cfg: cfg, client: cli}, nil
}

func (b *DockerBackend) Start(ctx context.Context) error {
	if err := b.ensureImage(ctx, b.cfg.Image); err != nil {
		return fmt.Errorf("ensure image: %w", err)
	}

	containerCfg := &container.Config{
		Image:           b.cfg.Image,
		Cmd:             []string{"sh", "-c", "while true; do sleep 3600; done"},
		WorkingDir:      "/workspace",
		NetworkDisabled: true,
		Tty:             false,
		Labels: map[string]string{
			"grader.sandbox": "true",
		},
	}
	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   int64(b.cfg.MemoryMB) * 1024 * 1024,
			NanoCPUs: int64(b.cfg.CPULimit * 1e9),
		},
	}

	resp, err := b.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := b.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = b.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("start container: %w", err)
	}

	b.containerID = resp.ID
	return nil
}

func (b *DockerBackend) Run(ctx context.Context, code string) (*Result, error) {
	if b.containerID == "" {
		return nil, ErrWorkerNotRunning
	}

	const filename = "main.py"
	if err := b.copyFile(ctx, filename, code); err != nil {
		return nil, fmt.Errorf("copy source: %w", err)
	}

	cmd := append(append([]string{}, b.cfg.Command...), filename)
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   "/workspace",
		AttachStdout: true,
		AttachStderr: true,
	}
	execResp, err := b.client.ContainerExecCreate(ctx, b.containerID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	start := time.Now()
	attachResp, err := b.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attachResp.Close()

	out, err := drainWithContext(ctx, attachResp.Reader, attachResp.Close)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read exec output: %w", err)
	}
	duration := time.Since(start)

	inspectResp, err := b.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec: %w", err)
	}

	stdout, stderr := demuxOutput(out)
	res := &Result{
		Success:  inspectResp.ExitCode == 0,
		Output:   stdout,
		Error:    stderr,
		Duration: duration,
	}
	if !res.Success {
		res.Kind = FailureUser
	}
	return res, nil
}

// drainWithContext copies everything from r, abandoning the copy when ctx
// expires. The hijacked exec stream is a raw connection with no deadline of
// its own, so abort must unblock the pending read (closing the stream does);
// the reader goroutine is always reaped before returning. The executor kills
// and respawns the backend on the error path, which removes the container
// and with it the runaway exec process.
func drainWithContext(ctx context.Context, r io.Reader, abort func()) ([]byte, error) {
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(&buf, r)
		done <- err
	}()

	select {
	case err := <-done:
		return buf.Bytes(), err
	case <-ctx.Done():
		abort()
		<-done
		return nil, ctx.Err()
	}
}

func (b *DockerBackend) Kill() error {
	if b.containerID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	timeout := 5
	_ = b.client.ContainerStop(ctx, b.containerID, container.StopOptions{Timeout: &timeout})
	err := b.client.ContainerRemove(ctx, b.containerID, container.RemoveOptions{Force: true})
	b.containerID = ""
	return err
}

// Close releases the docker client; the container is removed first.
func (b *DockerBackend) Close() error {
	_ = b.Kill()
	return b.client.Close()
}

func (b *DockerBackend) copyFile(ctx context.Context, name, content string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	header := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		return fmt.Errorf("write tar content: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	return b.client.CopyToContainer(ctx, b.containerID, "/workspace", &buf, container.CopyToContainerOptions{})
}

func (b *DockerBackend) ensureImage(ctx context.Context, img string) error {
	_, err := b.client.ImageInspect(ctx, img)
	if err == nil {
		return nil
	}
	reader, err := b.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", img, err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxOutput separates Docker's multiplexed stdout/stderr stream. Each
// frame carries an 8-byte header: [type 1=stdout 2=stderr][0][0][0][len u32].
func demuxOutput(data []byte) (stdout, stderr string) {
	var outBuf, errBuf strings.Builder

	for len(data) >= 8 {
		streamType := data[0]
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]

		if size > len(data) {
			size = len(data)
		}
		chunk := string(data[:size])
		data = data[size:]

		switch streamType {
		case 1:
			outBuf.WriteString(chunk)
		case 2:
			errBuf.WriteString(chunk)
		}
	}

	if outBuf.Len() == 0 && errBuf.Len() == 0 && len(data) > 0 {
		return string(data), ""
	}
	return outBuf.String(), errBuf.String()
}
