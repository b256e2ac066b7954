package hypervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"aurora-kvm-top/internal/model"
)

const defaultBinary = "virsh"

// Adapter translates between typed records and the hypervisor CLI. It never
// holds a persistent connection: every call shells out to the configured
// binary and parses its textual output, per spec.md §6.
type Adapter struct {
	logger *slog.Logger
	binary string // defaults to "virsh"
	uri    string // libvirt connect URI, e.g. "qemu:///system"; empty uses the CLI default
	viewer string // graphical viewer binary, e.g. "virt-viewer"
	now    func() time.Time
}

func New(logger *slog.Logger, binary, uri, viewer string) *Adapter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultBinary
	}
	return &Adapter{
		logger: logger,
		binary: binary,
		uri:    uri,
		viewer: viewer,
		now:    time.Now,
	}
}

func (a *Adapter) baseArgs() []string {
	if a.uri == "" {
		return nil
	}
	return []string{"-c", a.uri}
}

// DomainData invokes the stats subcommand and parses its block-structured
// output into a name -> DomainData mapping.
func (a *Adapter) DomainData(ctx context.Context) (map[string]model.DomainData, error) {
	args := append(a.baseArgs(), "domstats", "--balloon", "--block", "--state")
	out, err := a.run(ctx, args...)
	sampledAtMs := a.now().UnixMilli()
	if err != nil {
		return nil, err
	}
	return parseDomStats(out, sampledAtMs)
}

// HostInfo invokes the node-info subcommand and parses the host's CPU
// topology from it.
func (a *Adapter) HostInfo(ctx context.Context) (model.HostCpuInfo, error) {
	args := append(a.baseArgs(), "nodeinfo")
	out, err := a.run(ctx, args...)
	if err != nil {
		return model.HostCpuInfo{}, err
	}
	return parseNodeInfo(out)
}

// Start begins booting a VM. Runs asynchronously: it may take several
// seconds for the hypervisor to report the domain as running, so the call
// returns once the command has been dispatched without waiting for that.
func (a *Adapter) Start(name string) {
	a.runAsync("start", name)
}

// Shutdown requests a graceful ACPI shutdown. Asynchronous for the same
// reason as Start.
func (a *Adapter) Shutdown(name string) {
	a.runAsync("shutdown", name)
}

// Reboot requests a graceful ACPI reboot. Runs synchronously: reboot
// requests return as soon as the hypervisor acknowledges them.
func (a *Adapter) Reboot(ctx context.Context, name string) error {
	args := append(a.baseArgs(), "reboot", name)
	_, err := a.run(ctx, args...)
	return err
}

// Reset forces an immediate, ungraceful reset. Synchronous, same reasoning
// as Reboot.
func (a *Adapter) Reset(ctx context.Context, name string) error {
	args := append(a.baseArgs(), "reset", name)
	_, err := a.run(ctx, args...)
	return err
}

// SetMemory resizes a running VM's live balloon target. Rejects requests
// below 256 MiB without invoking the hypervisor at all.
func (a *Adapter) SetMemory(ctx context.Context, name string, bytes uint64) error {
	const minBytes = 256 * 1024 * 1024
	if bytes < minBytes {
		return fmt.Errorf("set memory %s: requested %d bytes is below the 256 MiB floor", name, bytes)
	}
	kib := bytes / 1024
	args := append(a.baseArgs(), "setmem", name, fmt.Sprintf("%d", kib), "--live")
	if _, err := a.run(ctx, args...); err != nil {
		return err
	}
	a.logger.Info("resized vm memory", "vm", name, "bytes", bytes, "kib", kib)
	return nil
}

// LaunchViewer starts the external graphical viewer process for name,
// detached from this process's lifetime. The viewer itself is an external
// collaborator (spec.md §1) — this only shells out to it.
func (a *Adapter) LaunchViewer(name string) error {
	if strings.TrimSpace(a.viewer) == "" {
		return fmt.Errorf("no graphical viewer configured")
	}
	args := []string{name}
	if a.uri != "" {
		args = append([]string{"-c", a.uri}, args...)
	}
	cmd := exec.Command(a.viewer, args...)
	if err := cmd.Start(); err != nil {
		return &CommandError{Command: a.viewer, Args: args, Cause: err}
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			a.logger.Debug("viewer process exited", "vm", name, "error", err)
		}
	}()
	return nil
}

func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, a.binary, args...)
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		a.logger.Debug("hypervisor command failed", "command_line", commandLine(a.binary, args))
		return "", &CommandError{Command: a.binary, Args: args, Stderr: stderr, Cause: err}
	}
	return string(out), nil
}

// runAsync fires a command in the background and only logs the eventual
// result; callers don't wait on it, matching the "start/shutdown run
// asynchronously" requirement in spec.md §4.1.
func (a *Adapter) runAsync(subcommand, name string) {
	args := append(a.baseArgs(), subcommand, name)
	a.logger.Info("dispatching vm command", "command_line", commandLine(a.binary, args))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := a.run(ctx, args...); err != nil {
			a.logger.Error("async vm command failed", "command", subcommand, "vm", name, "error", err)
			return
		}
		a.logger.Info("vm command completed", "command", subcommand, "vm", name)
	}()
}

// commandLine renders a human-readable, shell-quoted rendition of the
// command actually run — exec.CommandContext never invokes a shell itself,
// but VM names can contain spaces or shell metacharacters, and a log line
// or status message showing the unquoted command would be ambiguous (or
// unsafe to copy-paste into an actual shell). Every argument is quoted.
func commandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(binary))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes, escaping any embedded single quote
// using the standard '\'' POSIX idiom.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
