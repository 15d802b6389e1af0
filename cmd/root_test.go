package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func dryRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), append(args, "--dry-run"), &out)
	return out.String(), err
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	var out bytes.Buffer
	if err := execute(context.Background(), []string{"--version"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "gosock ") {
		t.Errorf("version output = %q", out.String())
	}
}

// TestExecute_Help verifies --help (and no args) returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {}} {
		name := "no-args"
		if len(args) > 0 {
			name = args[0]
		}
		t.Run(name, func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRunServe verifies that every socket flag reaches the
// listener list in order.
func TestExecute_DryRunServe(t *testing.T) {
	out, err := dryRun(t, "-l", "/run/a.sock",
		"--udp-multicast", "239.0.0.1:5000",
		"-s", ":8000",
		"--sctp", "10.0.0.1,10.0.0.2:3868",
		"--chmod-socket=660")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"mode: serve (backlog 100)",
		"socket 0: INET stream :8000",
		"socket 1: INET udp 239.0.0.1:5000",
		"socket 2: INET sctp 10.0.0.1,10.0.0.2:3868",
		"socket 3: UNIX stream /run/a.sock",
		"chmod: 660",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestExecute_DryRunConnect verifies timeout and retry flags.
func TestExecute_DryRunConnect(t *testing.T) {
	out, err := dryRun(t, "-w", "7", "--retries", "2", "@ctl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "mode: connect @ctl (timeout 7s, async false, retries 2)"; !strings.Contains(out, want) {
		t.Errorf("output = %q, want %q", out, want)
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"listen without sockets", []string{"-l"}},
		{"connect without target", []string{"-w", "3"}},
		{"udp on a path", []string{"-l", "--udp", "/run/a.sock"}},
		{"bad chmod", []string{"-l", "--chmod-socket=999", ":80"}},
		{"listen and probe", []string{"-l", "-z", ":80"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dryRun(t, tt.args...); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	if err := Execute(context.Background(), []string{"--nonexistent-flag"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_Precedence verifies defaults < file < env < flags.
func TestExecute_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosock.toml")
	err := os.WriteFile(path, []byte(`
[server]
listen-backlog = 10

[[socket]]
name = "/run/file.sock"
`), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOSOCK_CONFIG", path)
	t.Setenv("GOSOCK_LISTEN_BACKLOG", "20")

	out, err := dryRun(t, "-l")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "backlog 20") || !strings.Contains(out, "socket 0: UNIX stream /run/file.sock") {
		t.Errorf("env should override file:\n%s", out)
	}

	out, err = dryRun(t, "-l", "-q", "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "backlog 30") {
		t.Errorf("flag should override env:\n%s", out)
	}
}
