package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/config"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "camspeed ") {
		t.Errorf("output = %q", out)
	}
}

func TestListCmd(t *testing.T) {
	out, err := execute(t, context.Background(), "list", "--sim-cameras", "2")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"0: camspeed Simulated", "(serial SIM20001)", "1: ", "(serial SIM20002)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInfoCmdAppliesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	content := "[camera]\nwidth = 720\nheight = 540\npixel_format = \"Mono8\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, context.Background(), "info", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Camera device information",
		"Max resolution      : 1440 x 1080\n",
		"Width               : 720\n",
		"Pixel format        : Mono8\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Camera fps measuring") {
		t.Error("info must not start measuring")
	}
}

func TestRunCmdMissingConfig(t *testing.T) {
	_, err := execute(t, context.Background(), "run", filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, config.ErrNotReadable) {
		t.Fatalf("error = %v, want ErrNotReadable", err)
	}
}

func TestRunCmdInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"policy", []string{"run", "--policy", "sometimes"}},
		{"format", []string{"run", "--format", "csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, context.Background(), tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunCmdUnknownDriver(t *testing.T) {
	_, err := execute(t, context.Background(), "run", "--driver", "spinnaker")
	if !errors.Is(err, camera.ErrUnknownDriver) {
		t.Errorf("error = %v, want ErrUnknownDriver", err)
	}
}

func TestRunCmdInvalidCameraSetting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camspeed.toml")
	if err := os.WriteFile(path, []byte("[camera]\nadc_bit_depth = \"Bit16\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, context.Background(), "run", path)
	if !errors.Is(err, camera.ErrInvalidEntry) {
		t.Errorf("error = %v, want ErrInvalidEntry", err)
	}
}

func TestRunCmdMeasuresUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	out, err := execute(t, ctx, "run", "--interval", "100ms", "--sim-max-fps", "200", "--format", "label")
	if err != nil {
		t.Fatalf("run returned %v, want nil on cancellation", err)
	}
	if !strings.Contains(out, "Camera fps measuring\n") {
		t.Fatalf("missing measuring header:\n%s", out)
	}
	header := "Camera fps measuring\n====================\n"
	body := out[strings.Index(out, header)+len(header):]
	lines := strings.Split(strings.TrimSpace(body), "\n")
	re := regexp.MustCompile(`^FPS: \d+$`)
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("no reports printed:\n%s", out)
	}
	for _, line := range lines {
		if !re.MatchString(line) {
			t.Errorf("report line %q does not match %s", line, re)
		}
	}
}
