package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestInvoke_EchoesStdin(t *testing.T) {
	r := &Runner{
		Command: "cat",
		Addr:    "127.0.0.1:11434",
		Timeout: 5 * time.Second,
		args:    func(model string) []string { return nil },
	}

	out, err := r.Invoke(context.Background(), "test-model", "hello model\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello model" {
		t.Errorf("got %q, want trimmed echo", out)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	r := &Runner{
		Command: "sleep",
		Addr:    "127.0.0.1:11434",
		Timeout: 50 * time.Millisecond,
		args:    func(model string) []string { return []string{"10"} },
	}

	start := time.Now()
	_, err := r.Invoke(context.Background(), "test-model", "")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s, process not killed promptly", elapsed)
	}
}

func TestInvoke_NonZeroExit(t *testing.T) {
	r := &Runner{
		Command: "sh",
		Addr:    "127.0.0.1:11434",
		Timeout: 5 * time.Second,
		args: func(model string) []string {
			return []string{"-c", "echo boom >&2; exit 3"}
		},
	}

	_, err := r.Invoke(context.Background(), "test-model", "")
	var ie *InvokeError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InvokeError, got %v", err)
	}
	if ie.ExitCode != 3 {
		t.Errorf("exit code: got %d, want 3", ie.ExitCode)
	}
	if ie.Stderr != "boom" {
		t.Errorf("stderr: got %q, want %q", ie.Stderr, "boom")
	}
	if !strings.Contains(ie.Error(), "exit 3") {
		t.Errorf("error text should carry the exit code: %q", ie.Error())
	}
}

func TestInvoke_CommandNotFound(t *testing.T) {
	r := &Runner{
		Command: "definitely-not-a-real-binary-9f2c",
		Addr:    "127.0.0.1:11434",
		Timeout: 5 * time.Second,
	}

	_, err := r.Invoke(context.Background(), "test-model", "")
	var ie *InvokeError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InvokeError, got %v", err)
	}
	if ie.ExitCode != -1 {
		t.Errorf("exit code: got %d, want -1", ie.ExitCode)
	}
	if ie.Stderr == "" {
		t.Error("expected underlying cause in Stderr for a start failure")
	}
}

func TestInvoke_CanceledContext(t *testing.T) {
	r := &Runner{
		Command: "sleep",
		Addr:    "127.0.0.1:11434",
		Timeout: 5 * time.Second,
		args:    func(model string) []string { return []string{"10"} },
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := r.Invoke(ctx, "test-model", "")
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("cancellation must not be reported as a timeout: %v", err)
	}
}

func TestNewRunner_DefaultArgs(t *testing.T) {
	r := &Runner{}
	got := r.argv("llama3")
	if len(got) != 2 || got[0] != "run" || got[1] != "llama3" {
		t.Errorf("default argv: got %v, want [run llama3]", got)
	}
}
