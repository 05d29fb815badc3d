package chatbot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/FACorreiaa/bytebite/internal/types"
)

// LLMClient makes a single attempt at answering prompt. Retries belong to the
// caller.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// CommandRunner runs an executable with stdin and returns its stdout and stderr.
type CommandRunner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

// NewExecRunner runs real processes through os/exec.
func NewExecRunner() CommandRunner { return execRunner{} }

func (execRunner) Run(ctx context.Context, stdin string, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && (errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)) {
		return "", "", fmt.Errorf("%w: %s", types.ErrExecutableNotFound, name)
	}
	return stdout.String(), stderr.String(), err
}

var _ LLMClient = (*OllamaClient)(nil)

// OllamaClient pipes the prompt into `ollama run <model>`.
type OllamaClient struct {
	runner  CommandRunner
	command string
	model   string
}

func NewOllamaClient(runner CommandRunner, command, model string) *OllamaClient {
	return &OllamaClient{
		runner:  runner,
		command: command,
		model:   model,
	}
}

func (c *OllamaClient) Provider() string { return "ollama" }

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx, prompt, c.command, "run", c.model)
	if err != nil {
		if errors.Is(err, types.ErrExecutableNotFound) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ollama run interrupted: %w", ctxErr)
		}
		return "", fmt.Errorf("ollama run failed: %w (stderr: %s)", err, strings.TrimSpace(stderr))
	}
	answer := strings.TrimSpace(stdout)
	if answer == "" {
		return "", fmt.Errorf("empty response from ollama (stderr: %s)", strings.TrimSpace(stderr))
	}
	return answer, nil
}
