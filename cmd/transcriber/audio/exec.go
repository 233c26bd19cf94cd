package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// runCommand executes one external command, logging its output on failure.
func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Error("command failed",
			slog.String("command", name),
			slog.String("stderr", stderr.String()))
		return fmt.Errorf("%s failed: %w", name, err)
	}

	return nil
}
