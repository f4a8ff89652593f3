// Package extract turns files into text for the suggestion service.
//
// Rich formats go through an external converter command (markitdown by
// default); plain text is read directly.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/renami-app/renami/internal/config"
	"github.com/renami-app/renami/internal/domain"
)

// Diagnostics the converter prints for inputs it cannot use.
const (
	emptyInputMarker  = "Input was empty"
	unsupportedMarker = "UnsupportedFormat"
)

// runFunc executes name with args and returns stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Command runs an external converter that prints the file as text on stdout.
type Command struct {
	name    string
	args    []string
	timeout time.Duration
	run     runFunc
}

// NewCommand builds a Command from the [extractor] config section.
func NewCommand(cfg config.ExtractorConfig) *Command {
	return &Command{
		name:    cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		timeout: cfg.TimeoutDuration(),
		run:     runExec,
	}
}

// Extract implements domain.Extractor.
func (c *Command) Extract(ctx context.Context, path string) domain.Extraction {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.args...), path)
	stdout, stderr, err := c.run(ctx, c.name, args...)
	if err != nil {
		diag := strings.TrimSpace(string(stderr))
		switch {
		case strings.Contains(diag, emptyInputMarker):
			return domain.ExtractedBlank()
		case strings.Contains(diag, unsupportedMarker):
			return domain.ExtractionFailed("Error converting file: unsupported format")
		case errors.Is(err, exec.ErrNotFound):
			return domain.ExtractionFailed(fmt.Sprintf("Error converting file: converter %q not found", c.name))
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return domain.ExtractionFailed(fmt.Sprintf("Error converting file: timed out after %s", c.timeout))
		}
		log.Printf("[extract] %s %s failed: %v", c.name, path, err)
		if diag != "" {
			return domain.ExtractionFailed("Error converting file: " + lastLine(diag))
		}
		return domain.ExtractionFailed("Error converting file: " + err.Error())
	}

	return fromBytes(stdout)
}

func runExec(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ReadPlainText reads path through fs without conversion.
func ReadPlainText(fs afero.Fs, path string) domain.Extraction {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return domain.ExtractionFailed("Error reading file: " + err.Error())
	}
	return fromBytes(data)
}

func fromBytes(data []byte) domain.Extraction {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return domain.ExtractedBlank()
	}
	return domain.ExtractedText(text)
}

// lastLine returns the final non-empty line of a traceback-style message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return s
}
