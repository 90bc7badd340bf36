package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultBinary is the synthesizer used by CommandEngine.
const DefaultBinary = "espeak-ng"

// CommandEngine synthesizes speech by running an espeak-compatible binary.
type CommandEngine struct {
	binary  string
	timeout time.Duration
	rate    int
}

// NewCommandEngine creates an engine running binary with a per-call timeout.
func NewCommandEngine(binary string, timeout time.Duration) *CommandEngine {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandEngine{binary: binary, timeout: timeout, rate: 175}
}

// Voices lists the voices reported by `<binary> --voices`.
func (e *CommandEngine) Voices(ctx context.Context) ([]Voice, error) {
	out, err := e.run(ctx, "--voices")
	if err != nil {
		return nil, err
	}
	return parseVoices(out), nil
}

// Synthesize renders text to WAV bytes.
func (e *CommandEngine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "signspeak-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	args := []string{"-w", path, "-s", fmt.Sprint(e.rate)}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, "--", text)

	if _, err := e.run(ctx, args...); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s produced no audio", e.binary)
	}
	return data, nil
}

func (e *CommandEngine) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timeout after %s", e.binary, e.timeout)
	}
	if err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", e.binary, err, s)
		}
		return nil, fmt.Errorf("%s failed: %w", e.binary, err)
	}
	return stdout.Bytes(), nil
}

// parseVoices reads the espeak voice table:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 3)
func parseVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		lang := fields[1]
		voices = append(voices, Voice{
			ID:       lang,
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: lang,
		})
	}

	def := -1
	for i, v := range voices {
		if v.Language == "en-us" {
			def = i
			break
		}
		if v.Language == "en" && def < 0 {
			def = i
		}
	}
	if def >= 0 {
		voices[def].Default = true
	}
	return voices
}
