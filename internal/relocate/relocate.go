// Package relocate rewrites package prefixes inside fetched jars by running
// an external relocation tool.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"github.com/bianoble/mvnfetch/internal/sandbox"
)

// Placeholders substituted in the command template.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// DefaultRuleFlag precedes each pattern=replacement argument.
const DefaultRuleFlag = "--rule"

// Rule maps a package prefix to its replacement.
type Rule struct {
	Pattern     string
	Replacement string
}

func (r Rule) String() string {
	return r.Pattern + "=" + r.Replacement
}

// Relocator produces a rewritten copy of input at output.
type Relocator interface {
	Relocate(ctx context.Context, input, output string, rules []Rule) error
}

// CommandError reports a relocation command that failed to run or exited
// with a non-zero status.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("relocation command %q failed: %s", e.Command, e.Err)
	}
	return fmt.Sprintf("relocation command %q failed: %s: %s", e.Command, e.Output, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRelocator runs Command once per jar. The template is split like a
// shell command line; {input} and {output} are replaced by the paths, and
// appended as trailing arguments when the template names neither. Each rule
// adds RuleFlag followed by pattern=replacement.
type ExecRelocator struct {
	Command  string
	RuleFlag string
	// Force reruns the command when output already exists.
	Force  bool
	Logger zerolog.Logger
}

// Relocate implements Relocator. The command writes to a temporary file
// that is renamed to output on success.
func (r *ExecRelocator) Relocate(ctx context.Context, input, output string, rules []Rule) error {
	if _, err := r.args(input, output, rules); err != nil {
		return err
	}

	if !r.Force {
		if info, err := os.Stat(output); err == nil && info.Mode().IsRegular() {
			r.Logger.Debug().Str("path", output).Msg("relocated jar exists")
			return nil
		}
	}
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("relocation input: %w", err)
	}

	dir := filepath.Dir(output)
	if err := sandbox.EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".mvnfetch-relocate-*.jar")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// Some tools refuse to overwrite an existing output.
	os.Remove(tmpPath)
	defer os.Remove(tmpPath)

	args, err := r.args(input, tmpPath, rules)
	if err != nil {
		return err
	}

	r.Logger.Debug().Strs("args", args).Msg("running relocator")
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &CommandError{Command: r.Command, Output: strings.TrimSpace(string(out)), Err: err}
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return &CommandError{Command: r.Command, Err: errors.New("command did not write its output")}
	}
	if err := os.Rename(tmpPath, output); err != nil {
		return fmt.Errorf("renaming relocated jar to %s: %w", output, err)
	}

	r.Logger.Info().Str("path", output).Int("rules", len(rules)).Msg("relocated")
	return nil
}

// args expands the template with input and output. Placeholders are only
// substituted in template words, never in the paths or rules themselves.
func (r *ExecRelocator) args(input, output string, rules []Rule) ([]string, error) {
	if strings.TrimSpace(r.Command) == "" {
		return nil, errors.New("relocator command is not configured")
	}
	if input == "" || output == "" {
		return nil, errors.New("relocation needs an input and an output path")
	}

	words, err := shellwords.Parse(r.Command)
	if err != nil {
		return nil, fmt.Errorf("parsing relocator command %q: %w", r.Command, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("relocator command %q is empty", r.Command)
	}

	subst := strings.NewReplacer(InputPlaceholder, input, OutputPlaceholder, output)
	placed := false
	args := make([]string, 0, len(words)+2+2*len(rules))
	for _, w := range words {
		if strings.Contains(w, InputPlaceholder) || strings.Contains(w, OutputPlaceholder) {
			placed = true
		}
		args = append(args, subst.Replace(w))
	}
	if !placed {
		args = append(args, input, output)
	}

	flag := r.RuleFlag
	if flag == "" {
		flag = DefaultRuleFlag
	}
	for _, rule := range rules {
		if rule.Pattern == "" {
			return nil, errors.New("relocation rule has an empty pattern")
		}
		args = append(args, flag, rule.String())
	}
	return args, nil
}
