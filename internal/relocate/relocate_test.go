package relocate

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeTool writes a script that copies its input to its output and appends
// the remaining arguments, so tests can inspect what it was called with.
func fakeTool(t *testing.T, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("relocator tests use a shell script")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := filepath.Join(t.TempDir(), "relocator.sh")
	body := "#!/bin/sh\nin=\"$1\"\nout=\"$2\"\nshift 2\n"
	if exitCode != 0 {
		body += "echo boom >&2\nexit 3\n"
	} else {
		body += "cat \"$in\" > \"$out\"\necho \"$@\" >> \"$out\"\n"
	}
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return script
}

func writeInput(t *testing.T) string {
	t.Helper()
	in := filepath.Join(t.TempDir(), "lib-1.0.jar")
	if err := os.WriteFile(in, []byte("jar\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return in
}

func TestExecRelocatorRunsCommand(t *testing.T) {
	script := fakeTool(t, 0)
	in := writeInput(t)
	out := filepath.Join(t.TempDir(), "lib", "com", "example", "lib-1.0.jar")

	r := &ExecRelocator{Command: "sh " + script + " {input} {output}"}
	rules := []Rule{
		{Pattern: "com.google.gson", Replacement: "shaded.gson"},
		{Pattern: "org.slf4j", Replacement: "shaded.slf4j"},
	}
	if err := r.Relocate(context.Background(), in, out, rules); err != nil {
		t.Fatalf("Relocate: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	want := "jar\n--rule com.google.gson=shaded.gson --rule org.slf4j=shaded.slf4j\n"
	if string(data) != want {
		t.Errorf("output = %q, want %q", data, want)
	}
}

func TestExecRelocatorAppendsPathsWithoutPlaceholders(t *testing.T) {
	script := fakeTool(t, 0)
	in := writeInput(t)
	out := filepath.Join(t.TempDir(), "out.jar")

	r := &ExecRelocator{Command: "sh " + script, RuleFlag: "-r"}
	if err := r.Relocate(context.Background(), in, out, []Rule{{Pattern: "a", Replacement: "b"}}); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.HasSuffix(string(data), "-r a=b\n") {
		t.Errorf("output = %q", data)
	}
}

func TestExecRelocatorSkipsExistingOutput(t *testing.T) {
	in := writeInput(t)
	out := filepath.Join(t.TempDir(), "out.jar")
	os.WriteFile(out, []byte("already"), 0644)

	// The command would fail if it ran.
	r := &ExecRelocator{Command: "/nonexistent/relocator {input} {output}"}
	if err := r.Relocate(context.Background(), in, out, nil); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "already" {
		t.Errorf("existing output was replaced: %q", data)
	}
}

func TestExecRelocatorForceReruns(t *testing.T) {
	script := fakeTool(t, 0)
	in := writeInput(t)
	out := filepath.Join(t.TempDir(), "out.jar")
	os.WriteFile(out, []byte("stale"), 0644)

	r := &ExecRelocator{Command: "sh " + script + " {input} {output}", Force: true}
	if err := r.Relocate(context.Background(), in, out, nil); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.HasPrefix(string(data), "jar\n") {
		t.Errorf("output = %q", data)
	}
}

func TestExecRelocatorCommandFailure(t *testing.T) {
	script := fakeTool(t, 3)
	in := writeInput(t)
	outDir := t.TempDir()
	out := filepath.Join(outDir, "out.jar")

	r := &ExecRelocator{Command: "sh " + script + " {input} {output}"}
	err := r.Relocate(context.Background(), in, out, nil)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if ce.Output != "boom" {
		t.Errorf("output = %q", ce.Output)
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Error("failed relocation must not leave an output")
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestExecRelocatorArgs(t *testing.T) {
	tests := []struct {
		name    string
		command string
		rules   []Rule
		want    []string
		wantErr bool
	}{
		{
			name:    "quoted template",
			command: `java -jar "/opt/jar jar/relocator.jar" --in={input} --out={output}`,
			rules:   []Rule{{Pattern: "a.b", Replacement: "c.d"}},
			want:    []string{"java", "-jar", "/opt/jar jar/relocator.jar", "--in=/in.jar", "--out=/out.jar", "--rule", "a.b=c.d"},
		},
		{
			name:    "appended paths",
			command: "relocator",
			want:    []string{"relocator", "/in.jar", "/out.jar"},
		},
		{
			name:    "placeholder in rule is literal",
			command: "tool {input} {output}",
			rules:   []Rule{{Pattern: "a.{output}", Replacement: "{input}.b"}},
			want:    []string{"tool", "/in.jar", "/out.jar", "--rule", "a.{output}={input}.b"},
		},
		{
			name:    "empty",
			command: "   ",
			wantErr: true,
		},
		{
			name:    "unbalanced quote",
			command: `tool "unterminated`,
			wantErr: true,
		},
		{
			name:    "empty pattern",
			command: "tool",
			rules:   []Rule{{Replacement: "x"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ExecRelocator{Command: tt.command}
			got, err := r.args("/in.jar", "/out.jar", tt.rules)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("args: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecRelocatorArgsKeepsPlaceholderInPath(t *testing.T) {
	r := &ExecRelocator{Command: "tool {input} -o {output}"}
	got, err := r.args("/jars/{output}/in.jar", "/tmp/out.jar", nil)
	if err != nil {
		t.Fatalf("args: %v", err)
	}
	want := []string{"tool", "/jars/{output}/in.jar", "-o", "/tmp/out.jar"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestExecRelocatorMissingInput(t *testing.T) {
	r := &ExecRelocator{Command: "tool {input} {output}"}
	err := r.Relocate(context.Background(), filepath.Join(t.TempDir(), "missing.jar"), filepath.Join(t.TempDir(), "out.jar"), nil)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}
