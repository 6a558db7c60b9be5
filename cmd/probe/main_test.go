package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestHelperProcess is a subprocess entrypoint used by tests.
//
// The parent test re-runs the current test binary with
// -test.run=TestHelperProcess and GO_WANT_HELPER_PROCESS=1, so main() and its
// os.Exit code can be observed without terminating "go test".
//
// Any arguments after a literal "--" are treated as CLI args for the command.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	i := 0
	for ; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
	}
	if i < len(args) {
		os.Args = append([]string{args[0]}, args[i+1:]...)
	} else {
		os.Args = []string{args[0]}
	}

	main()
	os.Exit(0)
}

// runCmd executes main() in a subprocess and returns stdout, stderr and the
// exit code.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmdArgs := []string{"-test.run=TestHelperProcess", "--"}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err == nil {
		return stdout, stderr, 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return stdout, stderr, ee.ExitCode()
	}

	t.Fatalf("unexpected run error: %T: %v", err, err)
	return "", "", 1
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestMain_ReportMode_PrintsKeyAndColumns(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "stats.tsv", strings.Join([]string{
		"id\tSample\ttotal_length",
		"1\tS1\t100",
		"2\tS2\t200",
		"3\tS1\t",
		"",
	}, "\n"))

	stdout, stderr, code := runCmd(t, "-in", path)
	if code != 0 {
		t.Fatalf("exit=%d, want 0\nstderr:\n%s", code, stderr)
	}
	for _, want := range []string{
		"sample key: Sample (by name)",
		"delimiter: tab",
		"duplicate identifiers: 1",
		"S1 x2",
		"total_length",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestMain_JSONMode_EmitsValidJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "checkm2.csv", "Name,Completeness\nS1,99.1\nS2,87.5\n")

	stdout, stderr, code := runCmd(t, "-in", path, "-json")
	if code != 0 {
		t.Fatalf("exit=%d, want 0\nstderr:\n%s", code, stderr)
	}

	var got struct {
		Key       string `json:"key"`
		KeyByName bool   `json:"key_by_name"`
		Delimiter string `json:"delimiter"`
		Columns   []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\n%s", err, stdout)
	}
	if got.Key != "Name" || got.KeyByName {
		t.Fatalf("key=%q by_name=%v, want Name fallback", got.Key, got.KeyByName)
	}
	if got.Delimiter != "," {
		t.Fatalf("delimiter=%q, want ','", got.Delimiter)
	}
	if len(got.Columns) != 2 || got.Columns[1].Type != "real" {
		t.Fatalf("columns=%+v, want Completeness real", got.Columns)
	}
}

func TestMain_Strict_FailsOnDuplicates(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "dups.tsv", "sample\tv\nS1\t1\nS1\t2\n")

	_, stderr, code := runCmd(t, "-in", path, "-strict")
	if code != 1 {
		t.Fatalf("exit=%d, want 1\nstderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr, "1 duplicate") {
		t.Fatalf("stderr=%q, want duplicate count", stderr)
	}
}

func TestMain_MissingIn_ExitsWith2(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t)
	if code != 2 {
		t.Fatalf("exit=%d, want 2\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	if !strings.Contains(stderr, "missing -in") {
		t.Fatalf("stderr=%q, want missing -in", stderr)
	}
}

func TestRunMain_MissingFile_Exits1(t *testing.T) {
	t.Parallel()

	var out, errb bytes.Buffer
	code := runMain([]string{"-in", filepath.Join(t.TempDir(), "nope.tsv")}, &out, &errb, defaultDeps())
	if code != 1 {
		t.Fatalf("exit=%d, want 1; stderr=%s", code, errb.String())
	}
	if !strings.Contains(errb.String(), "file not found") {
		t.Fatalf("stderr=%q, want file not found", errb.String())
	}
}

func TestParseComma(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{";", ';', false},
		{",,", 0, true},
	}
	for _, tc := range tests {
		got, err := parseComma(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("parseComma(%q)=%q,%v want %q (err=%v)", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}
