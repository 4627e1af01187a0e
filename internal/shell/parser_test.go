package shell

import "testing"

func TestParseEmptyLine(t *testing.T) {
	pc, err := Parse("   ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pc.Argv) != 0 {
		t.Errorf("Argv = %v, want empty", pc.Argv)
	}
}

func TestParseSimpleArgv(t *testing.T) {
	pc, err := Parse("echo hello world")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"echo", "hello", "world"}
	if len(pc.Argv) != len(want) {
		t.Fatalf("Argv = %v, want %v", pc.Argv, want)
	}
	for i := range want {
		if pc.Argv[i] != want[i] {
			t.Errorf("Argv[%d] = %q, want %q", i, pc.Argv[i], want[i])
		}
	}
}

func TestParseQuotedTokens(t *testing.T) {
	pc, err := Parse(`echo "hello world"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pc.Argv) != 2 || pc.Argv[1] != "hello world" {
		t.Errorf("Argv = %v, want [echo, \"hello world\"]", pc.Argv)
	}
}

func TestParseBackgroundMarker(t *testing.T) {
	pc, err := Parse("sleep 5 &")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !pc.Background {
		t.Error("Background = false, want true")
	}
	want := []string{"sleep", "5"}
	if len(pc.Argv) != len(want) || pc.Argv[0] != want[0] || pc.Argv[1] != want[1] {
		t.Errorf("Argv = %v, want %v", pc.Argv, want)
	}
}

func TestParseStdinRedirection(t *testing.T) {
	pc, err := Parse("cat < input.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pc.StdinFile != "input.txt" {
		t.Errorf("StdinFile = %q, want input.txt", pc.StdinFile)
	}
	if len(pc.Argv) != 1 || pc.Argv[0] != "cat" {
		t.Errorf("Argv = %v, want [cat]", pc.Argv)
	}
}

func TestParseStdoutTruncateVsAppend(t *testing.T) {
	pc, err := Parse("echo hi > out.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pc.StdoutFile != "out.txt" || pc.AppendStdout {
		t.Errorf("StdoutFile=%q AppendStdout=%v, want out.txt/false", pc.StdoutFile, pc.AppendStdout)
	}

	pc2, err := Parse("echo hi >> out.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pc2.StdoutFile != "out.txt" || !pc2.AppendStdout {
		t.Errorf("StdoutFile=%q AppendStdout=%v, want out.txt/true", pc2.StdoutFile, pc2.AppendStdout)
	}
}

func TestParseMissingRedirectionTargetErrors(t *testing.T) {
	if _, err := Parse("cat <"); err == nil {
		t.Error("expected error for dangling '<'")
	}
	if _, err := Parse("echo hi >"); err == nil {
		t.Error("expected error for dangling '>'")
	}
}

func TestParseCombinedRedirectionAndBackground(t *testing.T) {
	pc, err := Parse("cat < in.txt > out.txt &")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pc.StdinFile != "in.txt" || pc.StdoutFile != "out.txt" || !pc.Background {
		t.Errorf("pc = %+v, want in.txt/out.txt/background", pc)
	}
	if len(pc.Argv) != 1 || pc.Argv[0] != "cat" {
		t.Errorf("Argv = %v, want [cat]", pc.Argv)
	}
}
