package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestVMTranslator exercises the full Handler pipeline (parse, lower, codegen)
// against small self-contained VM snippets. Rather than byte-matching a full
// program against the external nand2tetris course fixtures and CPU emulator,
// it asserts on the structural properties that the lowering pass guarantees.
func TestVMTranslator(t *testing.T) {
	// asDir forces directory-mode translation (and with it, the bootstrap preamble)
	// even for a single file; it is implied automatically whenever 'files' has more
	// than one entry, since the VM Translator only accepts one positional argument.
	run := func(t *testing.T, files map[string]string, asDir bool) string {
		dir := t.TempDir()
		asDir = asDir || len(files) > 1

		input := ""
		for name, source := range files {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
				t.Fatalf("unable to write fixture %s: %s", name, err)
			}
			if !asDir {
				input = path
			}
		}
		if asDir {
			input = dir
		}

		status := Handler([]string{input}, nil)
		if status != 0 {
			t.Fatalf("unexpected exit status code: expected 0 got %d", status)
		}

		outputPath := strings.TrimSuffix(input, ".vm") + ".asm"
		if asDir {
			outputPath = filepath.Join(dir, filepath.Base(dir)+".asm")
		}

		compiled, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("error reading output file %s: %s", outputPath, err)
		}
		return string(compiled)
	}

	t.Run("SimpleAdd", func(t *testing.T) {
		asm := run(t, map[string]string{
			"SimpleAdd.vm": "push constant 7\npush constant 8\nadd\n",
		}, false)

		for _, want := range []string{"@7", "@8", "@SP"} {
			if !strings.Contains(asm, want) {
				t.Fatalf("expected compiled output to contain %q, got:\n%s", want, asm)
			}
		}
	})

	t.Run("ComparisonLabelsAreWellFormed", func(t *testing.T) {
		asm := run(t, map[string]string{
			"Main.vm": "push constant 1\npush constant 1\neq\npush constant 2\npush constant 2\neq\n",
		}, false)

		for _, line := range strings.Split(asm, "\n") {
			if strings.HasPrefix(line, "(") {
				label := strings.TrimSuffix(strings.TrimPrefix(line, "("), ")")
				if label == "" || strings.ContainsAny(label, "@()") {
					t.Fatalf("malformed comparison label line: %q", line)
				}
			}
		}
	})

	t.Run("GotoLabelsAreFunctionScoped", func(t *testing.T) {
		asm := run(t, map[string]string{
			"Main.vm": strings.Join([]string{
				"function Main.foo 0",
				"label LOOP",
				"goto LOOP",
				"function Main.bar 0",
				"label LOOP",
				"goto LOOP",
			}, "\n"),
		}, false)

		if !strings.Contains(asm, "Main.foo$LOOP") || !strings.Contains(asm, "Main.bar$LOOP") {
			t.Fatalf("expected distinct function-scoped labels in output:\n%s", asm)
		}
	})

	t.Run("StaticSegmentUsesFileStem", func(t *testing.T) {
		asm := run(t, map[string]string{
			"Foo.vm": "push constant 3\npop static 0\n",
			"Bar.vm": "push constant 4\npop static 0\n",
		}, false)

		if !strings.Contains(asm, "Foo.0") || !strings.Contains(asm, "Bar.0") {
			t.Fatalf("expected per-file static symbols in output:\n%s", asm)
		}
	})

	t.Run("BootstrapCallsSysInitInDirectoryMode", func(t *testing.T) {
		asm := run(t, map[string]string{
			"Sys.vm": "function Sys.init 0\npush constant 0\nreturn\n",
		}, true)

		if !strings.Contains(asm, "@256") || !strings.Contains(asm, "@Sys.init") {
			t.Fatalf("expected bootstrap preamble calling Sys.init, got:\n%s", asm)
		}
	})

	t.Run("RejectsNonVmExtension", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "prog.txt")
		if err := os.WriteFile(input, []byte("push constant 1\n"), 0o644); err != nil {
			t.Fatalf("unable to write fixture input: %s", err)
		}

		if status := Handler([]string{input}, nil); status == 0 {
			t.Fatalf("expected a non-zero exit status for a non-'.vm' input")
		}
	})

	t.Run("RejectsDirectoryWithNoVmFiles", func(t *testing.T) {
		dir := t.TempDir()
		if status := Handler([]string{dir}, nil); status == 0 {
			t.Fatalf("expected a non-zero exit status for a directory with no '.vm' files")
		}
	})

	t.Run("FunctionCallAndReturn", func(t *testing.T) {
		asm := run(t, map[string]string{
			"Main.vm": strings.Join([]string{
				"function Main.main 0",
				"push constant 2",
				"call Math.square 1",
				"return",
				"function Math.square 0",
				"push argument 0",
				"push argument 0",
				"call Math.multiply 2",
				"return",
			}, "\n"),
		}, false)

		for _, want := range []string{"@Math.square", "@Math.multiply", "@LCL", "@ARG", "@R13", "@R14"} {
			if !strings.Contains(asm, want) {
				t.Fatalf("expected compiled output to contain %q, got:\n%s", want, asm)
			}
		}
	})
}
