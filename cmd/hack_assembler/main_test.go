package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestHackAssembler exercises the full Handler pipeline (parse, lower, codegen)
// against small self-contained assembly snippets rather than the external
// nand2tetris course fixtures, so the module does not depend on anything
// outside its own tree.
func TestHackAssembler(t *testing.T) {
	test := func(t *testing.T, source string, expected []string) {
		dir := t.TempDir()
		input := filepath.Join(dir, "prog.asm")
		output := filepath.Join(dir, "prog.hack")

		if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
			t.Fatalf("unable to write fixture input: %s", err)
		}

		status := Handler([]string{input}, nil)
		if status != 0 {
			t.Fatalf("unexpected exit status code: expected 0 got %d", status)
		}

		compiled, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("error reading output file %s: %s", output, err)
		}

		lines := strings.Split(strings.TrimRight(string(compiled), "\n"), "\n")
		if len(lines) != len(expected) {
			t.Fatalf("expected %d compiled lines, got %d: %v", len(expected), len(lines), lines)
		}
		for i, line := range lines {
			if line != expected[i] {
				t.Fatalf("line %d: expected %q got %q", i, expected[i], line)
			}
		}
	}

	t.Run("Add", func(t *testing.T) {
		source := `
			@2
			D=A
			@3
			D=D+A
			@0
			M=D
		`
		expected := []string{
			"0000000000000010",
			"1110110000010000",
			"0000000000000011",
			"1110000010010000",
			"0000000000000000",
			"1110001100001000",
		}
		test(t, source, expected)
	})

	t.Run("LoopWithLabel", func(t *testing.T) {
		source := `
			(LOOP)
			@LOOP
			0;JMP
		`
		expected := []string{
			"0000000000000000",
			"1110101010000111",
		}
		test(t, source, expected)
	})

	t.Run("VariableAllocationStartsAt16", func(t *testing.T) {
		source := `
			@foo
			D=A
			@bar
			M=D
		`
		expected := []string{
			"0000000000010000",
			"1110110000010000",
			"0000000000010001",
			"1110001100001000",
		}
		test(t, source, expected)
	})

	t.Run("CInstructionWithBothDestAndJump", func(t *testing.T) {
		source := `
			@0
			MD=D+1;JGT
		`
		expected := []string{
			"0000000000000000",
			"1110011111011001",
		}
		test(t, source, expected)
	})

	t.Run("RejectsNonAsmExtension", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "prog.txt")
		if err := os.WriteFile(input, []byte("@0\n"), 0o644); err != nil {
			t.Fatalf("unable to write fixture input: %s", err)
		}

		if status := Handler([]string{input}, nil); status == 0 {
			t.Fatalf("expected a non-zero exit status for a non-'.asm' input")
		}
	})
}
