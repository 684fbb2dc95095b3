package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"n2tc.dev/toolchain/pkg/asm"
	"n2tc.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "The bytecode (.vm) file or a directory of them to be compiled")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	input := args[0]
	info, err := os.Stat(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input: %s\n", err)
		return -1
	}

	// Gathers every Translation Unit (TU), i.e. every '.vm' file to be parsed and lowered;
	// a single file is its own sole TU, a directory is walked for every '.vm' file in it.
	TUs := []string{}
	if info.IsDir() {
		filepath.Walk(input, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(p) != ".vm" {
				return nil // We recurse on dirs and ignore other filetypes
			}
			TUs = append(TUs, p)
			return nil
		})
		if len(TUs) == 0 {
			err := vm.FormatError{Detail: fmt.Sprintf("directory %q contains no '.vm' files", input)}
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}
	} else {
		if !strings.HasSuffix(input, ".vm") {
			err := vm.FormatError{Detail: fmt.Sprintf("input file must have a '.vm' extension, got %q", input)}
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}
		TUs = append(TUs, input)
	}

	// The output is named after the directory when translating a directory, or after the
	// input file's stem otherwise; it always lives alongside the input.
	outputPath := strings.TrimSuffix(input, ".vm") + ".asm"
	if info.IsDir() {
		dirName := filepath.Base(filepath.Clean(input))
		outputPath = filepath.Join(input, dirName+".asm")
	}

	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	// For every file discovered we do the following things
	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it. The
		// module is keyed by the file's stem (not its full basename): that's the same name
		// used to scope the 'static' segment, so 'Foo.vm' has its statics named 'Foo.<i>'.
		stem := strings.TrimSuffix(filepath.Base(tu), ".vm")
		program[stem], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Bootstrap code is prepended in directory mode (whatever the number of .vm files found): it
	// sets the Stack Pointer to 256 and calls 'Sys.init' with 0 args, using the exact same calling
	// convention as any other VM function call. A single translated file is never a complete
	// program on its own by the standard's convention, so it never gets the bootstrap prepended.
	if info.IsDir() {
		asmProgram = append(lowerer.Bootstrap(), asmProgram...)
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
