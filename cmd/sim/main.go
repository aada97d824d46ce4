// Command sim is the RISC-V simulator CLI: it loads an ELF32
// executable, runs it to completion under the interpreter, and
// optionally disassembles it, drives a branch predictor, and emits a
// profile.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lavezza99/risc32sim/pkg/disasm"
	"github.com/Lavezza99/risc32sim/pkg/interp"
	"github.com/Lavezza99/risc32sim/pkg/loader"
	"github.com/Lavezza99/risc32sim/pkg/memory"
	"github.com/Lavezza99/risc32sim/pkg/predict"
	"github.com/Lavezza99/risc32sim/pkg/report"
)

func main() {
	log.SetFlags(0)
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	disasmOnly  bool
	logFile     string
	summaryFile string
	profFile    string
	predKind    string
	predSize    int
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "sim <elf-file> [-- prog-args...]",
		Short: "Run or disassemble a 32-bit RISC-V (RV32IM) ELF executable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.disasmOnly, "disasm", "d", false, "disassemble the text segment and exit")
	flags.StringVarP(&opts.logFile, "log", "l", "", "write diagnostics and the run summary to this file")
	flags.StringVarP(&opts.summaryFile, "summary", "s", "", "write the run summary to this file")
	flags.StringVarP(&opts.profFile, "profile", "p", "", "write a branch-predictor profile to this file")
	flags.StringVarP(&opts.predKind, "predictor", "b", "", "branch predictor: nt|btfnt|bimodal|gshare")
	flags.IntVar(&opts.predSize, "predictor-size", 0, "table size for bimodal/gshare (must be a power of two)")

	return cmd
}

func run(args []string, opts options) error {
	elfPath := args[0]
	progArgs := args[1:]

	mem := memory.New()
	prog, symbols, err := loader.Load(mem, elfPath)
	if err != nil {
		return err
	}
	loader.WriteArgs(mem, append([]string{elfPath}, progArgs...))

	if opts.disasmOnly {
		disassembleToStdout(mem, prog, symbols)
		return nil
	}

	logger, closeLog, err := openLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	var pred predict.Predictor
	if opts.predKind != "" {
		p, ok := predict.New(predict.Kind(opts.predKind), opts.predSize)
		if !ok {
			logger.Printf("sim: could not build predictor %q, running without one", opts.predKind)
		} else {
			pred = p
			defer pred.Close()
		}
	}

	var stats predict.Stats
	machine := interp.New(mem, prog.Entry, interp.Options{
		Predictor: pred,
		Stats:     &stats,
		Log:       logger,
	})

	start := time.Now()
	result, runErr := machine.Run()
	elapsed := time.Since(start)

	if err := writeSummary(opts, result.Retired, elapsed); err != nil {
		return err
	}
	if opts.profFile != "" {
		if err := writeProfile(opts, result.Retired, stats); err != nil {
			return err
		}
	}

	return runErr
}

func disassembleToStdout(mem *memory.Flat, prog loader.ProgramInfo, symbols *loader.Symbols) {
	for addr := prog.TextStart; addr < prog.TextEnd; addr += 4 {
		inst := mem.ReadWord(addr)
		fmt.Printf("%8x : %08X       %s\n", addr, inst, disasm.Disassemble(addr, inst, symbols))
	}
}

func openLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(os.Stderr, "", 0), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("sim: could not open logfile: %w", err)
	}
	return log.New(f, "", 0), func() { f.Close() }, nil
}

func writeSummary(opts options, retired uint64, elapsed time.Duration) error {
	dest := opts.summaryFile
	if dest == "" {
		dest = opts.logFile
	}
	if dest == "" {
		return report.WriteSummary(os.Stdout, retired, elapsed)
	}
	// The log file is already open and may hold diagnostics: append
	// to it rather than truncating it.
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if dest == opts.logFile {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(dest, flag, 0o666)
	if err != nil {
		return fmt.Errorf("sim: could not open summary file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := report.WriteSummary(w, retired, elapsed); err != nil {
		return err
	}
	return w.Flush()
}

func writeProfile(opts options, retired uint64, stats predict.Stats) error {
	f, err := os.Create(opts.profFile)
	if err != nil {
		return fmt.Errorf("sim: could not open profile file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	sized := opts.predKind == string(predict.KindBimodal) || opts.predKind == string(predict.KindGShare)
	if err := report.WriteProfile(w, opts.predKind, opts.predSize, sized, retired, stats); err != nil {
		return err
	}
	return w.Flush()
}
