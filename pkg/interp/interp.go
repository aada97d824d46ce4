// Package interp implements the fetch-decode-execute loop: register
// file, program counter, ISA semantics, host syscalls, and the
// branch-prediction hook.
package interp

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/Lavezza99/risc32sim/pkg/decode"
	"github.com/Lavezza99/risc32sim/pkg/memory"
	"github.com/Lavezza99/risc32sim/pkg/predict"
)

// NumRegisters is the size of the general-purpose register file.
// Register 0 is hardwired to zero.
const NumRegisters = 32

// The following errors are the two error kinds the
// interpreter can stop on. They are sentinel values: the interpreter
// never panics, it clears its running flag and returns whatever
// retirement count accumulated, alongside one of these wrapped in
// context.
var (
	// ErrDecode indicates an unknown opcode or an unknown
	// sub-encoding within a known opcode.
	ErrDecode = errors.New("interp: decode failure")

	// ErrSyscall indicates an ecall with an unsupported a7 value.
	ErrSyscall = errors.New("interp: unsupported syscall")
)

// Registers with the ABI-conventional purposes referenced by ecall
// dispatch (a7 is the syscall number, a0 the argument/return slot).
const (
	regA0 = 10
	regA7 = 17
)

// Syscall numbers recognized by ecall.
const (
	sysGetchar = 1
	sysPutchar = 2
	sysExit1   = 3
	sysExit2   = 93
)

// Host is the host-syscall gateway: stdin/stdout for getchar/putchar.
// Both fields must be set; a nil *Host in Options is what selects
// os.Stdin/os.Stdout.
type Host struct {
	In  *bufio.Reader
	Out *bufio.Writer
}

func defaultHost() *Host {
	return &Host{In: bufio.NewReader(os.Stdin), Out: bufio.NewWriter(os.Stdout)}
}

// Result is the outcome of a simulate call: the retirement count
// the fetch-decode-execute loop accumulates. When execution stopped due
// to a decode/syscall failure rather than a normal ecall exit, Run
// returns the error that stopped it alongside the Result.
type Result struct {
	Retired uint64
}

// Options configures a Machine beyond its required memory and entry pc.
type Options struct {
	// Predictor is borrowed for the duration of the run and never
	// closed by the interpreter; the caller owns its lifecycle. Nil
	// means "run without a predictor": no prediction work happens and
	// Stats is left untouched (testable property 7).
	Predictor predict.Predictor

	// Stats accumulates branch hit/miss counts when Predictor is set.
	// May be nil even when Predictor is set, in which case statistics
	// are simply not recorded.
	Stats *predict.Stats

	// Host services getchar/putchar. Nil uses os.Stdin/os.Stdout.
	Host *Host

	// Log receives decode-failure and unsupported-syscall
	// diagnostics. Nil uses a new stderr logger with no prefix and no
	// flags, matching cmd/sim's own logging setup.
	Log *log.Logger
}

// Machine is one interpreter run's state: register file and pc. Both
// are local to a single call to Run and never shared across runs.
type Machine struct {
	Regs [NumRegisters]int32
	PC   uint32

	mem  memory.Memory
	opts Options
}

// New creates a Machine ready to run from entry at the given pc. The
// memory object is borrowed for the run's duration; the caller must
// not access it concurrently.
func New(mem memory.Memory, entry uint32, opts Options) *Machine {
	if opts.Host == nil {
		opts.Host = defaultHost()
	}
	if opts.Log == nil {
		opts.Log = log.New(os.Stderr, "", 0)
	}
	return &Machine{PC: entry, mem: mem, opts: opts}
}

// writeback stores v into register rd, unless rd is the zero
// register, in which case the write is silently dropped: a
// skip-the-write guard rather than a post-hoc "force regs[0]=0".
func (m *Machine) writeback(rd uint32, v int32) {
	if rd != 0 {
		m.Regs[rd] = v
	}
}

func (m *Machine) reg(r uint32) int32 {
	return m.Regs[r]
}

// Run executes instructions until the running flag is cleared, either
// by ecall exit (3 or 93) or an unrecoverable decode/syscall failure,
// and returns the retirement count accumulated so far. A non-nil
// error indicates the latter; the count is valid either way.
func (m *Machine) Run() (Result, error) {
	var retired uint64
	for {
		addr := m.PC
		inst := m.mem.ReadWord(addr)
		m.PC = addr + 4
		retired++

		if err := m.step(addr, inst); err != nil {
			if errors.Is(err, errHalt) {
				return Result{Retired: retired}, nil
			}
			return Result{Retired: retired}, err
		}
	}
}

// errHalt is the internal sentinel that unwinds the loop on a normal
// ecall exit, distinct from the caller-visible decode/syscall errors.
var errHalt = errors.New("interp: halted")

func (m *Machine) step(addr, inst uint32) error {
	f := decode.Decode(inst)
	r1, r2 := m.reg(f.Rs1), m.reg(f.Rs2)

	switch f.Opcode {
	case 0x37: // LUI
		m.writeback(f.Rd, f.ImmU)
	case 0x17: // AUIPC
		m.writeback(f.Rd, int32(addr+uint32(f.ImmU)))
	case 0x6f: // JAL
		m.writeback(f.Rd, int32(addr+4))
		m.PC = uint32(int32(addr) + f.ImmJ)
	case 0x67: // JALR
		target := (uint32(r1+f.ImmI)) &^ 1
		m.writeback(f.Rd, int32(addr+4))
		m.PC = target
	case 0x63: // Branches
		return m.execBranch(addr, f, r1, r2)
	case 0x03: // Loads
		return m.execLoad(addr, f, r1)
	case 0x23: // Stores
		return m.execStore(addr, f, r1, r2)
	case 0x13: // OP-IMM
		return m.execOpImm(addr, inst, f, r1)
	case 0x33: // OP / RV32M
		return m.execOp(addr, f, r1, r2)
	case 0x73: // SYSTEM
		return m.execSystem(addr, inst, f)
	default:
		m.opts.Log.Printf("interp: unknown opcode 0x%x at 0x%08x", f.Opcode, addr)
		return fmt.Errorf("%w: opcode 0x%x at 0x%08x", ErrDecode, f.Opcode, addr)
	}
	return nil
}

func (m *Machine) execBranch(addr uint32, f decode.Fields, r1, r2 int32) error {
	var predicted predict.Outcome
	havePredictor := m.opts.Predictor != nil
	if havePredictor {
		target := uint32(int32(addr) + f.ImmB)
		if ta, ok := m.opts.Predictor.(predict.TargetAware); ok {
			predicted = ta.PredictTarget(addr, target)
		} else {
			predicted = m.opts.Predictor.Predict(addr)
		}
	}

	var actual bool
	switch f.Funct3 {
	case 0x0:
		actual = r1 == r2 // BEQ
	case 0x1:
		actual = r1 != r2 // BNE
	case 0x4:
		actual = r1 < r2 // BLT
	case 0x5:
		actual = r1 >= r2 // BGE
	case 0x6:
		actual = uint32(r1) < uint32(r2) // BLTU
	case 0x7:
		actual = uint32(r1) >= uint32(r2) // BGEU
	default:
		m.opts.Log.Printf("interp: unknown branch funct3 0x%x at 0x%08x", f.Funct3, addr)
		return fmt.Errorf("%w: branch funct3 0x%x at 0x%08x", ErrDecode, f.Funct3, addr)
	}
	actualOutcome := predict.Outcome(actual)

	if havePredictor {
		if m.opts.Stats != nil {
			m.opts.Stats.Record(predicted, actualOutcome)
		}
		m.opts.Predictor.Update(addr, actualOutcome)
	}

	if actual {
		m.PC = uint32(int32(addr) + f.ImmB)
	}
	return nil
}

func (m *Machine) execLoad(addr uint32, f decode.Fields, r1 int32) error {
	eff := uint32(r1 + f.ImmI)
	var val int32
	switch f.Funct3 {
	case 0x0: // LB
		val = decode.SignExtend(uint32(m.mem.ReadByte(eff)), 8)
	case 0x1: // LH
		val = decode.SignExtend(uint32(m.mem.ReadHalf(eff)), 16)
	case 0x2: // LW
		val = int32(m.mem.ReadWord(eff))
	case 0x4: // LBU
		val = int32(m.mem.ReadByte(eff))
	case 0x5: // LHU
		val = int32(m.mem.ReadHalf(eff))
	default:
		m.opts.Log.Printf("interp: unknown load funct3 0x%x at 0x%08x", f.Funct3, addr)
		return fmt.Errorf("%w: load funct3 0x%x at 0x%08x", ErrDecode, f.Funct3, addr)
	}
	m.writeback(f.Rd, val)
	return nil
}

func (m *Machine) execStore(addr uint32, f decode.Fields, r1, r2 int32) error {
	eff := uint32(r1 + f.ImmS)
	switch f.Funct3 {
	case 0x0: // SB
		m.mem.WriteByte(eff, byte(r2))
	case 0x1: // SH
		m.mem.WriteHalf(eff, uint16(r2))
	case 0x2: // SW
		m.mem.WriteWord(eff, uint32(r2))
	default:
		m.opts.Log.Printf("interp: unknown store funct3 0x%x at 0x%08x", f.Funct3, addr)
		return fmt.Errorf("%w: store funct3 0x%x at 0x%08x", ErrDecode, f.Funct3, addr)
	}
	return nil
}

func (m *Machine) execOpImm(addr, inst uint32, f decode.Fields, r1 int32) error {
	var res int32
	switch f.Funct3 {
	case 0x0: // ADDI
		res = r1 + f.ImmI
	case 0x2: // SLTI
		res = boolToInt32(r1 < f.ImmI)
	case 0x3: // SLTIU
		res = boolToInt32(uint32(r1) < uint32(f.ImmI))
	case 0x4: // XORI
		res = r1 ^ f.ImmI
	case 0x6: // ORI
		res = r1 | f.ImmI
	case 0x7: // ANDI
		res = r1 & f.ImmI
	case 0x1: // SLLI
		res = int32(uint32(r1) << decode.Shamt(inst))
	case 0x5:
		shamt := decode.Shamt(inst)
		switch f.Funct7 {
		case 0x00: // SRLI
			res = int32(uint32(r1) >> shamt)
		case 0x20: // SRAI
			res = r1 >> shamt
		default:
			m.opts.Log.Printf("interp: unknown OP-IMM shift funct7 0x%x at 0x%08x", f.Funct7, addr)
			return fmt.Errorf("%w: OP-IMM shift funct7 0x%x at 0x%08x", ErrDecode, f.Funct7, addr)
		}
	default:
		m.opts.Log.Printf("interp: unknown OP-IMM funct3 0x%x at 0x%08x", f.Funct3, addr)
		return fmt.Errorf("%w: OP-IMM funct3 0x%x at 0x%08x", ErrDecode, f.Funct3, addr)
	}
	m.writeback(f.Rd, res)
	return nil
}

func (m *Machine) execOp(addr uint32, f decode.Fields, r1, r2 int32) error {
	var res int32
	switch f.Funct7 {
	case 0x00, 0x20:
		switch f.Funct3 {
		case 0x0: // ADD / SUB
			if f.Funct7 == 0x00 {
				res = r1 + r2
			} else {
				res = r1 - r2
			}
		case 0x1: // SLL
			res = int32(uint32(r1) << (uint32(r2) & 0x1f))
		case 0x2: // SLT
			res = boolToInt32(r1 < r2)
		case 0x3: // SLTU
			res = boolToInt32(uint32(r1) < uint32(r2))
		case 0x4: // XOR
			res = r1 ^ r2
		case 0x5: // SRL / SRA
			if f.Funct7 == 0x00 {
				res = int32(uint32(r1) >> (uint32(r2) & 0x1f))
			} else {
				res = r1 >> (uint32(r2) & 0x1f)
			}
		case 0x6: // OR
			res = r1 | r2
		case 0x7: // AND
			res = r1 & r2
		default:
			m.opts.Log.Printf("interp: unknown OP funct3 0x%x at 0x%08x", f.Funct3, addr)
			return fmt.Errorf("%w: OP funct3 0x%x at 0x%08x", ErrDecode, f.Funct3, addr)
		}
	case 0x01: // RV32M
		u1, u2 := uint32(r1), uint32(r2)
		switch f.Funct3 {
		case 0x0: // MUL
			res = r1 * r2
		case 0x4: // DIV
			switch {
			case r2 == 0:
				res = -1
			case r1 == math.MinInt32 && r2 == -1:
				res = math.MinInt32
			default:
				res = r1 / r2
			}
		case 0x5: // DIVU
			if u2 == 0 {
				res = -1
			} else {
				res = int32(u1 / u2)
			}
		case 0x6: // REM
			switch {
			case r2 == 0:
				res = r1
			case r1 == math.MinInt32 && r2 == -1:
				res = 0
			default:
				res = r1 % r2
			}
		case 0x7: // REMU
			if u2 == 0 {
				res = int32(u1)
			} else {
				res = int32(u1 % u2)
			}
		default:
			m.opts.Log.Printf("interp: unknown M-extension funct3 0x%x at 0x%08x", f.Funct3, addr)
			return fmt.Errorf("%w: M-extension funct3 0x%x at 0x%08x", ErrDecode, f.Funct3, addr)
		}
	default:
		m.opts.Log.Printf("interp: unknown OP funct7 0x%x at 0x%08x", f.Funct7, addr)
		return fmt.Errorf("%w: OP funct7 0x%x at 0x%08x", ErrDecode, f.Funct7, addr)
	}
	m.writeback(f.Rd, res)
	return nil
}

func (m *Machine) execSystem(addr, inst uint32, f decode.Fields) error {
	if f.Funct3 != 0 || inst>>20 != 0 {
		m.opts.Log.Printf("interp: unknown SYSTEM instruction at 0x%08x", addr)
		return fmt.Errorf("%w: SYSTEM instruction at 0x%08x", ErrDecode, addr)
	}
	return m.ecall(addr)
}

func (m *Machine) ecall(addr uint32) error {
	switch m.Regs[regA7] {
	case sysGetchar:
		ch, err := m.opts.Host.In.ReadByte()
		if err != nil {
			m.Regs[regA0] = -1
			return nil
		}
		m.Regs[regA0] = int32(ch)
		return nil
	case sysPutchar:
		m.opts.Host.Out.WriteByte(byte(m.Regs[regA0]))
		m.opts.Host.Out.Flush()
		return nil
	case sysExit1, sysExit2:
		return errHalt
	default:
		m.opts.Log.Printf("interp: unknown ecall %d at 0x%08x", m.Regs[regA7], addr)
		return fmt.Errorf("%w: ecall %d at 0x%08x", ErrSyscall, m.Regs[regA7], addr)
	}
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
