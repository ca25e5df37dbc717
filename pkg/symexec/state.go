// Package symexec executes decoded eBPF+ instructions symbolically over
// a register+memory State, producing branch conditions and memory
// addresses for the path explorer.
package symexec

import "github.com/fprime/bpfwcet/pkg/smt"

const numRegs = 11

// State is one point in the symbolic execution: eleven 64-bit
// general-purpose registers, eleven real-valued floating-point registers,
// and a memory map keyed by the syntactic form of the address expression
// that produced each entry: no aliasing resolution beyond syntactic
// equality.
type State struct {
	Regs  [numRegs]smt.BV
	FRegs [numRegs]smt.Real
	Mem   map[string]memCell
}

type memCell struct {
	Addr smt.BV
	Val  smt.BV
}

// NewEntryState builds the program's initial state: R10 bound to a fresh
// symbolic frame-pointer base, every other register a fresh unconstrained
// symbol.
func NewEntryState(sol smt.Solver) State {
	st := State{Mem: map[string]memCell{}}
	for i := 0; i < numRegs; i++ {
		if i == 10 {
			st.Regs[i] = sol.NewBV("frame_pointer", 64)
		} else {
			st.Regs[i] = sol.NewBV(regName(i), 64)
		}
		st.FRegs[i] = sol.NewReal(fregName(i))
	}
	return st
}

func regName(i int) string  { return "r" + itoa(i) }
func fregName(i int) string { return "f" + itoa(i) }

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return "10"
}

// Fork returns a deep copy of st suitable for an independent DFS branch:
// the register arrays copy by value, and the memory map is copied so
// writes on one branch never leak into the other.
func (st State) Fork() State {
	next := State{Regs: st.Regs, FRegs: st.FRegs, Mem: make(map[string]memCell, len(st.Mem))}
	for k, v := range st.Mem {
		next.Mem[k] = v
	}
	return next
}

// Load reads the value at addr, binding a fresh symbol on first access to
// this exact address expression.
func (st *State) Load(sol smt.Solver, addr smt.BV, width int, name string) smt.BV {
	key := addr.Key()
	if cell, ok := st.Mem[key]; ok {
		return cell.Val
	}
	v := sol.NewBV(name, width)
	st.Mem[key] = memCell{Addr: addr, Val: v}
	return v
}

// Store writes val at addr, overwriting any prior entry at the exact same
// address expression.
func (st *State) Store(addr smt.BV, val smt.BV) {
	st.Mem[addr.Key()] = memCell{Addr: addr, Val: val}
}
