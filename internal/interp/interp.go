package interp

import (
	"slices"

	"github.com/roach88/lambdaq/internal/bytecode"
	"github.com/roach88/lambdaq/internal/ir"
	"github.com/roach88/lambdaq/internal/symbolic"
)

// DefaultMaxSteps bounds the number of instructions executed across all
// continuations of one run.
const DefaultMaxSteps = 10000

// Env describes the closure being interpreted.
//
// Local slots are laid out with the captured values first, followed by
// the closure arguments. Captured slot i holds ParamRef{Slot: i}; argument
// j holds Arg{Index: j}.
type Env struct {
	Args     []ir.Type
	Captured []ir.Type
	Schema   *ir.Schema

	// Context describes how the closure result is consumed. A filter
	// runs with ExpectingBoolean set.
	Context symbolic.Context

	// MaxSteps overrides DefaultMaxSteps when positive.
	MaxSteps int
}

// Path is one way through the closure body: the conditions under which it
// is taken and the value it returns.
type Path struct {
	Conds []symbolic.Value
	Value symbolic.Value
}

// Condition returns the conjunction of the path conditions.
func (p Path) Condition() symbolic.Value {
	return symbolic.AndAll(p.Conds...)
}

// Result holds every return path of a run, in instruction order of their
// return sites.
type Result struct {
	Paths []Path

	// Dropped holds the errors of paths that failed while others
	// completed.
	Dropped []error

	// Steps is the number of instructions executed.
	Steps int
}

// continuation is the machine state of one path.
type continuation struct {
	pc     int
	stack  []symbolic.Value
	locals []symbolic.Value
	conds  []symbolic.Value
	ctx    symbolic.Context
}

func (c *continuation) fork(pc int, cond symbolic.Value) *continuation {
	next := &continuation{
		pc:     pc,
		stack:  slices.Clone(c.stack),
		locals: slices.Clone(c.locals),
		conds:  slices.Clone(c.conds),
		ctx:    c.ctx.Copy(),
	}
	if cond != nil && !symbolic.IsTrue(cond) {
		next.conds = append(next.conds, cond)
	}
	return next
}

func (c *continuation) push(v symbolic.Value) {
	c.stack = append(c.stack, v)
}

func (c *continuation) pop() (symbolic.Value, error) {
	if len(c.stack) == 0 {
		return nil, ir.NewUnsupportedBytecode("stack underflow at %d", c.pc)
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v, nil
}

// popN pops n values and returns them in push order.
func (c *continuation) popN(n int) ([]symbolic.Value, error) {
	if len(c.stack) < n {
		return nil, ir.NewUnsupportedBytecode("stack underflow at %d", c.pc)
	}
	vs := slices.Clone(c.stack[len(c.stack)-n:])
	c.stack = c.stack[:len(c.stack)-n]
	return vs, nil
}

// machine runs one program.
type machine struct {
	prog     *bytecode.Program
	env      Env
	maxSteps int
	steps    int

	pending map[int][]*continuation
	result  *Result
}

// Run interprets prog symbolically and returns every return path.
//
// Execution is a worklist over continuations ordered by program counter.
// Since only forward branches are accepted, every continuation that can
// reach an instruction is queued before that instruction runs, which is
// where continuations with identical stacks and locals are merged.
//
// Run fails when every path fails, returning the first error. When only
// some paths fail their errors are kept in Result.Dropped.
func Run(prog *bytecode.Program, env Env) (*Result, error) {
	need := len(env.Captured) + len(env.Args)
	if prog.MaxLocals < need {
		return nil, ir.NewUnsupportedBytecode("program declares %d locals, closure needs %d", prog.MaxLocals, need)
	}

	m := &machine{
		prog:     prog,
		env:      env,
		maxSteps: DefaultMaxSteps,
		pending:  make(map[int][]*continuation),
		result:   &Result{},
	}
	if env.MaxSteps > 0 {
		m.maxSteps = env.MaxSteps
	}

	locals := make([]symbolic.Value, prog.MaxLocals)
	for i, t := range env.Captured {
		locals[i] = &symbolic.ParamRef{Slot: i, T: env.Schema.Resolve(t)}
	}
	for j, t := range env.Args {
		locals[len(env.Captured)+j] = &symbolic.Arg{Index: j, T: env.Schema.Resolve(t)}
	}
	m.enqueue(&continuation{pc: 0, locals: locals, ctx: env.Context.Copy()})

	for len(m.pending) > 0 {
		pc := m.nextPC()
		group := m.pending[pc]
		delete(m.pending, pc)

		for _, c := range merge(group) {
			if m.steps >= m.maxSteps {
				return nil, ir.NewUnsupportedOperation("step budget of %d instructions exhausted", m.maxSteps)
			}
			m.steps++
			if err := m.step(c); err != nil {
				if !isPathError(err) {
					return nil, err
				}
				m.result.Dropped = append(m.result.Dropped, err)
			}
		}
	}

	m.result.Steps = m.steps
	if len(m.result.Paths) == 0 {
		if len(m.result.Dropped) > 0 {
			return nil, m.result.Dropped[0]
		}
		return nil, ir.NewUnsupportedBytecode("closure has no return path")
	}
	return m.result, nil
}

// isPathError reports whether err only invalidates the path that raised
// it. Malformed streams and exhausted budgets fail the whole run.
func isPathError(err error) bool {
	return ir.IsUnsupportedOperation(err) || ir.IsTypeMismatch(err)
}

func (m *machine) enqueue(c *continuation) {
	m.pending[c.pc] = append(m.pending[c.pc], c)
}

func (m *machine) nextPC() int {
	lowest := -1
	for pc := range m.pending {
		if lowest < 0 || pc < lowest {
			lowest = pc
		}
	}
	return lowest
}

// merge combines continuations that reached the same instruction with
// structurally equal stacks and locals. The merged path condition keeps
// the common prefix of the inputs and ORs their remaining conditions.
// Continuations with different machine state stay separate.
func merge(group []*continuation) []*continuation {
	if len(group) < 2 {
		return group
	}
	var out []*continuation
	used := make([]bool, len(group))
	for i, c := range group {
		if used[i] {
			continue
		}
		same := []*continuation{c}
		for j := i + 1; j < len(group); j++ {
			if !used[j] && sameState(c, group[j]) {
				same = append(same, group[j])
				used[j] = true
			}
		}
		out = append(out, mergeConditions(same))
	}
	return out
}

func sameState(a, b *continuation) bool {
	return symbolic.EqualAll(a.stack, b.stack) && symbolic.EqualAll(a.locals, b.locals)
}

func mergeConditions(cs []*continuation) *continuation {
	if len(cs) == 1 {
		return cs[0]
	}
	prefix := len(cs[0].conds)
	for _, c := range cs[1:] {
		n := 0
		for n < prefix && n < len(c.conds) && symbolic.Equal(cs[0].conds[n], c.conds[n]) {
			n++
		}
		prefix = n
	}

	var either symbolic.Value = symbolic.False
	for _, c := range cs {
		either = symbolic.Or(either, symbolic.AndAll(c.conds[prefix:]...))
	}

	merged := cs[0].fork(cs[0].pc, nil)
	merged.conds = merged.conds[:prefix]
	if !symbolic.IsTrue(either) {
		merged.conds = append(merged.conds, either)
	}
	return merged
}
