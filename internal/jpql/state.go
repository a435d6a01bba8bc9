package jpql

import (
	"fmt"
	"sort"
	"strings"
)

// Phase is the stage of a two-phase generation.
type Phase int

const (
	// Preparing registers parameters, sources and intrinsics.
	Preparing Phase = iota
	// Generating emits text.
	Generating
)

func (p Phase) String() string {
	if p == Preparing {
		return "preparing"
	}
	return "generating"
}

// GenerationState carries one query through preparation and generation. It
// is created per rendered query and discarded once the text is extracted.
type GenerationState struct {
	phase Phase
	buf   strings.Builder

	params     map[*Param]int
	paramOrder []*Param

	aliases     map[*Source]string
	sourceOrder []*Source

	intrinsics map[string]bool
}

// NewGenerationState returns a state in the Preparing phase.
func NewGenerationState() *GenerationState {
	return &GenerationState{
		params:     make(map[*Param]int),
		aliases:    make(map[*Source]string),
		intrinsics: make(map[string]bool),
	}
}

// Phase returns the current phase.
func (st *GenerationState) Phase() Phase {
	return st.phase
}

// StartGenerating ends preparation. Parameters and sources registered so
// far are final.
func (st *GenerationState) StartGenerating() {
	st.phase = Generating
}

// RegisterSource assigns the next alias to src if it has none.
func (st *GenerationState) RegisterSource(src *Source) string {
	if alias, ok := st.aliases[src]; ok {
		return alias
	}
	alias := aliasName(len(st.sourceOrder))
	st.aliases[src] = alias
	st.sourceOrder = append(st.sourceOrder, src)
	return alias
}

// Alias returns the alias of a registered source.
func (st *GenerationState) Alias(src *Source) (string, bool) {
	alias, ok := st.aliases[src]
	return alias, ok
}

// Sources returns the registered sources in alias order.
func (st *GenerationState) Sources() []*Source {
	return st.sourceOrder
}

func (st *GenerationState) registerParam(p *Param) {
	if _, ok := st.params[p]; ok {
		return
	}
	st.params[p] = len(st.paramOrder)
	st.paramOrder = append(st.paramOrder, p)
}

// ParamOrdinal returns the ordinal of a registered parameter node.
func (st *GenerationState) ParamOrdinal(p *Param) (int, bool) {
	n, ok := st.params[p]
	return n, ok
}

// Params returns the registered parameters in ordinal order.
func (st *GenerationState) Params() []*Param {
	return st.paramOrder
}

// Intrinsics returns the names of the engine-specific functions used, in
// sorted order.
func (st *GenerationState) Intrinsics() []string {
	names := make([]string, 0, len(st.intrinsics))
	for name := range st.intrinsics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text returns the text generated so far.
func (st *GenerationState) Text() string {
	return st.buf.String()
}

func (st *GenerationState) write(s string) {
	st.buf.WriteString(s)
}

// aliasName returns A..Z, then A1, B1, ...
func aliasName(i int) string {
	letter := string(rune('A' + i%26))
	if i < 26 {
		return letter
	}
	return fmt.Sprintf("%s%d", letter, i/26)
}
