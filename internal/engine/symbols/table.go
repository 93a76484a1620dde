// Package symbols builds the variable and mixin/class index from loaded
// stylesheets.
package symbols

import orderedmap "github.com/wk8/go-ordered-map/v2"

// Mapping is a symbol name to text mapping kept in discovery order.
type Mapping = orderedmap.OrderedMap[string, string]

// Table holds one generation of extracted symbols. The first file to define
// a name owns it; later definitions are ignored.
type Table struct {
	variables   *Mapping
	definitions *Mapping
	// sources maps a symbol to the configured root that reached it.
	sources *Mapping
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		variables:   orderedmap.New[string, string](),
		definitions: orderedmap.New[string, string](),
		sources:     orderedmap.New[string, string](),
	}
}

func setIfAbsent(m *Mapping, key, value string) bool {
	if _, ok := m.Get(key); ok {
		return false
	}
	m.Set(key, value)
	return true
}

// AddVariable registers name unless it already exists.
func (t *Table) AddVariable(name, value, root string) bool {
	if !setIfAbsent(t.variables, name, value) {
		return false
	}
	setIfAbsent(t.sources, name, root)
	return true
}

// AddDefinition registers a mixin or class block unless name already exists.
func (t *Table) AddDefinition(name, block, root string) bool {
	if !setIfAbsent(t.definitions, name, block) {
		return false
	}
	setIfAbsent(t.sources, name, root)
	return true
}

// SetSource records root for name when a restored table carries its own
// source order.
func (t *Table) SetSource(name, root string) { setIfAbsent(t.sources, name, root) }

func (t *Table) Variable(name string) (string, bool)   { return t.variables.Get(name) }
func (t *Table) Definition(name string) (string, bool) { return t.definitions.Get(name) }

// Lookup finds name in the merged namespace, definitions first.
func (t *Table) Lookup(name string) (string, bool) {
	if v, ok := t.definitions.Get(name); ok {
		return v, true
	}
	return t.variables.Get(name)
}

// SourceOf returns the root file that should be imported to use name.
func (t *Table) SourceOf(name string) (string, bool) { return t.sources.Get(name) }

// Variables returns the variable mapping in discovery order.
func (t *Table) Variables() *Mapping { return t.variables }

// Definitions returns the mixin/class mapping in discovery order.
func (t *Table) Definitions() *Mapping { return t.definitions }

// Sources returns the symbol to root mapping.
func (t *Table) Sources() *Mapping { return t.sources }

// Merged layers definitions over variables.
func (t *Table) Merged() *Mapping {
	out := orderedmap.New[string, string]()
	for _, m := range []*Mapping{t.variables, t.definitions} {
		for p := m.Oldest(); p != nil; p = p.Next() {
			out.Set(p.Key, p.Value)
		}
	}
	return out
}

// Len reports the number of distinct symbols across both namespaces.
func (t *Table) Len() int {
	return t.Merged().Len()
}

// Names lists the keys of m in order.
func Names(m *Mapping) []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

func hasKey(m *Mapping, key string) bool {
	_, ok := m.Get(key)
	return ok
}
