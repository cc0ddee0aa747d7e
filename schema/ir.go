// Package schema is elefant's intermediate representation (IR) of a
// PostgreSQL database: a forest of schema objects carrying enough
// structure to re-emit DDL in dependency order, independent of how the
// objects were discovered. It is a pure data layer — introspect builds
// it, orchestrator and sqlfile consume it, nothing here talks to the
// network.
//
// Grounded on the catalog-object modeling of
// _examples/other_examples/8444d62e_skeema-skeema (typed per-kind
// structs, one Schema owning typed object collections) and the
// dependency-graph ordering of
// _examples/other_examples/ca1ef074_VardhanThigle-spanner-migration-tool.
package schema

// QualifiedIdentifier is a schema-qualified, already-quoted object name
// such as `"public"."orders"`.
type QualifiedIdentifier string

// TypeRef names a PostgreSQL type by OID plus the modifier PostgreSQL
// attaches to parameterized types (varchar(N), numeric(p,s)).
type TypeRef struct {
	OID      uint32
	Modifier int32
	Name     string // textual type name, written verbatim into emitted DDL
}

// Object is the common surface every IR node implements, letting
// emit_order and the DDL emitters operate generically over heterogeneous
// kinds.
type Object interface {
	Identifier() QualifiedIdentifier
	Kind() ObjectKind
	DependsOn() []QualifiedIdentifier
	Comment() string
}

// ObjectKind discriminates IR node types for emission-phase routing
// (pre-data vs post-data) and for user-facing error messages.
type ObjectKind string

const (
	KindSchema      ObjectKind = "schema"
	KindTable       ObjectKind = "table"
	KindSequence    ObjectKind = "sequence"
	KindIndex       ObjectKind = "index"
	KindView        ObjectKind = "view"
	KindMatView     ObjectKind = "materialized_view"
	KindFunction    ObjectKind = "function"
	KindProcedure   ObjectKind = "procedure"
	KindTrigger     ObjectKind = "trigger"
	KindEnum        ObjectKind = "enum"
	KindDomain      ObjectKind = "domain"
	KindExtension   ObjectKind = "extension"
	KindHypertable  ObjectKind = "hypertable"
	KindConstraint  ObjectKind = "constraint"
)

// base is embedded by every concrete IR node to supply the common
// Object fields without repeating boilerplate accessors.
type base struct {
	QualID  QualifiedIdentifier
	Deps    []QualifiedIdentifier
	Cmt     string
	SrcOID  uint32 // source_catalog_oid: cross-reference only, never emitted
}

func (b base) Identifier() QualifiedIdentifier    { return b.QualID }
func (b base) DependsOn() []QualifiedIdentifier   { return b.Deps }
func (b base) Comment() string                    { return b.Cmt }

// SetIdentity assigns the qualified identifier and dependency edges
// introspect computes once per object, after the kind-specific fields
// are filled in. It is the one mutator base exposes; every other field
// is set directly by the introspector or a test.
func (b *base) SetIdentity(id QualifiedIdentifier, deps []QualifiedIdentifier) {
	b.QualID = id
	b.Deps = deps
}

// SetComment records the pg_description comment resolved for this
// object, if any.
func (b *base) SetComment(c string) { b.Cmt = c }

// AddDependency appends a dependency edge discovered by a later
// introspection pass (e.g. constraints.go resolving FK targets after
// tables.go already assigned identities), without disturbing the
// identifier SetIdentity assigned earlier. Duplicate edges are ignored.
func (b *base) AddDependency(dep QualifiedIdentifier) {
	for _, d := range b.Deps {
		if d == dep {
			return
		}
	}
	b.Deps = append(b.Deps, dep)
}

// SetSourceOID records the catalog OID this object was discovered from,
// for cross-reference only; it is never emitted as DDL.
func (b *base) SetSourceOID(oid uint32) { b.SrcOID = oid }

// SourceOID returns the catalog OID this object was discovered from, so
// later introspection passes (constraints, indexes, comments) can
// cross-reference pg_constraint.conrelid/pg_description.objoid back to
// the Table/Sequence/etc. already built from an earlier pass.
func (b base) SourceOID() uint32 { return b.SrcOID }

// Schema is the root grouping object; a database's IR is a Forest of
// these.
type Schema struct {
	base
	Name string
}

func (s *Schema) Kind() ObjectKind { return KindSchema }

// Forest is the full IR for one database: every object discovered,
// independent of emission order. emit_order derives a linear ordering
// from Objects() on demand; Forest itself makes no ordering promises.
type Forest struct {
	Schemas    []*Schema
	Tables     []*Table
	Sequences  []*Sequence
	Indexes    []*Index
	Views      []*View
	Functions  []*Function
	Triggers   []*Trigger
	Enums      []*Enum
	Domains    []*Domain
	Extensions []*Extension
	Hypertables []*Hypertable
}

// Objects returns every node in the forest as a flat, kind-agnostic
// slice for emit_order to sort.
func (f *Forest) Objects() []Object {
	var out []Object
	for _, s := range f.Schemas {
		out = append(out, s)
	}
	for _, t := range f.Tables {
		out = append(out, t)
	}
	for _, s := range f.Sequences {
		out = append(out, s)
	}
	for _, i := range f.Indexes {
		out = append(out, i)
	}
	for _, v := range f.Views {
		out = append(out, v)
	}
	for _, fn := range f.Functions {
		out = append(out, fn)
	}
	for _, tr := range f.Triggers {
		out = append(out, tr)
	}
	for _, e := range f.Enums {
		out = append(out, e)
	}
	for _, d := range f.Domains {
		out = append(out, d)
	}
	for _, e := range f.Extensions {
		out = append(out, e)
	}
	for _, h := range f.Hypertables {
		out = append(out, h)
	}
	return out
}

// ByIdentifier indexes every object in the forest by its qualified
// identifier. EmitOrder builds its own index and does not call it.
func (f *Forest) ByIdentifier() map[QualifiedIdentifier]Object {
	m := make(map[QualifiedIdentifier]Object)
	for _, o := range f.Objects() {
		m[o.Identifier()] = o
	}
	return m
}
