package schema

// View is a plain or materialized view. RefreshPolicy is only
// meaningful for materialized views (spec.md §3.2).
type View struct {
	base
	SchemaName    string
	Name          string
	Definition    string
	Materialized  bool
	RefreshPolicy string // e.g. "ON DEMAND" or a cron-like spec surfaced as free text
}

func (v *View) Kind() ObjectKind {
	if v.Materialized {
		return KindMatView
	}
	return KindView
}

// Function covers both functions and procedures; IsProcedure picks
// CREATE FUNCTION vs CREATE PROCEDURE emission. Aggregate-specific
// fields are only populated when AggregateKind is non-empty.
type Function struct {
	base
	SchemaName    string
	Name          string
	ArgTypes      []TypeRef
	ArgNames      []string
	ReturnType    TypeRef
	Language      string
	Body          string
	Volatility    Volatility
	Strict        bool
	IsProcedure   bool
	AggregateKind string // empty for ordinary functions
	AggregateSFunc string
	AggregateStype TypeRef
}

func (f *Function) Kind() ObjectKind {
	if f.IsProcedure {
		return KindProcedure
	}
	return KindFunction
}

type Volatility string

const (
	VolatilityImmutable Volatility = "IMMUTABLE"
	VolatilityStable    Volatility = "STABLE"
	VolatilityVolatile  Volatility = "VOLATILE"
)

// Trigger fires Function on Table for Events during Timing, optionally
// gated by Condition (the WHEN clause).
type Trigger struct {
	base
	SchemaName string
	Name       string
	Table      QualifiedIdentifier
	Function   QualifiedIdentifier
	Timing     TriggerTiming
	Events     []TriggerEvent
	Condition  string
}

func (t *Trigger) Kind() ObjectKind { return KindTrigger }

type TriggerTiming string

const (
	TimingBefore    TriggerTiming = "BEFORE"
	TimingAfter     TriggerTiming = "AFTER"
	TimingInsteadOf TriggerTiming = "INSTEAD OF"
)

type TriggerEvent string

const (
	EventInsert   TriggerEvent = "INSERT"
	EventUpdate   TriggerEvent = "UPDATE"
	EventDelete   TriggerEvent = "DELETE"
	EventTruncate TriggerEvent = "TRUNCATE"
)

// Enum is an ordered label set (CREATE TYPE ... AS ENUM).
type Enum struct {
	base
	SchemaName string
	Name       string
	Labels     []string
}

func (e *Enum) Kind() ObjectKind { return KindEnum }

// Domain is a base type plus constraints and an optional default.
type Domain struct {
	base
	SchemaName string
	Name       string
	BaseType   TypeRef
	NotNull    bool
	Default    string
	Checks     []CheckConstraint
}

func (d *Domain) Kind() ObjectKind { return KindDomain }

// Extension is a CREATE EXTENSION record; version/schema let the
// introspector detect drift against a pre-existing target extension.
type Extension struct {
	base
	Name    string
	Version string
	SchemaName string
}

func (e *Extension) Kind() ObjectKind { return KindExtension }

// Hypertable is TimescaleDB's headline object: a regular Table plus
// partitioning dimensions, compression, retention, and continuous
// aggregates. elefant treats it as a best-effort addition layered on
// top of the base table — absence of the extension degrades to an
// ordinary Table, never a hard failure (spec.md §4.3 "tolerates absence
// of extensions").
type Hypertable struct {
	base
	BaseTable            QualifiedIdentifier
	Dimensions           []HypertableDimension
	CompressionEnabled   bool
	CompressionOrderBy   []string
	CompressionSegmentBy []string
	RetentionInterval    string // e.g. "30 days", empty if no policy
	ContinuousAggregates []ContinuousAggregate
}

func (h *Hypertable) Kind() ObjectKind { return KindHypertable }

type HypertableDimension struct {
	Column      string
	IsTime      bool
	ChunkInterval string // text form, e.g. "7 days" or a number for space partitions
}

// ContinuousAggregate names a materialized view backed by a continuous
// aggregate policy. The introspector never sets PurgedSourceRows, so it
// is always false: purged source rows are not detected, and introspect
// logs a warning for every continuous aggregate instead (spec.md §9 Open
// Question 2).
type ContinuousAggregate struct {
	View            QualifiedIdentifier
	RefreshSchedule string
	PurgedSourceRows bool
}
