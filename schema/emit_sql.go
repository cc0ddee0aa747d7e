package schema

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Phase selects which half of an object's DDL to emit, matching spec.md
// §4.2's pre-data/post-data split: structural DDL goes out before data
// load, constraint/index/trigger DDL goes out after.
type Phase int

const (
	PreData Phase = iota
	PostData
)

// EmitDDL writes o's DDL for phase to w. Object kinds with nothing to
// emit in a given phase (e.g. a Sequence has no post-data DDL) write
// nothing and return nil, except that an object carrying a comment gets
// its COMMENT ON statement in post-data when its kind supports one.
func EmitDDL(w io.Writer, o Object, phase Phase) error {
	switch v := o.(type) {
	case *Schema:
		if err := emitSchema(w, v, phase); err != nil {
			return err
		}
	case *Extension:
		if err := emitExtension(w, v, phase); err != nil {
			return err
		}
	case *Enum:
		if err := emitEnum(w, v, phase); err != nil {
			return err
		}
	case *Domain:
		if err := emitDomain(w, v, phase); err != nil {
			return err
		}
	case *Table:
		if err := emitTable(w, v, phase); err != nil {
			return err
		}
	case *Sequence:
		if err := emitSequence(w, v, phase); err != nil {
			return err
		}
	case *Index:
		if err := emitIndex(w, v, phase); err != nil {
			return err
		}
	case *View:
		if err := emitView(w, v, phase); err != nil {
			return err
		}
	case *Function:
		if err := emitFunction(w, v, phase); err != nil {
			return err
		}
	case *Trigger:
		if err := emitTrigger(w, v, phase); err != nil {
			return err
		}
	case *Hypertable:
		if err := emitHypertable(w, v, phase); err != nil {
			return err
		}
	default:
		return fmt.Errorf("schema: EmitDDL: unhandled object kind %T", o)
	}
	return emitComment(w, o, phase)
}

// commentSQLKind maps an ObjectKind to the keyword COMMENT ON expects;
// kinds with no COMMENT ON form (indexes, triggers) return "".
func commentSQLKind(k ObjectKind) string {
	switch k {
	case KindTable:
		return "TABLE"
	case KindSequence:
		return "SEQUENCE"
	case KindView, KindMatView:
		return "VIEW"
	case KindFunction, KindProcedure:
		return "FUNCTION"
	case KindEnum, KindDomain:
		return "TYPE"
	case KindExtension:
		return "EXTENSION"
	case KindSchema:
		return "SCHEMA"
	default:
		return ""
	}
}

// emitComment writes COMMENT ON for o, in post-data, when o carries one
// and its kind supports COMMENT ON (spec.md §4.2 lists comments among
// post-data DDL).
func emitComment(w io.Writer, o Object, phase Phase) error {
	if phase != PostData || o.Comment() == "" {
		return nil
	}
	kindSQL := commentSQLKind(o.Kind())
	if kindSQL == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "COMMENT ON %s %s IS %s;\n", kindSQL, o.Identifier(), QuoteLiteral(o.Comment()))
	return err
}

func emitSchema(w io.Writer, s *Schema, phase Phase) error {
	if phase != PreData {
		return nil
	}
	_, err := fmt.Fprintf(w, "CREATE SCHEMA IF NOT EXISTS %s;\n", QuoteIdentifier(s.Name))
	return err
}

func emitExtension(w io.Writer, e *Extension, phase Phase) error {
	if phase != PreData {
		return nil
	}
	_, err := fmt.Fprintf(w, "CREATE EXTENSION IF NOT EXISTS %s SCHEMA %s VERSION %s;\n",
		QuoteIdentifier(e.Name), QuoteIdentifier(e.SchemaName), QuoteLiteral(e.Version))
	return err
}

func emitEnum(w io.Writer, e *Enum, phase Phase) error {
	if phase != PreData {
		return nil
	}
	labels := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		labels[i] = QuoteLiteral(l)
	}
	_, err := fmt.Fprintf(w, "CREATE TYPE %s AS ENUM (%s);\n",
		QualifyIdentifier(e.SchemaName, e.Name), strings.Join(labels, ", "))
	return err
}

func emitDomain(w io.Writer, d *Domain, phase Phase) error {
	if phase != PreData {
		return nil
	}
	if _, err := fmt.Fprintf(w, "CREATE DOMAIN %s AS %s", QualifyIdentifier(d.SchemaName, d.Name), d.BaseType.Name); err != nil {
		return err
	}
	if d.NotNull {
		if _, err := io.WriteString(w, " NOT NULL"); err != nil {
			return err
		}
	}
	if d.Default != "" {
		if _, err := fmt.Fprintf(w, " DEFAULT %s", d.Default); err != nil {
			return err
		}
	}
	for _, c := range d.Checks {
		if _, err := fmt.Fprintf(w, " CONSTRAINT %s CHECK (%s)", QuoteIdentifier(c.Name), c.Expression); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ";\n")
	return err
}

func emitTable(w io.Writer, t *Table, phase Phase) error {
	if phase == PreData {
		return emitTablePreData(w, t)
	}
	return emitTablePostData(w, t)
}

func emitTablePreData(w io.Writer, t *Table) error {
	qid := QualifyIdentifier(t.SchemaName, t.Name)
	if _, err := fmt.Fprintf(w, "CREATE TABLE %s (\n", qid); err != nil {
		return err
	}
	for i, c := range t.Columns {
		if _, err := io.WriteString(w, "    "); err != nil {
			return err
		}
		if err := emitColumn(w, c); err != nil {
			return err
		}
		if i < len(t.Columns)-1 {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	if _, err := io.WriteString(w, ")"); err != nil {
		return err
	}
	if len(t.InheritsFrom) > 0 {
		parents := make([]string, len(t.InheritsFrom))
		for i, p := range t.InheritsFrom {
			parents[i] = string(p)
		}
		if _, err := fmt.Fprintf(w, " INHERITS (%s)", strings.Join(parents, ", ")); err != nil {
			return err
		}
	}
	if t.Partitioning != "" {
		if _, err := fmt.Fprintf(w, " PARTITION BY %s", t.Partitioning); err != nil {
			return err
		}
	}
	if len(t.StorageParams) > 0 {
		if _, err := fmt.Fprintf(w, " WITH (%s)", formatStorageParams(t.StorageParams)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ";\n")
	return err
}

func emitColumn(w io.Writer, c Column) error {
	if _, err := fmt.Fprintf(w, "%s %s", QuoteIdentifier(c.Name), c.Type.Name); err != nil {
		return err
	}
	if c.Generated != "" {
		_, err := fmt.Fprintf(w, " GENERATED ALWAYS AS (%s) STORED", c.Generated)
		return err
	}
	switch c.Identity {
	case IdentityAlways:
		if _, err := io.WriteString(w, " GENERATED ALWAYS AS IDENTITY"); err != nil {
			return err
		}
	case IdentityByDefault:
		if _, err := io.WriteString(w, " GENERATED BY DEFAULT AS IDENTITY"); err != nil {
			return err
		}
	}
	if c.NotNull {
		if _, err := io.WriteString(w, " NOT NULL"); err != nil {
			return err
		}
	}
	if c.Default != "" && c.Identity == NotIdentity {
		if _, err := fmt.Fprintf(w, " DEFAULT %s", c.Default); err != nil {
			return err
		}
	}
	if c.Collation != "" {
		if _, err := fmt.Fprintf(w, " COLLATE %s", QuoteIdentifier(c.Collation)); err != nil {
			return err
		}
	}
	return nil
}

func emitTablePostData(w io.Writer, t *Table) error {
	qid := QualifyIdentifier(t.SchemaName, t.Name)

	if len(t.PrimaryKey) > 0 {
		cols := quoteAll(t.PrimaryKey)
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD PRIMARY KEY (%s);\n", qid, strings.Join(cols, ", ")); err != nil {
			return err
		}
	}
	for _, u := range t.Uniques {
		cols := quoteAll(u.Columns)
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);\n",
			qid, QuoteIdentifier(u.Name), strings.Join(cols, ", ")); err != nil {
			return err
		}
	}
	for _, c := range t.Checks {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);\n",
			qid, QuoteIdentifier(c.Name), c.Expression); err != nil {
			return err
		}
	}
	for _, fk := range t.ForeignKeys {
		cols := quoteAll(fk.Columns)
		refCols := quoteAll(fk.RefColumns)
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s;\n",
			qid, QuoteIdentifier(fk.Name), strings.Join(cols, ", "), fk.RefTable, strings.Join(refCols, ", "),
			fk.OnUpdate, fk.OnDelete); err != nil {
			return err
		}
	}
	return nil
}

func emitSequence(w io.Writer, s *Sequence, phase Phase) error {
	if phase != PreData {
		return nil
	}
	qid := QualifyIdentifier(s.SchemaName, s.Name)
	if _, err := fmt.Fprintf(w, "CREATE SEQUENCE %s START %d MINVALUE %d MAXVALUE %d INCREMENT %d CACHE %d",
		qid, s.StartValue, s.MinValue, s.MaxValue, s.Increment, s.CacheSize); err != nil {
		return err
	}
	if s.Cycle {
		if _, err := io.WriteString(w, " CYCLE"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, ";\n"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "SELECT setval(%s, %d, true);\n", QuoteLiteral(string(qid)), s.LastValue)
	return err
}

func emitIndex(w io.Writer, idx *Index, phase Phase) error {
	if phase != PostData {
		return nil
	}
	var cols []string
	for _, c := range idx.Columns {
		col := c.Expression
		if col == "" {
			col = QuoteIdentifier(col)
		}
		if c.Desc {
			col += " DESC"
		}
		if c.NullsFirst {
			col += " NULLS FIRST"
		}
		cols = append(cols, col)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	if _, err := fmt.Fprintf(w, "CREATE %sINDEX %s ON %s USING %s (%s)",
		unique, QuoteIdentifier(idx.Name), idx.Table, idx.Method, strings.Join(cols, ", ")); err != nil {
		return err
	}
	if len(idx.Included) > 0 {
		if _, err := fmt.Fprintf(w, " INCLUDE (%s)", strings.Join(quoteAll(idx.Included), ", ")); err != nil {
			return err
		}
	}
	if idx.Predicate != "" {
		if _, err := fmt.Fprintf(w, " WHERE %s", idx.Predicate); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ";\n")
	return err
}

func emitView(w io.Writer, v *View, phase Phase) error {
	qid := QualifyIdentifier(v.SchemaName, v.Name)
	if phase == PreData {
		kw := "VIEW"
		if v.Materialized {
			kw = "MATERIALIZED VIEW"
		}
		_, err := fmt.Fprintf(w, "CREATE %s %s AS %s;\n", kw, qid, v.Definition)
		return err
	}
	if v.Materialized {
		_, err := fmt.Fprintf(w, "REFRESH MATERIALIZED VIEW %s;\n", qid)
		return err
	}
	return nil
}

func emitFunction(w io.Writer, f *Function, phase Phase) error {
	if phase != PreData {
		return nil
	}
	qid := QualifyIdentifier(f.SchemaName, f.Name)
	kw := "FUNCTION"
	if f.IsProcedure {
		kw = "PROCEDURE"
	}
	args := make([]string, len(f.ArgTypes))
	for i, t := range f.ArgTypes {
		name := ""
		if i < len(f.ArgNames) {
			name = f.ArgNames[i] + " "
		}
		args[i] = name + t.Name
	}
	if _, err := fmt.Fprintf(w, "CREATE %s %s(%s)", kw, qid, strings.Join(args, ", ")); err != nil {
		return err
	}
	if !f.IsProcedure {
		if _, err := fmt.Fprintf(w, " RETURNS %s", f.ReturnType.Name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, " LANGUAGE %s", f.Language); err != nil {
		return err
	}
	if f.Strict {
		if _, err := io.WriteString(w, " STRICT"); err != nil {
			return err
		}
	}
	if !f.IsProcedure && f.Volatility != "" {
		if _, err := fmt.Fprintf(w, " %s", f.Volatility); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, " AS $elefant$%s$elefant$;\n", f.Body)
	return err
}

func emitTrigger(w io.Writer, t *Trigger, phase Phase) error {
	if phase != PostData {
		return nil
	}
	events := make([]string, len(t.Events))
	for i, e := range t.Events {
		events[i] = string(e)
	}
	if _, err := fmt.Fprintf(w, "CREATE TRIGGER %s %s %s ON %s",
		QuoteIdentifier(t.Name), t.Timing, strings.Join(events, " OR "), t.Table); err != nil {
		return err
	}
	if t.Condition != "" {
		if _, err := fmt.Fprintf(w, " WHEN (%s)", t.Condition); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, " EXECUTE FUNCTION %s();\n", t.Function)
	return err
}

func emitHypertable(w io.Writer, h *Hypertable, phase Phase) error {
	if phase != PostData {
		return nil
	}
	if len(h.Dimensions) == 0 {
		return nil
	}
	primary := h.Dimensions[0]
	if _, err := fmt.Fprintf(w, "SELECT create_hypertable(%s, %s",
		QuoteLiteral(string(h.BaseTable)), QuoteLiteral(primary.Column)); err != nil {
		return err
	}
	if primary.ChunkInterval != "" {
		if _, err := fmt.Fprintf(w, ", chunk_time_interval => INTERVAL %s", QuoteLiteral(primary.ChunkInterval)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, ");\n"); err != nil {
		return err
	}
	if h.CompressionEnabled {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s SET (timescaledb.compress", h.BaseTable); err != nil {
			return err
		}
		if len(h.CompressionSegmentBy) > 0 {
			if _, err := fmt.Fprintf(w, ", timescaledb.compress_segmentby = %s",
				QuoteLiteral(strings.Join(h.CompressionSegmentBy, ","))); err != nil {
				return err
			}
		}
		if len(h.CompressionOrderBy) > 0 {
			if _, err := fmt.Fprintf(w, ", timescaledb.compress_orderby = %s",
				QuoteLiteral(strings.Join(h.CompressionOrderBy, ","))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, ");\n"); err != nil {
			return err
		}
	}
	if h.RetentionInterval != "" {
		if _, err := fmt.Fprintf(w, "SELECT add_retention_policy(%s, INTERVAL %s);\n",
			QuoteLiteral(string(h.BaseTable)), QuoteLiteral(h.RetentionInterval)); err != nil {
			return err
		}
	}
	for _, ca := range h.ContinuousAggregates {
		if _, err := fmt.Fprintf(w, "SELECT add_continuous_aggregate_policy(%s, schedule_interval => INTERVAL %s);\n",
			QuoteLiteral(string(ca.View)), QuoteLiteral(ca.RefreshSchedule)); err != nil {
			return err
		}
	}
	return nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = QuoteIdentifier(n)
	}
	return out
}

func formatStorageParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = %s", k, params[k])
	}
	return strings.Join(parts, ", ")
}
