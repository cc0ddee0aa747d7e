package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/schema"
)

func newTable(id schema.QualifiedIdentifier, deps ...schema.QualifiedIdentifier) *schema.Table {
	t := &schema.Table{SchemaName: "public"}
	t.SetIdentity(id, deps)
	return t
}

func TestEmitOrderRespectsForeignKeyDependencies(t *testing.T) {
	orders := newTable("public.orders", "public.customers")
	customers := newTable("public.customers")
	lineItems := newTable("public.line_items", "public.orders", "public.products")
	products := newTable("public.products")

	forest := &schema.Forest{Tables: []*schema.Table{orders, lineItems, customers, products}}

	order, err := schema.EmitOrder(forest)
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[schema.QualifiedIdentifier]int)
	for i, o := range order {
		pos[o.Identifier()] = i
	}

	require.Less(t, pos["public.customers"], pos["public.orders"])
	require.Less(t, pos["public.orders"], pos["public.line_items"])
	require.Less(t, pos["public.products"], pos["public.line_items"])
}

func TestEmitOrderDetectsCycle(t *testing.T) {
	a := newTable("public.a", "public.b")
	b := newTable("public.b", "public.a")

	forest := &schema.Forest{Tables: []*schema.Table{a, b}}

	_, err := schema.EmitOrder(forest)
	require.Error(t, err)

	var elefErr *elefanterrors.Error
	require.ErrorAs(t, err, &elefErr)
	require.Equal(t, elefanterrors.PlanError, elefErr.Kind)
}

func TestEmitOrderIgnoresDanglingDependency(t *testing.T) {
	orphan := newTable("public.orphan", "public.does_not_exist")
	forest := &schema.Forest{Tables: []*schema.Table{orphan}}

	order, err := schema.EmitOrder(forest)
	require.NoError(t, err)
	require.Len(t, order, 1)
}
