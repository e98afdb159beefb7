package analyze

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parqtable/parqtable/internal/metadata"
	"github.com/parqtable/parqtable/internal/predicate"
)

func testBindings() *metadata.Bindings {
	return &metadata.Bindings{
		Fields: map[string]metadata.ColumnBinding{
			"Tenant": {FieldName: "Tenant", ParquetName: "tenant", Kind: metadata.Partition},
			"Day":    {FieldName: "Day", ParquetName: "day", Kind: metadata.Partition},
			"UserID": {FieldName: "UserID", ParquetName: "user_id", Kind: metadata.Data, Indexed: true},
			"Amount": {FieldName: "Amount", ParquetName: "amount", Kind: metadata.Data},
		},
		Indexed: map[string]metadata.IndexedDefinition{
			"UserID": {FieldName: "UserID", ColumnName: "user_id"},
		},
		Partitions: map[string]struct{}{"tenant": {}, "day": {}},
	}
}

func TestAnalyzeClassifiesPartitionAndIndexedFilters(t *testing.T) {
	filter := predicate.And(
		predicate.Field("Tenant").Eq("acme"),
		predicate.Field("UserID").Eq("u1"),
		predicate.Field("Amount").Gt(10),
	)

	a, err := Analyze(filter, []string{"Tenant", "UserID", "Amount"}, testBindings())
	require.NoError(t, err)
	require.Len(t, a.PartitionFilters, 1)
	require.Len(t, a.IndexedPredicates, 1)
	require.Len(t, a.RangeFilters, 1)
	require.Equal(t, "amount", a.RangeFilters[0].Column)
	require.True(t, a.RangeFilters[0].HasMin)
	require.False(t, a.PartitionOnly)
}

func TestAnalyzeTightensRange(t *testing.T) {
	filter := predicate.And(
		predicate.Field("Amount").Gt(10),
		predicate.Field("Amount").Lt(100),
		predicate.Field("Amount").GtEq(20),
	)

	a, err := Analyze(filter, []string{"Amount"}, testBindings())
	require.NoError(t, err)
	require.Len(t, a.RangeFilters, 1)
	rf := a.RangeFilters[0]
	require.Equal(t, 20, rf.Min)
	require.True(t, rf.MinInclusive)
	require.Equal(t, 100, rf.Max)
	require.False(t, contradicts(rf))
}

func TestAnalyzeDetectsContradiction(t *testing.T) {
	filter := predicate.And(
		predicate.Field("Amount").Gt(100),
		predicate.Field("Amount").Lt(10),
	)

	a, err := Analyze(filter, []string{"Amount"}, testBindings())
	require.NoError(t, err)
	require.True(t, a.Contradiction)
}

func TestAnalyzePartitionOnlyProjection(t *testing.T) {
	filter := predicate.Field("Tenant").Eq("acme")
	a, err := Analyze(filter, []string{"Tenant", "Day"}, testBindings())
	require.NoError(t, err)
	require.True(t, a.PartitionOnly)
}

func TestAnalyzeOrIsResidualOnly(t *testing.T) {
	filter := predicate.Or(predicate.Field("Amount").Gt(10), predicate.Field("Amount").Lt(5))
	a, err := Analyze(filter, []string{"Amount"}, testBindings())
	require.NoError(t, err)
	require.Empty(t, a.RangeFilters)
	require.NotNil(t, a.Residual)
}

func TestAnalyzeUnknownFieldErrors(t *testing.T) {
	filter := predicate.Field("Nope").Eq(1)
	_, err := Analyze(filter, nil, testBindings())
	require.Error(t, err)
}
