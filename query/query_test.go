package query

import (
	"testing"

	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() []document.Record {
	return []document.Record{
		{"id": document.Int(1), "age": document.Int(25), "name": document.String("d")},
		{"id": document.Int(2), "age": document.Int(30), "name": document.String("c")},
		{"id": document.Int(3), "age": document.Int(40), "name": document.String("b")},
		{"id": document.Int(4), "age": document.Int(35), "name": document.String("a")},
	}
}

func TestExecuteSortSkipLimit(t *testing.T) {
	res, err := Execute(people(), criteria.Criteria{
		Where: criteria.Gte("age", document.Int(30)),
		Sort:  []criteria.SortKey{{Field: "age", Direction: criteria.Asc}},
		Limit: 2,
		Skip:  1,
	}, criteria.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, document.Int(4), res.Records[0]["id"])
	assert.Equal(t, document.Int(3), res.Records[1]["id"])
	assert.Equal(t, []int{1, 2, 3}, res.Indices)
	assert.Equal(t, uint64(3), res.IndexSet().GetCardinality())
}

func TestExecuteStableMultiKeySort(t *testing.T) {
	records := []document.Record{
		{"id": document.Int(1), "group": document.String("x"), "rank": document.Int(2)},
		{"id": document.Int(2), "group": document.String("y"), "rank": document.Int(1)},
		{"id": document.Int(3), "group": document.String("x"), "rank": document.Int(1)},
		{"id": document.Int(4), "group": document.String("x"), "rank": document.Int(2)},
		{"id": document.Int(5), "group": document.String("y"), "rank": document.Int(1)},
	}
	res, err := Execute(records, criteria.Criteria{
		Sort: []criteria.SortKey{
			{Field: "group", Direction: criteria.Desc},
			{Field: "rank", Direction: criteria.Asc},
		},
	}, criteria.DefaultOptions())
	require.NoError(t, err)

	var ids []int64
	for _, r := range res.Records {
		ids = append(ids, r["id"].I64)
	}
	assert.Equal(t, []int64{2, 5, 3, 1, 4}, ids)
}

func TestExecuteSelect(t *testing.T) {
	res, err := Execute(people(), criteria.Criteria{
		Where:  criteria.Eq("id", document.Int(2)),
		Select: []string{"name"},
	}, criteria.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []document.Record{{"name": document.String("c")}}, res.Records)
}

func TestExecuteReturnsCopies(t *testing.T) {
	records := people()
	res, err := Execute(records, criteria.Criteria{}, criteria.DefaultOptions())
	require.NoError(t, err)
	res.Records[0]["age"] = document.Int(99)
	assert.Equal(t, document.Int(25), records[0]["age"])
}

func TestExecuteSkipBeyondEnd(t *testing.T) {
	res, err := Execute(people(), criteria.Criteria{Skip: 10}, criteria.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Len(t, res.Indices, 4)
}

func TestExecuteInvalidOperator(t *testing.T) {
	_, err := Execute(people(), criteria.Criteria{
		Where: criteria.Condition{Field: "age", Op: "between"},
	}, criteria.DefaultOptions())
	assert.ErrorIs(t, err, criteria.ErrInvalidOperator)
}

func TestSortMissingFieldsFirst(t *testing.T) {
	records := []document.Record{
		{"id": document.Int(1), "v": document.Int(2)},
		{"id": document.Int(2)},
		{"id": document.Int(3), "v": document.Int(1)},
	}
	res, err := Execute(records, criteria.Criteria{Sort: []criteria.SortKey{{Field: "v", Direction: criteria.Asc}}}, criteria.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, document.Int(2), res.Records[0]["id"])
	assert.Equal(t, document.Int(3), res.Records[1]["id"])
	assert.Equal(t, document.Int(1), res.Records[2]["id"])
}

func TestAggregates(t *testing.T) {
	records := append(people(), document.Record{"id": document.Int(5), "age": document.String("n/a")})
	opts := criteria.DefaultOptions()

	n, err := Count(records, criteria.Gte("age", document.Int(30)), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sum, err := Sum(records, nil, "age", opts)
	require.NoError(t, err)
	assert.Equal(t, float64(130), sum)

	avg, err := Avg(records, criteria.Gt("age", document.Int(26)), "age", opts)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, avg, 1e-9)

	avg, err = Avg(records, criteria.Eq("id", document.Int(99)), "age", opts)
	require.NoError(t, err)
	assert.Equal(t, float64(0), avg)
}

func TestSummarize(t *testing.T) {
	records := append(people(), document.Record{"id": document.Int(5), "age": document.String("n/a")})

	s, err := Summarize(records, nil, "age", criteria.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, len(records), s.Matches)
	assert.Equal(t, len(records)-1, s.Numeric)
	assert.Equal(t, float64(130), s.Sum)

	s, err = Summarize(records, criteria.Eq("id", document.Int(5)), "", criteria.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Summary{Matches: 1}, s)
	assert.Equal(t, float64(0), s.Avg())
}
