package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diskstore/document"
)

func TestUsersAreReproducible(t *testing.T) {
	a := NewRNG(4711).Users(20, 0.5)
	b := NewRNG(4711).Users(20, 0.5)
	assert.Equal(t, a, b)

	rng := NewRNG(4711)
	first := rng.Users(5, 0)
	rng.Reset()
	assert.Equal(t, first, rng.Users(5, 0))
}

func TestUsersEmailsUnique(t *testing.T) {
	users := NewRNG(1).Users(500, 0)
	seen := make(map[string]bool)
	for _, u := range users {
		email := u["email"].S
		require.False(t, seen[email], "duplicate email %s", email)
		seen[email] = true
		assert.Equal(t, document.KindInt, u["age"].Kind)
	}
}

func TestUsersMissingRate(t *testing.T) {
	users := NewRNG(7).Users(1000, 1)
	nulls := Filter(users, func(r document.Record) bool { return r["age"].IsNull() })
	assert.Len(t, nulls, 1000)
}

func TestPostsAreSkewed(t *testing.T) {
	posts := NewRNG(3).Posts(2000, 50, 1.5)
	groups := GroupBy(posts, "author")

	total := 0
	for _, group := range groups {
		for _, p := range group {
			assert.Equal(t, document.KindInt, p["author"].Kind)
		}
		total += len(group)
	}
	assert.Equal(t, 2000, total)
	top := len(groups[document.Int(1).Key()])
	tail := len(groups[document.Int(50).Key()])
	assert.Greater(t, top, tail)
}

func TestZipfRange(t *testing.T) {
	rng := NewRNG(9)
	for i := 0; i < 100; i++ {
		k := rng.Zipf(10, 1.0)
		assert.GreaterOrEqual(t, k, 0)
		assert.Less(t, k, 10)
	}
	assert.Equal(t, 0, rng.Zipf(1, 1.0))
}

func TestStringsSorted(t *testing.T) {
	records := []document.Record{
		{"n": document.String("b")},
		{"n": document.String("a")},
	}
	assert.Equal(t, []string{"a", "b"}, Strings(records, "n"))
}
