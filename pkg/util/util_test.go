package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type account struct {
	key     string
	address string
}

func TestMap(t *testing.T) {
	out := Map([]string{"a", "b"}, func(item string, index uint64) string {
		return strings.Repeat(item, int(index)+1)
	})
	assert.Equal(t, []string{"a", "bb"}, out)
	assert.Empty(t, Map([]string{}, func(item string, _ uint64) int { return len(item) }))
}

func TestFind(t *testing.T) {
	accounts := []*account{{key: "k1", address: "0x01"}, {key: "k2", address: "0x02"}}

	found := Find(accounts, func(a *account) bool { return a.key == "k2" })
	assert.Equal(t, "0x02", found.address)
	assert.Nil(t, Find(accounts, func(a *account) bool { return a.key == "k3" }))
}

func TestFilter(t *testing.T) {
	out := Filter([]string{"A1a", "", " ", "B2b"}, func(item string) bool {
		return strings.TrimSpace(item) != ""
	})
	assert.Equal(t, []string{"A1a", "B2b"}, out)
	assert.Nil(t, Filter([]string{""}, func(item string) bool { return item != "" }))
}
