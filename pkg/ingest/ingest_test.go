package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/shiftmatch/core/calendar"
	"github.com/kilianp07/shiftmatch/core/model"
)

func hourly(t *testing.T) *calendar.Template {
	t.Helper()
	cal, err := calendar.HourlyTemplate(9, 12)
	require.NoError(t, err)
	return cal
}

func TestReadDesksHourly(t *testing.T) {
	in := "desk,h09,h10,11,h12\nreception,1,2,1,0\nhotline,0,1,1,1\n"
	tab, err := ReadDesks(strings.NewReader(in), hourly(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"reception", "hotline"}, tab.Desks)
	assert.Equal(t, []int{1, 2, 1, 0}, tab.Counts["reception"])

	rows := tab.Requirements(2)
	assert.Len(t, rows, 16)
	req, err := model.NewRequirements(tab.Desks, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, req.Required("reception", 1, 1))
}

func TestReadDesksSlotLabels(t *testing.T) {
	in := "desk,night,morning,afternoon,evening\nA,1,2,3,4\n"
	tab, err := ReadDesks(strings.NewReader(in), calendar.DefaultTemplate())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 1}, tab.Counts["A"])
}

func TestReadDesksErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"header":       "name,h09,h10,h11,h12\n",
		"unknown slot": "desk,h09,h10,h11,h13\n",
		"missing slot": "desk,h09,h10,h11\n",
		"duplicate":    "desk,h09,h10,h11,h12\nA,1,1,1,1\nA,0,0,0,0\n",
		"not integer":  "desk,h09,h10,h11,h12\nA,1,x,1,1\n",
		"negative":     "desk,h09,h10,h11,h12\nA,1,-1,1,1\n",
		"short row":    "desk,h09,h10,h11,h12\nA,1,1\n",
	}
	for name, data := range cases {
		_, err := ReadDesks(strings.NewReader(data), hourly(t))
		var cerr *model.ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: expected ConfigError, got %v", name, err)
		}
	}
	_, err := ReadDesks(strings.NewReader("desk,h09,h10,h11,h12\nA,1,1,1,1\nA,0,0,0,0\n"), hourly(t))
	var cerr *model.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "line 3", cerr.Record)
}

func TestReadOperators(t *testing.T) {
	in := "name,start,end,home,desks\n" +
		"alice,9,11,A,\"A,B\"\n" +
		"bob,h10,h12,B,A\n"
	ops, err := ReadOperators(strings.NewReader(in), hourly(t), []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, model.Window{Earliest: 0, Latest: 1}, ops[0].Availability)
	assert.Equal(t, []string{"B"}, ops[0].Qualified)
	assert.Equal(t, model.Window{Earliest: 1, Latest: 3}, ops[1].Availability)
	assert.Equal(t, 1, ops[1].Index)
	assert.True(t, ops[1].Qualifies("A"))
}

func TestReadOperatorsErrors(t *testing.T) {
	head := "name,start,end,home,desks\n"
	cases := map[string]string{
		"missing column": "name,start,end,home\n",
		"duplicate":      head + "a,9,12,A,A\na,9,12,A,A\n",
		"unknown home":   head + "a,9,12,Z,A\n",
		"unknown desk":   head + "a,9,12,A,\"A,Z\"\n",
		"bad window":     head + "a,12,9,A,A\n",
		"empty window":   head + "a,20,22,A,A\n",
		"bad slot":       head + "a,h08,h10,A,A\n",
		"empty name":     head + ",9,12,A,A\n",
	}
	for name, data := range cases {
		_, err := ReadOperators(strings.NewReader(data), hourly(t), []string{"A", "B"})
		var cerr *model.ConfigError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: expected ConfigError, got %v", name, err)
		}
	}
}
