package textparse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferColumns(t *testing.T) {
	lines := []string{
		"gi1/0/1    100   20",
		"gi1/0/10     5    1",
	}
	got := InferColumns(lines)
	want := []Span{{0, 8}, {11, 14}, {17, 19}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("InferColumns() mismatch (-want +got):\n%s", diff)
	}
}

func TestFixedWidthRows(t *testing.T) {
	lines := []string{
		"  1    e0:d9:e3:00:00:01   gi1/0/1    dynamic",
		"",
		"  10   e0:d9:e3:00:00:02   gi1/0/2    static",
	}
	got := FixedWidthRows(lines)
	want := []Row{
		{"1", "e0:d9:e3:00:00:01", "gi1/0/1", "dynamic"},
		{"10", "e0:d9:e3:00:00:02", "gi1/0/2", "static"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FixedWidthRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestDelimitedRows(t *testing.T) {
	rule := "--------- ----------------- ------------ --------------"
	lines := []string{
		"gi1/0/1   a8_f9_4b_11_22      gi0/1        core sw 1",
		"                                           -east",
	}
	got := DelimitedRows(rule, lines)
	want := []Row{
		{"gi1/0/1", "a8_f9_4b_11_22", "gi0/1", "core sw 1"},
		{"", "", "", "-east"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DelimitedRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestReconstructSum(t *testing.T) {
	rows := []Row{
		{"gi1/0/1", "100", "7"},
		{"", "23", ""},
		{"gi1/0/2", "5", "1"},
	}
	layout := Layout{Key: 0, Columns: []Column{
		{Name: "ucast", Index: 1, Merge: Sum},
		{Name: "mcast", Index: 2, Merge: Sum},
	}}

	recs, err := Reconstruct(rows, layout)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "gi1/0/1", recs[0].Key)
	assert.Equal(t, int64(123), recs[0].Total("ucast"))
	assert.Equal(t, int64(7), recs[0].Total("mcast"))
	assert.Equal(t, int64(5), recs[1].Total("ucast"))
}

func TestReconstructConcat(t *testing.T) {
	rows := []Row{
		{"gi1/0/1", "very-long-host-", "gi0/1"},
		{"", "name", ""},
	}
	layout := Layout{Key: 0, Columns: []Column{
		{Name: "host", Index: 1},
		{Name: "port", Index: 2},
	}}

	recs, err := Reconstruct(rows, layout)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "very-long-host-name", recs[0].Text("host"))
	assert.Equal(t, "gi0/1", recs[0].Text("port"))
}

func TestReconstructRepeatedKey(t *testing.T) {
	rows := []Row{
		{"gi1/0/1", "a"},
		{"gi1/0/1", "b"},
		{"", "c"},
	}
	recs, err := Reconstruct(rows, Layout{Columns: []Column{{Name: "v", Index: 1}}})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Text("v"))
	assert.Equal(t, "bc", recs[1].Text("v"), "continuation joins the latest record")
}

func TestReconstructOrphanContinuation(t *testing.T) {
	rows := []Row{{"", "23"}, {"gi1/0/1", "1"}}
	_, err := Reconstruct(rows, Layout{Columns: []Column{{Name: "n", Index: 1, Merge: Sum}}})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "continuation with no prior record", perr.Msg)
}

func TestReconstructBadNumber(t *testing.T) {
	rows := []Row{{"gi1/0/1", "n/a"}}
	_, err := Reconstruct(rows, Layout{Columns: []Column{{Name: "n", Index: 1, Merge: Sum}}})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestReconstructEmpty(t *testing.T) {
	recs, err := Reconstruct(nil, Layout{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
