package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcompare/internal/localstore"
	"tvcompare/pkg/models"
)

var specEqual = cmp.Comparer(func(a, b models.SpecValue) bool { return a.Equal(b) })

func TestWriteReadRoundTripsSeed(t *testing.T) {
	seed := localstore.Seed()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, seed.Fields, seed.Items))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "id,brand,name,slug,description,images,manual_best_fields,screen_size,resolution,panel_type,refresh_rate,hdr_support,smart_os,hdmi_ports", header)

	got, err := Read(&buf, seed.Fields)
	require.NoError(t, err)
	if diff := cmp.Diff(seed.Items, got, specEqual, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTypesCellsByField(t *testing.T) {
	fields := []models.Field{
		{ID: "hz", Type: models.FieldNumber},
		{ID: "hdr", Type: models.FieldBoolean},
		{ID: "os", Type: models.FieldText},
		{ID: "size", Type: models.FieldRange},
	}
	in := "ID,Name,hz,HDR,os,size,extra\n" +
		"a,TV A,120,TRUE,webOS,55-65,ignored\n" +
		",,,,,,\n" +
		"b,TV B,,false,,65,\n"

	items, err := Read(strings.NewReader(in), fields)
	require.NoError(t, err)
	require.Len(t, items, 2)

	a := items[0]
	assert.True(t, a.Specs["hz"].Equal(models.Number(120)))
	assert.True(t, a.Specs["hdr"].Equal(models.Bool(true)))
	assert.True(t, a.Specs["os"].Equal(models.String("webOS")))
	assert.True(t, a.Specs["size"].Equal(models.String("55-65")))
	assert.NotContains(t, a.Specs, "extra")

	b := items[1]
	_, ok := b.Specs.Get("hz")
	assert.False(t, ok, "empty cells stay absent")
	assert.True(t, b.Specs["size"].Equal(models.Number(65)))
}

func TestReadRejectsBadCells(t *testing.T) {
	fields := []models.Field{{ID: "hz", Type: models.FieldNumber}}
	_, err := Read(strings.NewReader("id,name,hz\na,A,fast\n"), fields)
	assert.ErrorContains(t, err, "line 2")

	_, err = Read(strings.NewReader(""), fields)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	existing := []models.Item{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	incoming := []models.Item{{ID: "b", Name: "B2"}, {ID: "c", Name: "C"}, {Name: "no id"}}

	got := Merge(existing, incoming)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"A", "B2", "C", "no id"}, []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name})
	assert.Equal(t, "B", existing[1].Name, "input untouched")
}
