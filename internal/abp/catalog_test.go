package abp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog()
	require.NoError(t, err)
	return c
}

func TestNewCatalogKinds(t *testing.T) {
	c := newTestCatalog(t)

	var codes []string
	for _, k := range c.Kinds() {
		codes = append(codes, k.Code)
	}
	assert.Equal(t, []string{
		CodeHeader, CodeStreet, CodeStreetDescriptor, CodeBLPU,
		CodeApplicationXRef, CodeLPI, CodeDeliveryPoint, CodeMetaData,
		CodeSuccessorXRef, CodeOrganisation, CodeClassification, CodeTrailer,
	}, codes)

	for _, k := range c.Kinds() {
		got, err := c.Lookup(k.Code)
		require.NoError(t, err)
		assert.Same(t, k, got)
	}
}

func TestCatalogLayouts(t *testing.T) {
	c := newTestCatalog(t)

	cases := []struct {
		code   string
		table  string
		fields int
		key    []string
	}{
		{CodeHeader, "headers", 8, nil},
		{CodeStreet, "streets", 23, []string{"USRN"}},
		{CodeStreetDescriptor, "streetdescriptors", 12, []string{"USRN", "LANGUAGE"}},
		{CodeBLPU, "blpus", 21, []string{"UPRN"}},
		{CodeApplicationXRef, "appxrefs", 11, []string{"XREF_KEY"}},
		{CodeLPI, "lpis", 25, []string{"LPI_KEY"}},
		{CodeDeliveryPoint, "dpaddresses", 28, []string{"UDPRN"}},
		{CodeMetaData, "metadata", 16, nil},
		{CodeSuccessorXRef, "succxrefs", 9, []string{"SUCC_KEY"}},
		{CodeOrganisation, "organisations", 10, []string{"ORG_KEY"}},
		{CodeClassification, "classifications", 11, []string{"CLASS_KEY"}},
		{CodeTrailer, "trailers", 4, nil},
	}
	for _, tc := range cases {
		t.Run(tc.table, func(t *testing.T) {
			k, err := c.Lookup(tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.table, k.Table)
			assert.Len(t, k.Fields, tc.fields)
			assert.Equal(t, tc.key, k.NaturalKey)

			// Positions count from 1; column 0 holds the type code.
			for i, f := range k.Fields {
				assert.Equal(t, i+1, f.Position, "%s.%s", k.Name, f.Name)
			}

			cols := k.Columns()
			require.Len(t, cols, len(k.Fields))
			for i, f := range k.Fields {
				assert.Equal(t, f.Column(), cols[i])
			}
		})
	}
}

// Identifier fields hold up to 16 digits, past 32-bit range, so every
// kind that carries one declares it wide. A USRN is the same width on an
// LPI as on the street it references.
func TestCatalogIdentifierWidths(t *testing.T) {
	c := newTestCatalog(t)

	wide := map[string]bool{
		"UPRN": true, "PARENT_UPRN": true, "CUSTODIAN_UPRN": true,
		"USRN": true, "UDPRN": true, "PRO_ORDER": true, "SUCCESSOR": true,
	}
	for _, k := range c.Kinds() {
		for _, f := range k.Fields {
			if wide[f.Name] {
				assert.Equal(t, BigInt, f.Type, "%s.%s", k.Name, f.Name)
			}
		}
		for _, name := range []string{"UPRN", "USRN", "UDPRN"} {
			if f, ok := k.Field(name); ok {
				assert.False(t, f.Nullable, "%s.%s", k.Name, name)
			}
		}
	}

	// The physical column matches: lpis.usrn is as wide as streets.usrn.
	lpi, err := c.Lookup(CodeLPI)
	require.NoError(t, err)
	f, ok := lpi.Field("USRN")
	require.True(t, ok)
	assert.Equal(t, BigInt, f.Type)
	assert.False(t, f.Nullable)
	for _, col := range lpi.TableDef().Columns {
		if col.Name == "usrn" {
			assert.Equal(t, "bigint", col.Type)
			assert.False(t, col.Nullable)
		}
	}
}

func TestLookupUnknownCode(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Lookup("98")
	require.Error(t, err)
	var uk *UnknownKindError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, "98", uk.Code)
	assert.EqualError(t, err, `unknown record type code "98"`)
}

func TestFieldLookup(t *testing.T) {
	c := newTestCatalog(t)
	blpu, err := c.Lookup(CodeBLPU)
	require.NoError(t, err)

	f, ok := blpu.Field("UPRN")
	require.True(t, ok)
	assert.Equal(t, BigInt, f.Type)
	assert.False(t, f.Nullable)
	assert.Equal(t, "uprn", f.Column())

	_, ok = blpu.Field("USRN")
	assert.False(t, ok)
}

func TestTableDefBLPU(t *testing.T) {
	c := newTestCatalog(t)
	blpu, err := c.Lookup(CodeBLPU)
	require.NoError(t, err)

	def := blpu.TableDef()
	assert.Equal(t, "blpus", def.Name)
	require.Len(t, def.Columns, len(blpu.Fields)+1)

	id := def.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "bigserial", id.Type)
	assert.True(t, id.PrimaryKey)

	types := map[string]string{}
	nullable := map[string]bool{}
	for _, col := range def.Columns[1:] {
		types[col.Name] = col.Type
		nullable[col.Name] = col.Nullable
	}
	assert.Equal(t, "bigint", types["uprn"])
	assert.Equal(t, "char(1)", types["logical_status"])
	assert.Equal(t, "decimal(8,2)", types["x_coordinate"])
	assert.Equal(t, "decimal(9,7)", types["latitude"])
	assert.Equal(t, "date", types["start_date"])
	assert.Equal(t, "varchar(8)", types["postcode_locator"])
	assert.False(t, nullable["uprn"])
	assert.True(t, nullable["parent_uprn"])

	// The natural key index already serves UPRN lookups, so only the
	// postcode locator gets its own index.
	require.Len(t, def.Indexes, 2)
	assert.Equal(t, "ix_blpus_uprn", def.Indexes[0].Name)
	assert.Equal(t, []string{"uprn"}, def.Indexes[0].Columns)
	assert.Equal(t, "ix_blpus_postcode_locator", def.Indexes[1].Name)
	assert.Equal(t, []string{"postcode_locator"}, def.Indexes[1].Columns)
}

func TestTableDefStreetDescriptor(t *testing.T) {
	c := newTestCatalog(t)
	sd, err := c.Lookup(CodeStreetDescriptor)
	require.NoError(t, err)

	def := sd.TableDef()
	require.Len(t, def.Indexes, 1)
	assert.Equal(t, "ix_streetdescriptors_usrn_language", def.Indexes[0].Name)
	assert.Equal(t, []string{"usrn", "language"}, def.Indexes[0].Columns)
}

func TestTableDefHeader(t *testing.T) {
	c := newTestCatalog(t)
	h, err := c.Lookup(CodeHeader)
	require.NoError(t, err)

	def := h.TableDef()
	assert.Empty(t, def.Indexes)

	types := map[string]string{}
	for _, col := range def.Columns {
		types[col.Name] = col.Type
	}
	assert.Equal(t, "char(8)", types["time_stamp"])
	assert.Equal(t, "varchar(7)", types["version"])
	assert.Equal(t, "integer", types["volume_number"])
}

func TestBuildCatalogRejectsBadLayouts(t *testing.T) {
	good := func(code, table string) *Kind {
		return &Kind{
			Code:   code,
			Name:   "Kind" + code,
			Table:  table,
			Fields: []FieldSpec{bigint("ID").notNull()},
		}
	}

	cases := []struct {
		name  string
		kinds []*Kind
		want  string
	}{
		{
			name:  "duplicate code",
			kinds: []*Kind{good("40", "a"), good("40", "b")},
			want:  "type code 40 claimed by both",
		},
		{
			name:  "duplicate table",
			kinds: []*Kind{good("40", "a"), good("41", "a")},
			want:  "table a claimed by both",
		},
		{
			name:  "missing table",
			kinds: []*Kind{{Code: "40", Name: "X", Fields: []FieldSpec{bigint("ID")}}},
			want:  "missing code, name or table",
		},
		{
			name:  "no fields",
			kinds: []*Kind{{Code: "40", Name: "X", Table: "a"}},
			want:  "has no fields",
		},
		{
			name: "duplicate field",
			kinds: []*Kind{{
				Code: "40", Name: "X", Table: "a",
				Fields: []FieldSpec{bigint("ID"), bigint("ID")},
			}},
			want: "field ID declared twice",
		},
		{
			name: "char without width",
			kinds: []*Kind{{
				Code: "40", Name: "X", Table: "a",
				Fields: []FieldSpec{{Name: "C", Type: FixedChar}},
			}},
			want: "needs a width",
		},
		{
			name: "scale beyond precision",
			kinds: []*Kind{{
				Code: "40", Name: "X", Table: "a",
				Fields: []FieldSpec{decimal("D", 2, 3)},
			}},
			want: "precision 2 scale 3",
		},
		{
			name: "natural key names unknown field",
			kinds: []*Kind{{
				Code: "40", Name: "X", Table: "a",
				Fields:     []FieldSpec{bigint("ID")},
				NaturalKey: []string{"NOPE"},
			}},
			want: "natural key names unknown field",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildCatalog(tc.kinds)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
