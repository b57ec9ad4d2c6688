package flisttext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

var unknownStr = types.MakeField(types.KindStr, 9999)

func sampleRecord() *format.Record {
	return &format.Record{Fields: []format.Field{
		{ID: catalog.PIN_FLD_POID, Value: types.Poid{Database: 1, Type: "/account", ID: 42}},
		{ID: catalog.PIN_FLD_NAME, Value: "joe \"the\" user"},
		{ID: catalog.PIN_FLD_STATUS, Value: int32(10100)},
		{ID: catalog.PIN_FLD_FLAGS, Value: int32(-3)},
		{ID: catalog.PIN_FLD_CREATED_T, Value: int64(1700000000)},
		{ID: catalog.PIN_FLD_AMOUNT, Value: "12.50"},
		{ID: catalog.PIN_FLD_BUFFER, Value: []byte{0xde, 0xad, 0xbe, 0xef}},
		{ID: catalog.PIN_FLD_SIGNATURE, Value: []byte("sig")},
		{ID: unknownStr, Value: "mystery"},
		{ID: catalog.PIN_FLD_INHERITED_INFO, Sub: &format.Record{Fields: []format.Field{
			{ID: catalog.PIN_FLD_LOGIN, Value: "root"},
		}}},
		{ID: catalog.PIN_FLD_RESULTS, Elems: []format.Elem{
			{ID: 0, Rec: &format.Record{Fields: []format.Field{
				{ID: catalog.PIN_FLD_ACCOUNT_OBJ, Value: types.Poid{Database: 1, Type: "/account", ID: 7, Revision: 2}},
				{ID: catalog.PIN_FLD_BALANCES, Elems: []format.Elem{
					{ID: 840, Rec: &format.Record{Fields: []format.Field{
						{ID: catalog.PIN_FLD_CURRENT_BAL, Value: "-4.25"},
					}}},
				}},
			}}},
			{ID: 5, Rec: &format.Record{Fields: []format.Field{
				{ID: catalog.PIN_FLD_DESCR, Value: "second"},
			}}},
		}},
	}}
}

func nullRecord() *format.Record {
	return &format.Record{Fields: []format.Field{
		{ID: catalog.PIN_FLD_NAME},
		{ID: catalog.PIN_FLD_AMOUNT},
		{ID: catalog.PIN_FLD_ACCOUNT_OBJ},
		{ID: catalog.PIN_FLD_BUFFER},
		{ID: catalog.PIN_FLD_CREATED_T, Value: int64(0)},
		{ID: catalog.PIN_FLD_INHERITED_INFO},
		{ID: catalog.PIN_FLD_RESULTS, Elems: []format.Elem{{ID: 3}}},
	}}
}

func TestRender_LineLayout(t *testing.T) {
	rec := &format.Record{Fields: []format.Field{
		{ID: catalog.PIN_FLD_NAME, Value: "joe"},
		{ID: catalog.PIN_FLD_RESULTS, Elems: []format.Elem{{ID: 2, Rec: &format.Record{Fields: []format.Field{
			{ID: catalog.PIN_FLD_COUNT, Value: int32(4)},
		}}}}},
	}}
	out := Render(rec, catalog.Default())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, HeaderPrefix+" allocated 2, used 2", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0 PIN_FLD_NAME "))
	assert.True(t, strings.HasSuffix(lines[1], `STR [0] "joe"`), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "ARRAY [2] allocated 1, used 1"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "1     PIN_FLD_COUNT"), lines[3])
	assert.True(t, strings.HasSuffix(lines[3], "INT [0] 4"), lines[3])
}

func TestScalarText(t *testing.T) {
	assert.Equal(t, "(0) <null>", ScalarText(types.KindTstamp, int64(0)))
	assert.Equal(t, "(86400) Fri Jan  2 00:00:00 1970", ScalarText(types.KindTstamp, int64(86400)))
	assert.Equal(t, "2 0xABCD", ScalarText(types.KindBuf, []byte{0xab, 0xcd}))
	assert.Equal(t, "NULL str ptr", ScalarText(types.KindStr, nil))
	assert.Equal(t, "NULL pin_decimal_t ptr", ScalarText(types.KindDecimal, nil))
	assert.Equal(t, "NULL", ScalarText(types.KindDecimal, DecimalNull))
}

func TestText_RoundTrip(t *testing.T) {
	names := catalog.Default()
	for name, rec := range map[string]*format.Record{"sample": sampleRecord(), "nulls": nullRecord()} {
		t.Run(name, func(t *testing.T) {
			text := Render(rec, names)
			got, err := ParseString(text, names, ParseOptions{})
			require.NoError(t, err, text)
			assert.Equal(t, rec, got)
		})
	}
}

func TestParse_Leniency(t *testing.T) {
	names := catalog.Default()
	text := "# comment\n\n" +
		"0 PIN_FLD_POID   POID [0] /service/ip\n" +
		"0 PIN_FLD_NAME   STR [0] bare words here\n" +
		"0 PIN_FLD_MOD_T  TSTAMP [0] 1234\n"
	rec, err := ParseString(text, names, ParseOptions{Database: 9})
	require.NoError(t, err)
	require.Len(t, rec.Fields, 3)
	assert.Equal(t, types.Poid{Database: 9, Type: "/service/ip", ID: -1}, rec.Fields[0].Value)
	assert.Equal(t, "bare words here", rec.Fields[1].Value)
	assert.Equal(t, int64(1234), rec.Fields[2].Value)
}

func TestParse_Errors(t *testing.T) {
	names := catalog.Default()
	tests := []struct {
		name string
		text string
	}{
		{"bad level", "x PIN_FLD_NAME STR [0] \"a\"\n"},
		{"orphan level", "1 PIN_FLD_NAME STR [0] \"a\"\n"},
		{"unknown type", "0 PIN_FLD_NAME WIDGET [0] 1\n"},
		{"bad elem", "0 PIN_FLD_NAME STR 0 \"a\"\n"},
		{"kind mismatch", "0 PIN_FLD_NAME INT [0] 1\n"},
		{"unknown field", "0 PIN_FLD_NOPE STR [0] \"a\"\n"},
		{"bad int", "0 PIN_FLD_FLAGS INT [0] twelve\n"},
		{"bad buf length", "0 PIN_FLD_BUFFER BUF [0] 3 0xAB\n"},
		{"bad decimal", "0 PIN_FLD_AMOUNT DECIMAL [0] 1.2.3\n"},
		{"bad poid", "0 PIN_FLD_POID POID [0] 12 34\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.text, names, ParseOptions{})
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.ErrKindValidation), err.Error())
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestParse_Limits(t *testing.T) {
	names := catalog.Default()
	text := "0 PIN_FLD_INHERITED_INFO SUBSTRUCT [0] allocated 1, used 1\n" +
		"1 PIN_FLD_EXTENDED_INFO SUBSTRUCT [0] allocated 1, used 1\n" +
		"2 PIN_FLD_NAME STR [0] \"deep\"\n"

	_, err := ParseString(text, names, ParseOptions{Limits: &types.Limits{MaxDepth: 1}})
	require.Error(t, err)

	_, err = ParseString(text, names, ParseOptions{Limits: &types.Limits{MaxFields: 2}})
	require.Error(t, err)

	_, err = ParseString("0 PIN_FLD_NAME STR [0] \"abcdef\"\n", names, ParseOptions{Limits: &types.Limits{MaxValueSize: 4}})
	require.Error(t, err)

	rec, err := ParseString(text, names, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count(true))
}

func TestParse_Latin1(t *testing.T) {
	names := catalog.Default()
	raw := "0 PIN_FLD_NAME STR [0] \"caf\xe9\"\n"
	rec, err := Parse(strings.NewReader(raw), names, ParseOptions{Latin1: true})
	require.NoError(t, err)
	assert.Equal(t, "café", rec.Fields[0].Value)
}

func TestXML_RoundTrip(t *testing.T) {
	names := catalog.Default()
	for _, style := range []XMLStyle{XMLByName, XMLByType, XMLByShortName} {
		out, err := RenderXML(sampleRecord(), names, XMLOptions{Style: style})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "<?xml"))

		got, err := ParseXML(strings.NewReader(out), names, ParseOptions{})
		require.NoError(t, err, out)
		assert.Equal(t, sampleRecord(), got, out)
	}
}

func TestXML_Shapes(t *testing.T) {
	names := catalog.Default()
	rec := &format.Record{Fields: []format.Field{
		{ID: catalog.PIN_FLD_NAME, Value: "a<b"},
		{ID: unknownStr, Value: "x"},
		{ID: catalog.PIN_FLD_RESULTS, Elems: []format.Elem{{ID: 4, Rec: &format.Record{}}}},
	}}

	byName, err := RenderXML(rec, names, XMLOptions{NoHeader: true, Root: "in"})
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(byName, "<?xml"))
	assert.Contains(t, byName, "<in>")
	assert.Contains(t, byName, "<PIN_FLD_NAME>a&lt;b</PIN_FLD_NAME>")
	assert.Contains(t, byName, `<FIELD name="9999" type="STR">x</FIELD>`)
	assert.Contains(t, byName, `<PIN_FLD_RESULTS elem="4">`)

	byType, err := RenderXML(rec, names, XMLOptions{Style: XMLByType})
	require.NoError(t, err)
	assert.Contains(t, byType, `<STR name="PIN_FLD_NAME">a&lt;b</STR>`)

	short, err := RenderXML(rec, names, XMLOptions{Style: XMLByShortName})
	require.NoError(t, err)
	assert.Contains(t, short, "<NAME>a&lt;b</NAME>")
}

func TestXML_EmptyIsNull(t *testing.T) {
	names := catalog.Default()
	in := `<flist><PIN_FLD_NAME></PIN_FLD_NAME><AMOUNT/><PIN_FLD_FLAGS>3</PIN_FLD_FLAGS></flist>`
	rec, err := ParseXML(strings.NewReader(in), names, ParseOptions{})
	require.NoError(t, err)
	require.Len(t, rec.Fields, 3)
	assert.Nil(t, rec.Fields[0].Value)
	assert.Equal(t, catalog.PIN_FLD_AMOUNT, rec.Fields[1].ID)
	assert.Nil(t, rec.Fields[1].Value)
	assert.Equal(t, int32(3), rec.Fields[2].Value)

	_, err = ParseXML(strings.NewReader(`<flist><PIN_FLD_NOPE/></flist>`), names, ParseOptions{})
	require.Error(t, err)
	_, err = ParseXML(strings.NewReader(``), names, ParseOptions{})
	require.Error(t, err)
}

func TestCompact_RoundTripAndSniff(t *testing.T) {
	names := catalog.Default()
	s := RenderCompact(sampleRecord())
	assert.True(t, strings.HasPrefix(s, CompactPrefix))
	assert.NotContains(t, s, "\n")

	got, err := ParseCompact(s, types.DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)

	_, err = ParseCompact("!!notbase64", types.DefaultLimits())
	require.Error(t, err)

	xmlOut, err := RenderXML(sampleRecord(), names, XMLOptions{})
	require.NoError(t, err)
	text := Render(sampleRecord(), names)

	assert.Equal(t, EncodingCompact, Sniff([]byte(s)))
	assert.Equal(t, EncodingXML, Sniff([]byte(xmlOut)))
	assert.Equal(t, EncodingText, Sniff([]byte(text)))
	assert.Equal(t, EncodingJSON, Sniff([]byte(" {\"a\":1}")))

	for _, data := range []string{s, xmlOut, text} {
		rec, err := Decode([]byte(data), names, ParseOptions{})
		require.NoError(t, err)
		assert.Equal(t, sampleRecord(), rec)
	}
}
