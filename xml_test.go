// FILE: lixenwraith/config/xml_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	textunicode "golang.org/x/text/encoding/unicode"
)

func flatten(t *testing.T, doc string) map[string]string {
	t.Helper()
	store, err := FlattenXML(strings.NewReader(doc))
	require.NoError(t, err)
	return store.Map()
}

func flattenErr(t *testing.T, doc string) error {
	t.Helper()
	store, err := FlattenXML(strings.NewReader(doc))
	require.Error(t, err)
	assert.Nil(t, store)
	return err
}

func requirePosition(t *testing.T, err error, line, column int) {
	t.Helper()
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr), "expected a LineError, got %v", err)
	assert.Equal(t, line, lineErr.Line, "line")
	assert.Equal(t, column, lineErr.Column, "column")
}

const inventoryXML = `<settings>
    <Data.Setting>
        <DefaultConnection>
            <Connection.String>Test.Connection.String</Connection.String>
            <Provider>SqlClient</Provider>
        </DefaultConnection>
        <Inventory>
            <ConnectionString>AnotherTestConnectionString</ConnectionString>
            <Provider>MySql</Provider>
        </Inventory>
    </Data.Setting>
</settings>`

func TestXMLFlattening(t *testing.T) {
	t.Run("NestedElements", func(t *testing.T) {
		got := flatten(t, inventoryXML)
		want := map[string]string{
			"Data.Setting:DefaultConnection:Connection.String": "Test.Connection.String",
			"Data.Setting:DefaultConnection:Provider":          "SqlClient",
			"Data.Setting:Inventory:ConnectionString":          "AnotherTestConnectionString",
			"Data.Setting:Inventory:Provider":                  "MySql",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("flattened values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CaseInsensitiveLookup", func(t *testing.T) {
		store, err := FlattenXML(strings.NewReader(inventoryXML))
		require.NoError(t, err)

		val, _ := store.TryGet("DATA.SETTING:DEFAULTCONNECTION:CONNECTION.STRING")
		assert.Equal(t, "Test.Connection.String", val)
		val, _ = store.TryGet("data.setting:inventory:connectionstring")
		assert.Equal(t, "AnotherTestConnectionString", val)
		val, _ = store.TryGet("Data.setting:Inventory:Provider")
		assert.Equal(t, "MySql", val)
	})

	t.Run("EmptyValues", func(t *testing.T) {
		got := flatten(t, `<?xml version="1.0" encoding="UTF-8"?>
<?xml-stylesheet type="text/xsl" href="style1.xsl"?>
<settings>
    <?xml-stylesheet type="text/xsl" href="style2.xsl"?>
    <Key1></Key1>
    <Key2 Key3="" />
    <Key4/>
    <Key5>   </Key5>
</settings>`)
		want := map[string]string{
			"Key1":      "",
			"Key2:Key3": "",
			"Key4":      "",
			"Key5":      "",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("flattened values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CommonAttributes", func(t *testing.T) {
		got := flatten(t, `<settings Port="8008">
    <Data>
        <DefaultConnection
            ConnectionString="TestConnectionString"
            Provider="SqlClient"/>
        <Inventory
            ConnectionString="AnotherTestConnectionString"
            Provider="MySql"/>
    </Data>
</settings>`)
		want := map[string]string{
			"Port":                                    "8008",
			"Data:DefaultConnection:ConnectionString": "TestConnectionString",
			"Data:DefaultConnection:Provider":         "SqlClient",
			"Data:Inventory:ConnectionString":         "AnotherTestConnectionString",
			"Data:Inventory:Provider":                 "MySql",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("flattened values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("MixedAttributesAndChildren", func(t *testing.T) {
		got := flatten(t, `<settings>
    <Data>
        <DefaultConnection Provider="SqlClient">
            <ConnectionString>V</ConnectionString>
        </DefaultConnection>
    </Data>
</settings>`)
		assert.Equal(t, map[string]string{
			"Data:DefaultConnection:Provider":         "SqlClient",
			"Data:DefaultConnection:ConnectionString": "V",
		}, got)
	})

	t.Run("NameAttributeAppendsSegment", func(t *testing.T) {
		store, err := FlattenXML(strings.NewReader(`<settings><Data Name="X"><Y>v</Y></Data></settings>`))
		require.NoError(t, err)
		assert.Equal(t, []string{"Data:X:Y"}, store.Keys())

		val, _ := store.TryGet("Data:X:Y")
		assert.Equal(t, "v", val)
		_, found := store.TryGet("Data:X:Name")
		assert.False(t, found)
	})

	t.Run("NameAttributeDisambiguatesSiblings", func(t *testing.T) {
		got := flatten(t, `<settings>
    <Data Name='DefaultConnection'>
        <ConnectionString>TestConnectionString</ConnectionString>
        <Provider>SqlClient</Provider>
    </Data>
    <Data Name='Inventory' ConnectionString='AnotherTestConnectionString'>
        <Provider>MySql</Provider>
    </Data>
</settings>`)
		want := map[string]string{
			"Data:DefaultConnection:ConnectionString": "TestConnectionString",
			"Data:DefaultConnection:Provider":         "SqlClient",
			"Data:Inventory:ConnectionString":         "AnotherTestConnectionString",
			"Data:Inventory:Provider":                 "MySql",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("flattened values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("NameAttributeOnRoot", func(t *testing.T) {
		got := flatten(t, `<settings Name='Data'>
    <DefaultConnection>
        <ConnectionString>TestConnectionString</ConnectionString>
    </DefaultConnection>
    <Inventory Provider='MySql'/>
</settings>`)
		assert.Equal(t, map[string]string{
			"Data:DefaultConnection:ConnectionString": "TestConnectionString",
			"Data:Inventory:Provider":                 "MySql",
		}, got)
	})

	t.Run("NameAttributeIgnoresCase", func(t *testing.T) {
		got := flatten(t, `<settings><Data name="X" Provider="P"/></settings>`)
		assert.Equal(t, map[string]string{"Data:X:Provider": "P"}, got)
	})

	t.Run("CDATAIsText", func(t *testing.T) {
		got := flatten(t, `<settings>
    <Data>
        <Inventory>
            <Provider><![CDATA[SpecialStringWith<>]]></Provider>
        </Inventory>
    </Data>
</settings>`)
		assert.Equal(t, map[string]string{"Data:Inventory:Provider": "SpecialStringWith<>"}, got)
	})

	t.Run("CommentsAndProcessingInstructionsIgnored", func(t *testing.T) {
		got := flatten(t, `<?xml version='1.0' encoding='UTF-8'?>
<?xml-stylesheet type='text/xsl' href='style1.xsl'?>
<!-- Comments --> <settings>
    <?xml-stylesheet type='text/xsl' href='style2.xsl'?>
    <Data> <!-- Comments -->
        <DefaultConnection>
            <ConnectionString><!-- Comments -->TestConnectionString</ConnectionString>
            <Provider>SqlClient</Provider>
        </DefaultConnection>
    </Data>
</settings><!-- Comments -->`)
		assert.Equal(t, map[string]string{
			"Data:DefaultConnection:ConnectionString": "TestConnectionString",
			"Data:DefaultConnection:Provider":         "SqlClient",
		}, got)
	})

	t.Run("TextBesideChildElements", func(t *testing.T) {
		got := flatten(t, `<settings><A>text<B>v</B></A></settings>`)
		assert.Equal(t, map[string]string{"A": "text", "A:B": "v"}, got)
	})

	t.Run("EscapedCharacters", func(t *testing.T) {
		got := flatten(t, `<settings><Query Filter="a &lt; b">x &amp; y</Query></settings>`)
		assert.Equal(t, map[string]string{"Query:Filter": "a < b", "Query": "x & y"}, got)
	})
}

func TestXMLDuplicateKeys(t *testing.T) {
	t.Run("IdenticalValuesAreIgnored", func(t *testing.T) {
		docs := []string{
			`<settings><Data><Provider>SqlClient</Provider></Data><Data Provider="SqlClient"/></settings>`,
			`<settings><Data Provider="SqlClient"/><Data><Provider>SqlClient</Provider></Data></settings>`,
		}
		for _, doc := range docs {
			got := flatten(t, doc)
			assert.Equal(t, map[string]string{"Data:Provider": "SqlClient"}, got)
		}
	})

	t.Run("ConflictingValuesFail", func(t *testing.T) {
		docs := []string{
			`<settings><Data><Provider>SqlClient</Provider></Data><Data Provider="MySql"/></settings>`,
			`<settings><Data Provider="MySql"/><Data><Provider>SqlClient</Provider></Data></settings>`,
		}
		for _, doc := range docs {
			err := flattenErr(t, doc)
			assert.ErrorIs(t, err, ErrDuplicateKey)
			assert.ErrorIs(t, err, ErrFormat)
			assert.Contains(t, err.Error(), `"Data:Provider"`)
		}
	})

	t.Run("ReportsPathAndPositionOfSecondOccurrence", func(t *testing.T) {
		err := flattenErr(t, `<settings>
  <Data>
    <DefaultConnection>
      <ConnectionString>TestConnectionString</ConnectionString>
    </DefaultConnection>
  </Data>
  <Data Name='DefaultConnection' ConnectionString='NewConnectionString'>
    <Provider>NewProvider</Provider>
  </Data>
</settings>`)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Contains(t, err.Error(), `"Data:DefaultConnection:ConnectionString"`)
		requirePosition(t, err, 7, 34)
	})

	t.Run("TextRunsSplitByMarkup", func(t *testing.T) {
		err := flattenErr(t, `<settings><A>x<!-- c -->y</A></settings>`)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Contains(t, err.Error(), `"A"`)
		requirePosition(t, err, 1, 25)

		err = flattenErr(t, `<settings><A>x<?pi?>y</A></settings>`)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		err = flattenErr(t, `<settings><A>x<B>v</B>y</A></settings>`)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("IdenticalTextRuns", func(t *testing.T) {
		got := flatten(t, `<settings><A>x<!-- c -->x</A><B>y<![CDATA[z]]></B></settings>`)
		assert.Equal(t, map[string]string{"A": "x", "B": "yz"}, got)
	})

	t.Run("ConflictingText", func(t *testing.T) {
		err := flattenErr(t, "<settings>\n<A>1</A>\n<A>2</A>\n</settings>")
		assert.ErrorIs(t, err, ErrDuplicateKey)
		requirePosition(t, err, 3, 4)
	})
}

func TestXMLRejections(t *testing.T) {
	t.Run("NamespaceDeclaration", func(t *testing.T) {
		err := flattenErr(t, `<settings xmlns:MyNameSpace='http://microsoft.com/wwa/mynamespace'>
    <MyNameSpace:Data>
        <DefaultConnection>
            <ConnectionString>TestConnectionString</ConnectionString>
        </DefaultConnection>
    </MyNameSpace:Data>
</settings>`)
		assert.ErrorIs(t, err, ErrNamespaceNotSupported)
		assert.ErrorIs(t, err, ErrFormat)
		requirePosition(t, err, 1, 11)
	})

	t.Run("DefaultNamespace", func(t *testing.T) {
		err := flattenErr(t, `<settings xmlns="urn:example"><A>1</A></settings>`)
		assert.ErrorIs(t, err, ErrNamespaceNotSupported)
		requirePosition(t, err, 1, 11)
	})

	t.Run("PrefixedElement", func(t *testing.T) {
		err := flattenErr(t, "<settings>\n  <ns:Data>v</ns:Data>\n</settings>")
		assert.ErrorIs(t, err, ErrNamespaceNotSupported)
		requirePosition(t, err, 2, 4)
	})

	t.Run("PrefixedAttribute", func(t *testing.T) {
		err := flattenErr(t, `<settings><Data ns:Provider="x"/></settings>`)
		assert.ErrorIs(t, err, ErrNamespaceNotSupported)
		requirePosition(t, err, 1, 17)
	})

	t.Run("DTD", func(t *testing.T) {
		err := flattenErr(t, `<!DOCTYPE DefaultConnection[
    <!ELEMENT DefaultConnection (ConnectionString,Provider)>
    <!ELEMENT ConnectionString (#PCDATA)>
    <!ELEMENT Provider (#PCDATA)>
]>
<settings>
    <Data>
        <DefaultConnection>
            <ConnectionString>TestConnectionString</ConnectionString>
        </DefaultConnection>
    </Data>
</settings>`)
		assert.ErrorIs(t, err, ErrSecurity)
		assert.False(t, errors.Is(err, ErrFormat))
		requirePosition(t, err, 1, 1)
	})

	t.Run("DTDWithUnreferencedEntity", func(t *testing.T) {
		err := flattenErr(t, `<?xml version="1.0"?>
<!DOCTYPE settings [<!ENTITY big "expanded">]>
<settings><A>plain</A></settings>`)
		assert.ErrorIs(t, err, ErrSecurity)
		requirePosition(t, err, 2, 1)
	})

	t.Run("MalformedDocument", func(t *testing.T) {
		err := flattenErr(t, `<settings><A>1</B></settings>`)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("NoRootElement", func(t *testing.T) {
		err := flattenErr(t, `<!-- nothing here -->`)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("MultipleRootElements", func(t *testing.T) {
		err := flattenErr(t, "<a x=\"1\"/>\n<b y=\"2\"/>")
		assert.ErrorIs(t, err, ErrFormat)
		requirePosition(t, err, 2, 1)
	})
}

func TestXMLDeclaredEncodings(t *testing.T) {
	for _, enc := range []string{"UTF-8", "us-ascii", "ISO-8859-1", "utf-16", "windows-1252"} {
		t.Run(enc, func(t *testing.T) {
			got := flatten(t, `<?xml version="1.0" encoding="`+enc+`"?>
<settings><Data Provider="MySql"/></settings>`)
			assert.Equal(t, map[string]string{"Data:Provider": "MySql"}, got)
		})
	}

	t.Run("Latin1Content", func(t *testing.T) {
		doc := "<?xml version='1.0' encoding='ISO-8859-1'?>\n<settings><City>Z\xfcrich</City></settings>"
		got := flatten(t, doc)
		assert.Equal(t, map[string]string{"City": "Zürich"}, got)
	})

	t.Run("Latin1PositionsCountCharacters", func(t *testing.T) {
		doc := "<?xml version='1.0' encoding='ISO-8859-1'?>\n<settings><A>\xe9</A><A>x</A></settings>"
		err := flattenErr(t, doc)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		requirePosition(t, err, 2, 22)
	})

	t.Run("UTF16WithByteOrderMark", func(t *testing.T) {
		doc := `<?xml version="1.0" encoding="utf-16"?>
<settings>
    <City>Zürich</City>
</settings>`
		for _, endian := range []textunicode.Endianness{textunicode.LittleEndian, textunicode.BigEndian} {
			encoded, err := textunicode.UTF16(endian, textunicode.UseBOM).NewEncoder().String(doc)
			require.NoError(t, err)

			got := flatten(t, encoded)
			assert.Equal(t, map[string]string{"City": "Zürich"}, got)
		}
	})

	t.Run("UnknownEncoding", func(t *testing.T) {
		err := flattenErr(t, `<?xml version="1.0" encoding="x-no-such-charset"?><settings/>`)
		assert.ErrorIs(t, err, ErrFormat)
		assert.Contains(t, err.Error(), "unsupported XML encoding")
	})
}

func TestXMLRoundTripIgnoresCase(t *testing.T) {
	store, err := FlattenXML(strings.NewReader(`<settings Port="8008">
    <Data Name="Inventory" Provider="MySql">
        <ConnectionString>Server=db</ConnectionString>
        <Pool><Size>10</Size></Pool>
    </Data>
</settings>`))
	require.NoError(t, err)
	require.Equal(t, 4, store.Len())

	for path, want := range store.Map() {
		for _, variant := range []string{strings.ToUpper(path), strings.ToLower(path), alternateCase(path)} {
			got, found := store.TryGet(variant)
			assert.True(t, found, variant)
			assert.Equal(t, want, got, variant)
		}
	}
}

func TestXMLRoundTripNonASCII(t *testing.T) {
	store, err := FlattenXML(strings.NewReader(`<settings><Λόγος Όνομα="x">v</Λόγος></settings>`))
	require.NoError(t, err)

	for path, want := range store.Map() {
		for _, variant := range []string{strings.ToUpper(path), strings.ToLower(path), alternateCase(path)} {
			got, found := store.TryGet(variant)
			assert.True(t, found, variant)
			assert.Equal(t, want, got, variant)
		}
	}
	val, _ := store.TryGet("ΛΌΓΟΣ")
	assert.Equal(t, "v", val)
}

func alternateCase(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if i%2 == 0 {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
	}
	return string(runes)
}

func TestXMLSources(t *testing.T) {
	t.Run("StreamSourceReloads", func(t *testing.T) {
		src := NewXMLSource(strings.NewReader(`<settings><A>1</A></settings>`))
		require.NoError(t, src.Load())
		require.NoError(t, src.Load())

		val, _ := src.TryGet("a")
		assert.Equal(t, "1", val)
		assert.Equal(t, SourceXML, src.Kind())
	})

	t.Run("LoadFromReplacesValues", func(t *testing.T) {
		src := NewXMLSource(strings.NewReader(`<settings><A>1</A></settings>`))
		require.NoError(t, src.Load())
		require.NoError(t, src.LoadFrom(strings.NewReader(`<settings><B>2</B></settings>`)))

		_, found := src.TryGet("A")
		assert.False(t, found)
		val, _ := src.TryGet("B")
		assert.Equal(t, "2", val)
	})

	t.Run("FailedLoadKeepsPreviousValues", func(t *testing.T) {
		src := NewXMLSource(strings.NewReader(`<settings><A>1</A></settings>`))
		require.NoError(t, src.Load())
		require.Error(t, src.LoadFrom(strings.NewReader(`<settings><A>2</A><A>3</A></settings>`)))

		val, _ := src.TryGet("A")
		assert.Equal(t, "1", val)
	})

	t.Run("FileSource", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.xml")
		require.NoError(t, os.WriteFile(path, []byte(`<settings><A>1</A></settings>`), 0644))

		src, err := NewXMLFileSource(path)
		require.NoError(t, err)
		require.NoError(t, src.Load())
		assert.Equal(t, "xml:"+path, src.Name())
		assert.Equal(t, path, src.Path())

		val, _ := src.TryGet("A")
		assert.Equal(t, "1", val)
	})

	t.Run("FileSourceReportsFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.xml")
		require.NoError(t, os.WriteFile(path, []byte(`<!DOCTYPE x><x/>`), 0644))

		src, err := NewXMLFileSource(path)
		require.NoError(t, err)
		err = src.Load()
		assert.ErrorIs(t, err, ErrSecurity)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("MissingFile", func(t *testing.T) {
		src, err := NewXMLFileSource(filepath.Join(t.TempDir(), "missing.xml"))
		require.NoError(t, err)
		assert.ErrorIs(t, src.Load(), ErrConfigNotFound)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := NewXMLFileSource("")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestScanAttributeOffsets(t *testing.T) {
	tag := []byte(`<Data Name = 'a>b' Provider="x"  Other='y'/>`)
	assert.Equal(t, []int{6, 19, 33}, scanAttributeOffsets(tag))
	assert.Empty(t, scanAttributeOffsets([]byte(`<Data>`)))
}
