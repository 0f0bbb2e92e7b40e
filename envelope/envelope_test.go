package envelope

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dentalscan/hpsdecode/format"
)

func packFloats(vals ...float32) string {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}

	return base64.StdEncoding.EncodeToString(buf)
}

func TestParse_CA_MinimalEnvelope(t *testing.T) {
	xmlDoc := `<Root>
  <Schema>CA</Schema>
  <CA>
    <Vertices vertex_count="3" color="16711680">AAAA</Vertices>
    <Facets facet_count="1" color="255">AAAA</Facets>
  </CA>
</Root>`

	schema, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.Equal(t, format.SchemaCA, schema)
	require.Equal(t, 3, ctx.VertexCount)
	require.Equal(t, 1, ctx.FaceCount)
	require.NotNil(t, ctx.DefaultVertexColor)
	require.Equal(t, uint32(16711680), *ctx.DefaultVertexColor)
	require.NotNil(t, ctx.DefaultFaceColor)
	require.False(t, ctx.VertexData.IsEncrypted())
}

func TestParse_CE_MarksVertexDataEncrypted(t *testing.T) {
	xmlDoc := `<Root>
  <Schema>CE</Schema>
  <CE>
    <Vertices vertex_count="3" base64_encoded_bytes="12" check_value="42" Key="1">AAAAAAAAAAAAAAAA</Vertices>
    <Facets facet_count="1">AAAA</Facets>
  </CE>
</Root>`

	schema, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.Equal(t, format.SchemaCE, schema)
	require.True(t, ctx.VertexData.IsEncrypted())
	require.Equal(t, 12, ctx.VertexData.Encrypted.OriginalSize)
	require.True(t, ctx.VertexData.Encrypted.UseScrambledKey)
	require.NotNil(t, ctx.CheckValue)
	require.Equal(t, uint32(42), *ctx.CheckValue)
}

func TestParse_MissingSchemaErrors(t *testing.T) {
	xmlDoc := `<Root><CA><Vertices vertex_count="1"></Vertices><Facets facet_count="1">AAAA</Facets></CA></Root>`

	_, _, err := Parse(strings.NewReader(xmlDoc))
	require.Error(t, err)
}

func TestParse_UnknownSchemaErrors(t *testing.T) {
	xmlDoc := `<Root><Schema>ZZ</Schema></Root>`

	_, _, err := Parse(strings.NewReader(xmlDoc))
	require.Error(t, err)
}

func TestParse_OptionalVertexColorsAndTextureCoords(t *testing.T) {
	xmlDoc := `<Root>
  <Schema>CA</Schema>
  <CA>
    <Vertices vertex_count="1">AAAA</Vertices>
    <Facets facet_count="1">AAAA</Facets>
  </CA>
  <VertexColorSets>
    <VertexColorSet Base64EncodedBytes="3">AAAAAA==</VertexColorSet>
  </VertexColorSets>
  <PerVertexTextureCoord Base64EncodedBytes="4">AAAAAA==</PerVertexTextureCoord>
</Root>`

	_, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.NotNil(t, ctx.VertexColorsData)
	require.NotNil(t, ctx.TextureCoordsData)
}

func TestParse_TextureImagesFromBothTextureDataContainers(t *testing.T) {
	xmlDoc := `<Root>
  <Schema>CA</Schema>
  <CA>
    <Vertices vertex_count="1">AAAA</Vertices>
    <Facets facet_count="1">AAAA</Facets>
  </CA>
  <TextureData2>
    <TextureImages>
      <AdditionalTextureImage>AAAA</AdditionalTextureImage>
    </TextureImages>
  </TextureData2>
  <TextureData>
    <TextureImages>
      <AdditionalTextureImage>BBBB</AdditionalTextureImage>
    </TextureImages>
  </TextureData>
</Root>`

	_, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.Len(t, ctx.TextureImages, 2)
}

func TestParse_Properties(t *testing.T) {
	xmlDoc := `<Root>
  <Schema>CA</Schema>
  <CA>
    <Vertices vertex_count="1">AAAA</Vertices>
    <Facets facet_count="1">AAAA</Facets>
  </CA>
  <Properties>
    <Property name="ScannerModel" value="TRIOS4"></Property>
  </Properties>
</Root>`

	_, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.Equal(t, "TRIOS4", ctx.Properties["ScannerModel"])
}

func TestParse_SplinePacked(t *testing.T) {
	packed := packFloats(0, 0, 0, 1, 1, 1)

	xmlDoc := `<Root>
  <Schema>CA</Schema>
  <CA>
    <Vertices vertex_count="1">AAAA</Vertices>
    <Facets facet_count="1">AAAA</Facets>
  </CA>
  <Splines>
    <Object name="Spline">
      <Properties>
        <Property name="Name" value="Margin"></Property>
        <Property name="Radius" value="0.5"></Property>
        <Property name="Closed" value="false"></Property>
        <Property name="Color" value="255"></Property>
        <Property name="iMisc1" value="0"></Property>
      </Properties>
      <ControlPointsPacked>` + packed + `</ControlPointsPacked>
    </Object>
  </Splines>
</Root>`

	_, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.Len(t, ctx.Splines, 1)

	spline := ctx.Splines[0]
	require.Equal(t, "Margin", spline.Name)
	require.Equal(t, float32(0.5), spline.Radius)
	require.False(t, spline.IsCyclic)
	require.Len(t, spline.ControlPoints, 2)
	require.Equal(t, [3]float32{0, 0, 0}, spline.ControlPoints[0])
	require.Equal(t, [3]float32{1, 1, 1}, spline.ControlPoints[1])
}

func TestParse_SplineXMLControlPoints(t *testing.T) {
	xmlDoc := `<Root>
  <Schema>CA</Schema>
  <CA>
    <Vertices vertex_count="1">AAAA</Vertices>
    <Facets facet_count="1">AAAA</Facets>
  </CA>
  <Splines>
    <Object name="Spline">
      <Properties>
        <Property name="Name" value="Margin"></Property>
        <Property name="Radius" value="0.5"></Property>
        <Property name="Closed" value="true"></Property>
        <Property name="Color" value="255"></Property>
        <Property name="iMisc1" value="1"></Property>
      </Properties>
      <ControlPoints>
        <Object>
          <Vector name="p" x="1.0" y="2.0" z="3.0"></Vector>
        </Object>
      </ControlPoints>
    </Object>
  </Splines>
</Root>`

	_, ctx, err := Parse(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	require.Len(t, ctx.Splines, 1)
	require.True(t, ctx.Splines[0].IsCyclic)
	require.Equal(t, [3]float32{1, 2, 3}, ctx.Splines[0].ControlPoints[0])
}
