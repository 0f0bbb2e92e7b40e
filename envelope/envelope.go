// Package envelope parses the XML container around an HPS scan into a
// meshmodel.ParseContext, the external collaborator spec.md §6 and §1
// call out as out of the core decoder's scope. Grounded on loader.py's
// load_hps: same element paths, same attribute names, same texture-path
// dedup and spline-parsing order.
package envelope

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/format"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

func decodeBinaryElement(n *node) ([]byte, error) {
	text := strings.TrimSpace(n.Content)
	if text == "" {
		return nil, &errs.MalformedEnvelopeError{Detail: fmt.Sprintf("element %q has no binary data", n.XMLName.Local)}
	}

	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, &errs.MalformedEnvelopeError{Detail: fmt.Sprintf("element %q: invalid base64: %s", n.XMLName.Local, err)}
	}

	return data, nil
}

func shouldScrambleKey(n *node) bool {
	_, ok := n.attr("Key")
	return ok
}

func extractOriginalSize(n *node, sizeAttr string) int {
	if v, ok := n.attr(sizeAttr); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}

	return -1
}

func extractBinaryField(n *node, isEncrypted bool, sizeAttr string) (meshmodel.DataField, error) {
	if !isEncrypted {
		data, err := decodeBinaryElement(n)
		if err != nil {
			return meshmodel.DataField{}, err
		}

		return meshmodel.DataField{Plain: data}, nil
	}

	data, err := decodeBinaryElement(n)
	if err != nil {
		return meshmodel.DataField{}, err
	}

	return meshmodel.DataField{Encrypted: &meshmodel.EncryptedBlob{
		Data:            data,
		OriginalSize:    extractOriginalSize(n, sizeAttr),
		UseScrambledKey: shouldScrambleKey(n),
	}}, nil
}

func requiredChild(parent *node, tag string) (*node, error) {
	child := parent.findFirst(tag)
	if child == nil {
		return nil, &errs.MalformedEnvelopeError{Detail: fmt.Sprintf("required element %q not found", tag)}
	}

	return child, nil
}

func requiredText(n *node) (string, error) {
	text := strings.TrimSpace(n.Content)
	if text == "" {
		return "", &errs.MalformedEnvelopeError{Detail: fmt.Sprintf("element %q has no text content", n.XMLName.Local)}
	}

	return text, nil
}

func propertyValue(root *node, name string) (string, error) {
	for _, p := range root.findByAttr("Property", "name", name) {
		if v, ok := p.attr("value"); ok {
			return v, nil
		}
	}

	return "", &errs.MalformedEnvelopeError{Detail: fmt.Sprintf("missing Property[@name=%q]", name)}
}

func extractControlPointsPacked(data []byte) ([][3]float32, error) {
	if len(data)%4 != 0 {
		return nil, &errs.MalformedEnvelopeError{
			Detail: fmt.Sprintf("packed control points length %d is not divisible by 4", len(data)),
		}
	}

	numFloats := len(data) / 4
	numPoints := numFloats / 3

	if numPoints == 0 {
		return nil, &errs.MalformedEnvelopeError{Detail: "no complete control points found in packed data"}
	}

	floats := make([]float32, numFloats)
	for i := 0; i < numFloats; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		floats[i] = math.Float32frombits(bits)
	}

	points := make([][3]float32, numPoints)
	for i := 0; i < numPoints; i++ {
		points[i] = [3]float32{floats[i*3], floats[i*3+1], floats[i*3+2]}
	}

	return points, nil
}

func extractControlPointsXML(container *node) ([][3]float32, error) {
	var points [][3]float32

	for _, obj := range container.directChildren("Object") {
		var vector *node

		for _, v := range obj.directChildren("Vector") {
			if name, ok := v.attr("name"); ok && name == "p" {
				vector = v
				break
			}
		}

		if vector == nil {
			return nil, &errs.MalformedEnvelopeError{Detail: "Object in ControlPoints is missing Vector[@name='p']"}
		}

		xStr, xok := vector.attr("x")
		yStr, yok := vector.attr("y")
		zStr, zok := vector.attr("z")

		if !xok || !yok || !zok {
			return nil, &errs.MalformedEnvelopeError{Detail: "Vector element is missing x, y, or z attribute"}
		}

		x, errX := strconv.ParseFloat(xStr, 32)
		y, errY := strconv.ParseFloat(yStr, 32)
		z, errZ := strconv.ParseFloat(zStr, 32)

		if errX != nil || errY != nil || errZ != nil {
			return nil, &errs.MalformedEnvelopeError{Detail: "failed to parse vector coordinates"}
		}

		points = append(points, [3]float32{float32(x), float32(y), float32(z)})
	}

	if len(points) == 0 {
		return nil, &errs.MalformedEnvelopeError{Detail: "ControlPoints element contains no valid control points"}
	}

	return points, nil
}

func parseSpline(obj *node) (meshmodel.Spline, error) {
	name, err := propertyValue(obj, "Name")
	if err != nil {
		return meshmodel.Spline{}, err
	}

	radiusStr, err := propertyValue(obj, "Radius")
	if err != nil {
		return meshmodel.Spline{}, err
	}

	closedStr, err := propertyValue(obj, "Closed")
	if err != nil {
		return meshmodel.Spline{}, err
	}

	colorStr, err := propertyValue(obj, "Color")
	if err != nil {
		return meshmodel.Spline{}, err
	}

	miscStr, err := propertyValue(obj, "iMisc1")
	if err != nil {
		return meshmodel.Spline{}, err
	}

	radius, err := strconv.ParseFloat(radiusStr, 32)
	if err != nil {
		return meshmodel.Spline{}, &errs.MalformedEnvelopeError{Detail: "failed to parse spline Radius"}
	}

	color, err := strconv.ParseUint(colorStr, 10, 32)
	if err != nil {
		return meshmodel.Spline{}, &errs.MalformedEnvelopeError{Detail: "failed to parse spline Color"}
	}

	misc, err := strconv.Atoi(miscStr)
	if err != nil {
		return meshmodel.Spline{}, &errs.MalformedEnvelopeError{Detail: "failed to parse spline iMisc1"}
	}

	var points [][3]float32

	if packed := obj.findFirst("ControlPointsPacked"); packed != nil {
		text := strings.TrimSpace(packed.Content)
		if text == "" {
			return meshmodel.Spline{}, &errs.MalformedEnvelopeError{Detail: "ControlPointsPacked element has no content"}
		}

		data, decodeErr := base64.StdEncoding.DecodeString(text)
		if decodeErr != nil {
			return meshmodel.Spline{}, &errs.MalformedEnvelopeError{Detail: "ControlPointsPacked: invalid base64"}
		}

		points, err = extractControlPointsPacked(data)
		if err != nil {
			return meshmodel.Spline{}, err
		}
	} else if xmlPoints := obj.findFirst("ControlPoints"); xmlPoints != nil {
		points, err = extractControlPointsXML(xmlPoints)
		if err != nil {
			return meshmodel.Spline{}, err
		}
	} else {
		return meshmodel.Spline{}, &errs.MalformedEnvelopeError{Detail: "Spline object is missing control points"}
	}

	return meshmodel.Spline{
		Name:          name,
		ControlPoints: points,
		Radius:        float32(radius),
		IsCyclic:      strings.EqualFold(closedStr, "true"),
		Color:         uint32(color),
		Misc:          misc,
	}, nil
}

func parseSplines(root *node) ([]meshmodel.Spline, error) {
	container := root.findFirst("Splines")
	if container == nil {
		return nil, nil
	}

	var splines []meshmodel.Spline

	for _, obj := range container.findByAttr("Object", "name", "Spline") {
		spline, err := parseSpline(obj)
		if err != nil {
			return nil, err
		}

		splines = append(splines, spline)
	}

	return splines, nil
}

// Parse reads an HPS XML envelope from r and returns the populated
// ParseContext, ready for schema.Decode, along with the resolved
// schema identifier.
func Parse(r io.Reader) (format.Schema, meshmodel.ParseContext, error) {
	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, &errs.MalformedEnvelopeError{Detail: "invalid XML: " + err.Error()}
	}

	schemaElem, err := requiredChild(&root, "Schema")
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	schemaName, err := requiredText(schemaElem)
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	schema, ok := format.ParseSchema(schemaName)
	if !ok {
		return format.SchemaUnknown, meshmodel.ParseContext{}, &errs.UnsupportedSchemaError{Name: schemaName}
	}

	isEncrypted := schema == format.SchemaCE

	dataElem, err := requiredChild(&root, schemaName)
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	verticesElem, err := requiredChild(dataElem, "Vertices")
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	facetsElem, err := requiredChild(dataElem, "Facets")
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	vertexData, err := extractBinaryField(verticesElem, isEncrypted, "base64_encoded_bytes")
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	faceData, err := decodeBinaryElement(facetsElem)
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	vertexCount := attrInt(verticesElem, "vertex_count", 0)
	faceCount := attrInt(facetsElem, "facet_count", 0)

	var checkValue *uint32
	if v, ok := verticesElem.attr("check_value"); ok && v != "" {
		parsed, parseErr := strconv.ParseUint(v, 10, 32)
		if parseErr == nil {
			cv := uint32(parsed)
			checkValue = &cv
		}
	}

	defaultVertexColor := attrColor(verticesElem, "color")
	defaultFaceColor := attrColor(facetsElem, "color")

	var vertexColorsData *meshmodel.DataField
	if vcSet := root.findFirst("VertexColorSet"); vcSet != nil {
		field, fieldErr := extractBinaryField(vcSet, isEncrypted, "Base64EncodedBytes")
		if fieldErr != nil {
			return format.SchemaUnknown, meshmodel.ParseContext{}, fieldErr
		}

		vertexColorsData = &field
	}

	var textureCoordsData *meshmodel.DataField
	if tc := root.findFirst("PerVertexTextureCoord"); tc != nil {
		field, fieldErr := extractBinaryField(tc, isEncrypted, "Base64EncodedBytes")
		if fieldErr != nil {
			return format.SchemaUnknown, meshmodel.ParseContext{}, fieldErr
		}

		textureCoordsData = &field
	}

	textureImages, err := collectTextureImages(&root, isEncrypted)
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	splines, err := parseSplines(&root)
	if err != nil {
		return format.SchemaUnknown, meshmodel.ParseContext{}, err
	}

	properties := collectProperties(&root)

	ctx := meshmodel.ParseContext{
		Schema:             schema,
		VertexData:         vertexData,
		FaceData:           faceData,
		VertexCount:        vertexCount,
		FaceCount:          faceCount,
		DefaultVertexColor: defaultVertexColor,
		DefaultFaceColor:   defaultFaceColor,
		VertexColorsData:   vertexColorsData,
		TextureCoordsData:  textureCoordsData,
		TextureImages:      textureImages,
		Splines:            splines,
		CheckValue:         checkValue,
		Properties:         properties,
	}

	return schema, ctx, nil
}

func attrInt(n *node, name string, fallback int) int {
	if v, ok := n.attr(name); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}

	return fallback
}

func attrColor(n *node, name string) *uint32 {
	v, ok := n.attr(name)
	if !ok || v == "" {
		return nil
	}

	parsed, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil
	}

	c := uint32(parsed)

	return &c
}

// collectTextureImages walks the texture image paths in lookup order
// (encryptable paths first, then the never-encrypted fallback path),
// deduplicating by node identity the way loader.py deduplicates by
// Python element id().
func collectTextureImages(root *node, isEncrypted bool) ([]meshmodel.DataField, error) {
	seen := make(map[*node]bool)

	var out []meshmodel.DataField

	collectImages := func(imgs []*node, encryptable bool) error {
		for _, img := range imgs {
			if seen[img] {
				continue
			}

			seen[img] = true

			field, err := extractBinaryField(img, isEncrypted && encryptable, "Base64EncodedBytes")
			if err != nil {
				return err
			}

			out = append(out, field)
		}

		return nil
	}

	addFromContainer := func(container string, imageTag string, encryptable bool) error {
		for _, parent := range root.findAll(container) {
			for _, imagesElem := range parent.findAll("TextureImages") {
				if err := collectImages(imagesElem.directChildren(imageTag), encryptable); err != nil {
					return err
				}
			}
		}

		return nil
	}

	if err := addFromContainer("TextureData2", "AdditionalTextureImage", true); err != nil {
		return nil, err
	}

	if err := addFromContainer("TextureData", "AdditionalTextureImage", true); err != nil {
		return nil, err
	}

	if err := addFromContainer("PartialTextureData", "TextureImage", true); err != nil {
		return nil, err
	}

	// Fallback: every TextureImage element anywhere in the envelope
	// that the paths above did not already collect is taken as never
	// encrypted, regardless of schema or of which container holds it.
	if err := collectImages(root.findAll("TextureImage"), false); err != nil {
		return nil, err
	}

	return out, nil
}

func collectProperties(root *node) map[string]string {
	properties := make(map[string]string)

	propsElem := root.findFirst("Properties")
	if propsElem == nil {
		return properties
	}

	for _, p := range propsElem.directChildren("Property") {
		name, nameOK := p.attr("name")
		value, valueOK := p.attr("value")

		if nameOK && valueOK {
			properties[name] = value
		}
	}

	return properties
}
