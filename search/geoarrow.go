package search

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// GeometryExtensionType is the Arrow extension type of exported shapes.
// Shapes are stored as WKB in Binary columns under the "geoarrow.wkb" name.
type GeometryExtensionType struct {
	arrow.ExtensionBase
}

// NewGeometryExtensionType creates a geometry extension type.
func NewGeometryExtensionType() *GeometryExtensionType {
	return &GeometryExtensionType{
		ExtensionBase: arrow.ExtensionBase{Storage: arrow.BinaryTypes.Binary},
	}
}

// ArrayType returns the Go type for geometry arrays.
func (g *GeometryExtensionType) ArrayType() reflect.Type {
	return reflect.TypeOf((*array.Binary)(nil))
}

// ExtensionName returns the extension type identifier.
func (g *GeometryExtensionType) ExtensionName() string { return "geoarrow.wkb" }

// String returns a string representation of the type.
func (g *GeometryExtensionType) String() string { return "extension<geoarrow.wkb>" }

// Serialize returns the extension metadata, empty for plain WKB.
func (g *GeometryExtensionType) Serialize() string { return "" }

// Deserialize creates a geometry extension type from metadata.
func (g *GeometryExtensionType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	if !arrow.TypeEqual(storageType, arrow.BinaryTypes.Binary) {
		return nil, fmt.Errorf("invalid storage type for geometry: %s (expected Binary)", storageType)
	}
	return NewGeometryExtensionType(), nil
}

// ExtensionEquals checks equality with another extension type.
func (g *GeometryExtensionType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*GeometryExtensionType)
	return ok && arrow.TypeEqual(g.StorageType(), o.StorageType())
}

type geometryMetadata struct {
	Encoding string `json:"encoding"`
	Edges    string `json:"edges"`
	CRS      string `json:"crs"`
}

// geometryField creates a nullable geometry column for shapes produced by
// analyzer. Coordinates are WGS84 longitude/latitude.
func geometryField(name, analyzer string) arrow.Field {
	ext := NewGeometryExtensionType()
	meta, _ := json.Marshal(geometryMetadata{Encoding: "WKB", Edges: "spherical", CRS: "EPSG:4326"})
	return arrow.Field{
		Name:     name,
		Type:     ext,
		Nullable: true,
		Metadata: arrow.MetadataFrom(map[string]string{
			"ARROW:extension:name":     ext.ExtensionName(),
			"ARROW:extension:metadata": string(meta),
			"analyzer":                 analyzer,
		}),
	}
}

func init() {
	_ = arrow.RegisterExtensionType(NewGeometryExtensionType())
}
