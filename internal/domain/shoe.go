package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Shoe struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name,omitempty" json:"name,omitempty"`
	Brand       string             `bson:"brand" json:"brand"`
	Price       float64            `bson:"price" json:"price"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	ShoeDetails ShoeDetails        `bson:"shoeDetails" json:"shoeDetails"`
}

type ShoeDetails struct {
	Brand string `bson:"brand" json:"brand"`
	Color string `bson:"color" json:"color"`
	Size  Size   `bson:"size" json:"size"`
}

// Size is stored as a string or a number depending on how the listing was imported.
type Size string

func (s *Size) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v, err := StringifyValue(bson.RawValue{Type: t, Value: data})
	if err != nil {
		return fmt.Errorf("shoe size: %w", err)
	}
	*s = Size(v)
	return nil
}

func (s *Size) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*s = ""
	case string:
		*s = Size(v)
	case float64:
		*s = Size(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("shoe size: unsupported json value %s", string(data))
	}
	return nil
}

// Filters holds the distinct attribute values used to populate filter controls.
type Filters struct {
	Brands []string `json:"brands"`
	Colors []string `json:"colors"`
	Sizes  []string `json:"sizes"`
}

// StringifyValue renders a scalar bson value as the string shown in filters.
func StringifyValue(rv bson.RawValue) (string, error) {
	switch rv.Type {
	case bson.TypeString:
		return rv.StringValue(), nil
	case bson.TypeInt32:
		return strconv.Itoa(int(rv.Int32())), nil
	case bson.TypeInt64:
		return strconv.FormatInt(rv.Int64(), 10), nil
	case bson.TypeDouble:
		return strconv.FormatFloat(rv.Double(), 'f', -1, 64), nil
	case bson.TypeNull, bson.TypeUndefined:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported bson type %s", rv.Type)
	}
}
