package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// docID is a document id or reference. The marketplace app writes ObjectIDs,
// this service writes strings; both decode to the same hex or string form.
type docID string

func (id *docID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*id = docID(raw.StringValue())
	case bsontype.ObjectID:
		*id = docID(raw.ObjectID().Hex())
	case bsontype.Null, bsontype.Undefined:
		*id = ""
	default:
		return fmt.Errorf("cannot decode %s into an id", t)
	}
	return nil
}

// idMatch matches id whether it was stored as a string or as an ObjectID.
func idMatch(id string) interface{} {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return id
	}
	return bson.M{"$in": bson.A{id, oid}}
}

func byID(id string) bson.M {
	return bson.M{"_id": idMatch(id)}
}
