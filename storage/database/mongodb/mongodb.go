// Package mongorepos implements the repositories of the app on top of MongoDB.
// Documents are written by other clients too, so fields may be missing or have the wrong type.
package mongorepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core"
)

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// trapNoDocsErr maps mongo.ErrNoDocuments to notFound.
func trapNoDocsErr(err, notFound error) error {
	if err == mongo.ErrNoDocuments {
		return notFound
	}
	return trapDisconnected(err)
}

// trapDisconnected turns the errors of a disconnected client into shutdown errors:
// nothing can be served once the database is gone.
func trapDisconnected(err error) error {
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return core.NewShutdownError("database client disconnected")
	}
	return err
}

// idFilter matches documents by string id, or by the ObjectID it is the hex of.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func find[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrapf(trapDisconnected(err), "querying %s", coll.Name())
	}
	docs := make([]T, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding documents")
	}
	return docs, nil
}

// flexInt decodes numbers stored as any BSON number or numeric string; anything else reads as 0.
type flexInt int

func (n *flexInt) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Int32, bsontype.Int64:
		if v, ok := rv.AsInt64OK(); ok {
			*n = flexInt(v)
		}
	case bsontype.Double:
		if v, ok := rv.DoubleOK(); ok {
			*n = flexInt(v)
		}
	case bsontype.String:
		if v, ok := rv.StringValueOK(); ok {
			i, _ := strconv.Atoi(strings.TrimSpace(v))
			*n = flexInt(i)
		}
	}
	return nil
}

// flexString decodes strings, ObjectIDs as their hex, and numbers as their decimal form
// (mobile numbers & passwords are sometimes stored as numbers).
type flexString string

func (s *flexString) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*s = flexString(rv.StringValue())
	case bsontype.ObjectID:
		if oid, ok := rv.ObjectIDOK(); ok {
			*s = flexString(oid.Hex())
		}
	case bsontype.Int32, bsontype.Int64:
		if v, ok := rv.AsInt64OK(); ok {
			*s = flexString(strconv.FormatInt(v, 10))
		}
	case bsontype.Double:
		if v, ok := rv.DoubleOK(); ok {
			*s = flexString(strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return nil
}
