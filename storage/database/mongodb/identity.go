package mongorepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/storage/database"
)

type identityDoc struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	LastSignIn   time.Time `bson:"last_sign_in,omitempty"`
}

func (d identityDoc) identity() auth.Identity {
	return auth.Identity{UID: d.UID, Email: d.Email, Name: d.Name}
}

// identityProvider keeps bcrypt hashed credentials in the identities collection.
type identityProvider struct {
	coll *mongo.Collection
}

var _ auth.IdentityProvider = (*identityProvider)(nil)

func NewIdentityProvider(db *mongo.Database) auth.IdentityProvider {
	return &identityProvider{coll: db.Collection(database.Identities)}
}

func (p *identityProvider) SignIn(ctx context.Context, email, secret string) (auth.Identity, error) {
	var doc identityDoc
	err := p.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return auth.Identity{}, auth.ErrRejected
		}
		return auth.Identity{}, errors.Wrap(trapDisconnected(err), "finding identity")
	}
	if bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(secret)) != nil {
		return auth.Identity{}, auth.ErrRejected
	}

	// best effort
	_, _ = p.coll.UpdateOne(ctx, bson.M{"_id": doc.UID}, bson.M{"$set": bson.M{"last_sign_in": time.Now().UTC()}})
	return doc.identity(), nil
}

func (p *identityProvider) CreateAccount(ctx context.Context, email, secret, name string) (auth.Identity, error) {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return auth.Identity{}, errors.Wrap(err, "hashing secret")
	}
	doc := identityDoc{
		UID:          newID(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := p.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.Identity{}, auth.ErrIdentityExists
		}
		return auth.Identity{}, errors.Wrap(trapDisconnected(err), "inserting identity")
	}
	return doc.identity(), nil
}

func (p *identityProvider) SetSecret(ctx context.Context, email, secret string) error {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return errors.Wrap(err, "hashing secret")
	}
	res, err := p.coll.UpdateOne(ctx,
		bson.M{"email": strings.ToLower(email)},
		bson.M{"$set": bson.M{"password_hash": hash}},
	)
	if err != nil {
		return errors.Wrap(trapDisconnected(err), "updating identity")
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}
