package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/storage/database"
)

type contactDoc struct {
	ID        flexString `bson:"_id"`
	Name      flexString `bson:"name"`
	Email     flexString `bson:"email"`
	Mobile    flexString `bson:"mobile"`
	Subject   flexString `bson:"subject"`
	Message   flexString `bson:"message"`
	ClientIP  flexString `bson:"client_ip"`
	CreatedAt time.Time  `bson:"created_at"`
}

type contactRepository struct {
	coll *mongo.Collection
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *mongo.Database) contact.Repository {
	return &contactRepository{coll: db.Collection(database.Contacts)}
}

func (repo *contactRepository) CreateMessage(ctx context.Context, m contact.Message) (contact.Message, error) {
	m.ID = newID()
	_, err := repo.coll.InsertOne(ctx, bson.M{
		"_id":        m.ID,
		"name":       m.Name,
		"email":      m.Email,
		"mobile":     m.Mobile,
		"subject":    m.Subject,
		"message":    m.Body,
		"client_ip":  m.ClientIP,
		"created_at": m.CreatedAt,
	})
	if err != nil {
		return contact.Message{}, errors.Wrap(trapDisconnected(err), "inserting message")
	}
	return m, nil
}

func (repo *contactRepository) QueryMessages(ctx context.Context) ([]contact.Message, error) {
	docs, err := find[contactDoc](ctx, repo.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	msgs := make([]contact.Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, contact.Message{
			ID:        string(d.ID),
			Name:      string(d.Name),
			Email:     string(d.Email),
			Mobile:    string(d.Mobile),
			Subject:   string(d.Subject),
			Body:      string(d.Message),
			ClientIP:  string(d.ClientIP),
			CreatedAt: d.CreatedAt,
		})
	}
	return msgs, nil
}
