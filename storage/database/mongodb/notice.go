package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/storage/database"
)

type noticeDoc struct {
	ID          flexString `bson:"_id"`
	Title       flexString `bson:"title"`
	Body        flexString `bson:"body"`
	Pinned      bool       `bson:"pinned"`
	Author      flexString `bson:"author"`
	PublishedAt time.Time  `bson:"published_at"`
}

type noticeRepository struct {
	coll *mongo.Collection
}

var _ notice.Repository = (*noticeRepository)(nil)

func NewNoticeRepository(db *mongo.Database) notice.Repository {
	return &noticeRepository{coll: db.Collection(database.Notices)}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	n.ID = newID()
	_, err := repo.coll.InsertOne(ctx, bson.M{
		"_id":          n.ID,
		"title":        n.Title,
		"body":         n.Body,
		"pinned":       n.Pinned,
		"author":       n.Author,
		"published_at": n.PublishedAt,
	})
	if err != nil {
		return notice.Notice{}, errors.Wrap(trapDisconnected(err), "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context, limit int) ([]notice.Notice, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "published_at", Value: -1}}).
		SetLimit(int64(limit))
	docs, err := find[noticeDoc](ctx, repo.coll, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	notices := make([]notice.Notice, 0, len(docs))
	for _, d := range docs {
		notices = append(notices, notice.Notice{
			ID:          string(d.ID),
			Title:       string(d.Title),
			Body:        string(d.Body),
			Pinned:      d.Pinned,
			Author:      string(d.Author),
			PublishedAt: d.PublishedAt,
		})
	}
	return notices, nil
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return errors.Wrap(trapDisconnected(err), "deleting notice")
	}
	if res.DeletedCount == 0 {
		return notice.ErrNotFound
	}
	return nil
}
