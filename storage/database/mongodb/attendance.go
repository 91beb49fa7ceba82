package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/storage/database"
)

type sheetDoc struct {
	ID        flexString            `bson:"_id"`
	Class     flexString            `bson:"class"`
	Date      flexString            `bson:"date"`
	Entries   map[string]flexString `bson:"entries"`
	TakenBy   flexString            `bson:"taken_by"`
	Edits     flexInt               `bson:"edits"`
	Locked    bool                  `bson:"locked"`
	CreatedAt time.Time             `bson:"created_at"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

func (d sheetDoc) sheet() attendance.Sheet {
	entries := make(map[string]string, len(d.Entries))
	for roll, status := range d.Entries {
		entries[roll] = string(status)
	}
	return attendance.Sheet{
		ID:        string(d.ID),
		Class:     string(d.Class),
		Date:      string(d.Date),
		Entries:   entries,
		TakenBy:   string(d.TakenBy),
		Edits:     int(d.Edits),
		Locked:    d.Locked,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type attendanceRepository struct {
	sheets    *mongo.Collection
	summaries *mongo.Collection
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *mongo.Database) attendance.Repository {
	return &attendanceRepository{
		sheets:    db.Collection(database.Attendance),
		summaries: db.Collection(database.AttendanceSummaries),
	}
}

func (repo *attendanceRepository) findOne(ctx context.Context, filter interface{}) (attendance.Sheet, error) {
	var doc sheetDoc
	if err := repo.sheets.FindOne(ctx, filter).Decode(&doc); err != nil {
		return attendance.Sheet{}, trapNoDocsErr(err, attendance.ErrNotFound)
	}
	return doc.sheet(), nil
}

func (repo *attendanceRepository) FindSheet(ctx context.Context, class, date string) (attendance.Sheet, error) {
	return repo.findOne(ctx, bson.M{"class": class, "date": date})
}

func (repo *attendanceRepository) GetSheet(ctx context.Context, id string) (attendance.Sheet, error) {
	return repo.findOne(ctx, idFilter(id))
}

func (repo *attendanceRepository) CreateSheet(ctx context.Context, s attendance.Sheet) (attendance.Sheet, error) {
	s.ID = newID()
	_, err := repo.sheets.InsertOne(ctx, bson.M{
		"_id":        s.ID,
		"class":      s.Class,
		"date":       s.Date,
		"entries":    s.Entries,
		"taken_by":   s.TakenBy,
		"edits":      s.Edits,
		"locked":     s.Locked,
		"created_at": s.CreatedAt,
		"updated_at": s.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) { // taken concurrently: this submission is the edit
			s.ID = ""
			return repo.EditSheet(ctx, s)
		}
		return attendance.Sheet{}, errors.Wrap(trapDisconnected(err), "inserting sheet")
	}
	return s, nil
}

func (repo *attendanceRepository) EditSheet(ctx context.Context, s attendance.Sheet) (attendance.Sheet, error) {
	filter := bson.M{"class": s.Class, "date": s.Date, "locked": bson.M{"$ne": true}}
	update := bson.M{
		"$set": bson.M{"entries": s.Entries, "taken_by": s.TakenBy, "updated_at": s.UpdatedAt, "locked": true},
		"$inc": bson.M{"edits": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc sheetDoc
	if err := repo.sheets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return attendance.Sheet{}, attendance.ErrLocked
		}
		return attendance.Sheet{}, errors.Wrap(trapDisconnected(err), "editing sheet")
	}
	return doc.sheet(), nil
}

func (repo *attendanceRepository) UnlockSheet(ctx context.Context, id string) (attendance.Sheet, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc sheetDoc
	err := repo.sheets.FindOneAndUpdate(ctx, idFilter(id), bson.M{"$set": bson.M{"locked": false}}, opts).Decode(&doc)
	if err != nil {
		return attendance.Sheet{}, trapNoDocsErr(err, attendance.ErrNotFound)
	}
	return doc.sheet(), nil
}

func (repo *attendanceRepository) QuerySheets(ctx context.Context, class, date string) ([]attendance.Sheet, error) {
	filter := bson.M{}
	if class != "" {
		filter["class"] = class
	}
	if date != "" {
		filter["date"] = date
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "class", Value: 1}})
	docs, err := find[sheetDoc](ctx, repo.sheets, filter, opts)
	if err != nil {
		return nil, err
	}
	sheets := make([]attendance.Sheet, 0, len(docs))
	for _, d := range docs {
		sheets = append(sheets, d.sheet())
	}
	return sheets, nil
}

func (repo *attendanceRepository) SaveSummary(ctx context.Context, sum attendance.Summary) error {
	_, err := repo.summaries.UpdateOne(ctx,
		bson.M{"class": sum.Class, "date": sum.Date},
		bson.M{"$set": bson.M{
			"present":    sum.Present,
			"absent":     sum.Absent,
			"late":       sum.Late,
			"leave":      sum.Leave,
			"total":      sum.Total,
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return errors.Wrap(trapDisconnected(err), "saving summary")
}

func (repo *attendanceRepository) QuerySummaries(ctx context.Context, date string) ([]attendance.Summary, error) {
	type summaryDoc struct {
		Class   flexString `bson:"class"`
		Date    flexString `bson:"date"`
		Present flexInt    `bson:"present"`
		Absent  flexInt    `bson:"absent"`
		Late    flexInt    `bson:"late"`
		Leave   flexInt    `bson:"leave"`
		Total   flexInt    `bson:"total"`
	}
	filter := bson.M{}
	if date != "" {
		filter["date"] = date
	}
	docs, err := find[summaryDoc](ctx, repo.summaries, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "class", Value: 1}}))
	if err != nil {
		return nil, err
	}
	sums := make([]attendance.Summary, 0, len(docs))
	for _, d := range docs {
		sums = append(sums, attendance.Summary{
			Class:   string(d.Class),
			Date:    string(d.Date),
			Present: int(d.Present),
			Absent:  int(d.Absent),
			Late:    int(d.Late),
			Leave:   int(d.Leave),
			Total:   int(d.Total),
		})
	}
	return sums, nil
}
