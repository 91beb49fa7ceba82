package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core"
)

// Collections
const (
	Users               = "users"
	Admins              = "admins"
	Teachers            = "teachers"
	Students            = "students"
	NuraniStudents      = "nurani_students"
	Admissions          = "admissions"
	Committee           = "committee"
	Memorable           = "memorable"
	Notices             = "notices"
	Contacts            = "contacts"
	Events              = "events"
	HifzDepartment      = "hifz_department"
	ExamRoutines        = "exam_routines"
	Settings            = "settings"
	Assignments         = "assignments"
	TeacherNotes        = "teacher_notes"
	StudentWarnings     = "student_warnings"
	Attendance          = "attendance"
	AttendanceSummaries = "attendance_summaries"
	Results             = "results"
	SuccessStudents     = "success_students"
	Identities          = "identities"
)

// Open connects to the MongoDB deployment of conf and waits for it to be ready.
func Open(ctx context.Context, conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(conf.Mongo.URI).
		SetConnectTimeout(conf.Mongo.ConnectTimeout).
		SetAppName(conf.AppName)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongo")
	}
	if err := ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, client.Database(conf.Mongo.Database), nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 20
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func() *options.IndexOptions { return options.Index().SetUnique(true) }
	indexes := map[string][]mongo.IndexModel{
		Identities: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique()},
		},
		Admins: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		Teachers: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		Students: {
			{Keys: bson.D{{Key: "login_mobile", Value: 1}}},
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "roll", Value: -1}}, Options: unique()},
		},
		NuraniStudents: {
			{Keys: bson.D{{Key: "login_mobile", Value: 1}}},
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "roll", Value: -1}}, Options: unique()},
		},
		Notices: {
			{Keys: bson.D{{Key: "pinned", Value: -1}, {Key: "published_at", Value: -1}}},
		},
		Admissions: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		Contacts: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		Attendance: {
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "date", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
		AttendanceSummaries: {
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "date", Value: 1}}, Options: unique()},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}
