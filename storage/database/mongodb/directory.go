package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/storage/database"
)

type (
	// roleDoc reads teachers, students & nurani_students documents.
	roleDoc struct {
		ID          flexString `bson:"_id"`
		Name        flexString `bson:"name"`
		Email       flexString `bson:"email"`
		LoginMobile flexString `bson:"login_mobile"`
		Password    flexString `bson:"password"`
		Class       flexString `bson:"class"`
		Roll        flexInt    `bson:"roll"`
	}

	profileDoc struct {
		UID       string     `bson:"_id"`
		Name      flexString `bson:"name"`
		Email     flexString `bson:"email"`
		Role      flexString `bson:"role"`
		CreatedAt time.Time  `bson:"created_at"`
	}

	adminDoc struct {
		UID        string     `bson:"_id"`
		Name       flexString `bson:"name"`
		Email      flexString `bson:"email"`
		ShortCode  flexString `bson:"short_code,omitempty"`
		TOTPSecret string     `bson:"totp_secret,omitempty"`
		CreatedAt  time.Time  `bson:"created_at"`
	}
)

func (d roleDoc) record() auth.RoleRecord {
	return auth.RoleRecord{
		ID:          string(d.ID),
		Name:        string(d.Name),
		Email:       string(d.Email),
		LoginMobile: string(d.LoginMobile),
		Secret:      string(d.Password),
		Class:       string(d.Class),
		Roll:        int(d.Roll),
	}
}

func (d adminDoc) record() auth.AdminRecord {
	return auth.AdminRecord{
		UID:        d.UID,
		Name:       string(d.Name),
		Email:      string(d.Email),
		ShortCode:  string(d.ShortCode),
		TOTPSecret: d.TOTPSecret,
		CreatedAt:  d.CreatedAt,
	}
}

type directory struct {
	users          *mongo.Collection
	admins         *mongo.Collection
	teachers       *mongo.Collection
	students       *mongo.Collection
	nuraniStudents *mongo.Collection
}

var _ auth.Directory = (*directory)(nil)

func NewDirectory(db *mongo.Database) auth.Directory {
	return &directory{
		users:          db.Collection(database.Users),
		admins:         db.Collection(database.Admins),
		teachers:       db.Collection(database.Teachers),
		students:       db.Collection(database.Students),
		nuraniStudents: db.Collection(database.NuraniStudents),
	}
}

func (d *directory) findRecords(ctx context.Context, coll *mongo.Collection, field, value string) ([]auth.RoleRecord, error) {
	docs, err := find[roleDoc](ctx, coll, bson.M{field: value}, options.Find().SetLimit(50))
	if err != nil {
		return nil, err
	}
	recs := make([]auth.RoleRecord, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, doc.record())
	}
	return recs, nil
}

func (d *directory) TeachersByEmail(ctx context.Context, email string) ([]auth.RoleRecord, error) {
	return d.findRecords(ctx, d.teachers, "email", email)
}

func (d *directory) NuraniStudentsByMobile(ctx context.Context, mobile string) ([]auth.RoleRecord, error) {
	return d.findRecords(ctx, d.nuraniStudents, "login_mobile", mobile)
}

func (d *directory) StudentsByMobile(ctx context.Context, mobile string) ([]auth.RoleRecord, error) {
	return d.findRecords(ctx, d.students, "login_mobile", mobile)
}

func (d *directory) TeacherExists(ctx context.Context, uid string) (bool, error) {
	n, err := d.teachers.CountDocuments(ctx, idFilter(uid), options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(trapDisconnected(err), "counting teachers")
	}
	return n > 0, nil
}

func (d *directory) Profile(ctx context.Context, uid string) (auth.Profile, error) {
	var doc profileDoc
	if err := d.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc); err != nil {
		return auth.Profile{}, trapNoDocsErr(err, auth.ErrNotFound)
	}
	return auth.Profile{
		UID:       doc.UID,
		Name:      string(doc.Name),
		Email:     string(doc.Email),
		Role:      string(doc.Role),
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (d *directory) SaveProfile(ctx context.Context, p auth.Profile) error {
	_, err := d.users.UpdateOne(ctx,
		bson.M{"_id": p.UID},
		bson.M{
			"$set":         bson.M{"name": p.Name, "email": p.Email, "role": p.Role},
			"$setOnInsert": bson.M{"created_at": p.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)
	return errors.Wrap(trapDisconnected(err), "saving profile")
}

func (d *directory) Admin(ctx context.Context, uid string) (auth.AdminRecord, error) {
	var doc adminDoc
	if err := d.admins.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc); err != nil {
		return auth.AdminRecord{}, trapNoDocsErr(err, auth.ErrNotFound)
	}
	return doc.record(), nil
}

func (d *directory) AdminByEmail(ctx context.Context, email string) (auth.AdminRecord, error) {
	var doc adminDoc
	if err := d.admins.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return auth.AdminRecord{}, trapNoDocsErr(err, auth.ErrNotFound)
	}
	return doc.record(), nil
}

func (d *directory) SaveAdmin(ctx context.Context, a auth.AdminRecord) error {
	set := bson.M{"name": a.Name, "email": a.Email}
	unset := bson.M{}
	if a.ShortCode != "" {
		set["short_code"] = a.ShortCode
	} else {
		unset["short_code"] = ""
	}
	if a.TOTPSecret != "" {
		set["totp_secret"] = a.TOTPSecret
	} else {
		unset["totp_secret"] = ""
	}
	update := bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": a.CreatedAt}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	_, err := d.admins.UpdateOne(ctx, bson.M{"_id": a.UID}, update, options.Update().SetUpsert(true))
	return errors.Wrap(trapDisconnected(err), "saving admin")
}
