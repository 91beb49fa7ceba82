package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core/student"
	"github.com/darulhuda/madrasa/storage/database"
)

type studentDoc struct {
	ID           flexString `bson:"_id"`
	Name         flexString `bson:"name"`
	GuardianName flexString `bson:"guardian_name"`
	Class        flexString `bson:"class"`
	Roll         flexInt    `bson:"roll"`
	LoginMobile  flexString `bson:"login_mobile"`
	Email        flexString `bson:"email,omitempty"`
	Password     flexString `bson:"password"`
	CreatedAt    time.Time  `bson:"created_at"`
}

func (d studentDoc) student(kind string) student.Student {
	return student.Student{
		ID:           string(d.ID),
		Kind:         kind,
		Name:         string(d.Name),
		GuardianName: string(d.GuardianName),
		Class:        string(d.Class),
		Roll:         int(d.Roll),
		LoginMobile:  string(d.LoginMobile),
		Email:        string(d.Email),
		Password:     string(d.Password),
		CreatedAt:    d.CreatedAt,
	}
}

type studentRepository struct {
	colls map[string]*mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *mongo.Database) student.Repository {
	return &studentRepository{colls: map[string]*mongo.Collection{
		student.KindGeneral: db.Collection(database.Students),
		student.KindNurani:  db.Collection(database.NuraniStudents),
	}}
}

func (repo *studentRepository) coll(kind string) (*mongo.Collection, error) {
	if c, ok := repo.colls[kind]; ok {
		return c, nil
	}
	return nil, student.ErrUnknownKind
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	c, err := repo.coll(s.Kind)
	if err != nil {
		return student.Student{}, err
	}
	s.ID = newID()
	_, err = c.InsertOne(ctx, bson.M{
		"_id":           s.ID,
		"name":          s.Name,
		"guardian_name": s.GuardianName,
		"class":         s.Class,
		"roll":          s.Roll,
		"login_mobile":  s.LoginMobile,
		"email":         s.Email,
		"password":      s.Password,
		"created_at":    s.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) { // unique (class, roll)
		return student.Student{}, student.ErrRollTaken
	}
	if err != nil {
		return student.Student{}, errors.Wrap(trapDisconnected(err), "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, kind, id string) error {
	c, err := repo.coll(kind)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return errors.Wrap(trapDisconnected(err), "deleting student")
	}
	if res.DeletedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, kind, id string) (student.Student, error) {
	c, err := repo.coll(kind)
	if err != nil {
		return student.Student{}, err
	}
	var doc studentDoc
	if err := c.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		return student.Student{}, trapNoDocsErr(err, student.ErrNotFound)
	}
	return doc.student(kind), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, kind, class string) ([]student.Student, error) {
	c, err := repo.coll(kind)
	if err != nil {
		return nil, err
	}
	filter := bson.M{}
	if class != "" {
		filter["class"] = class
	}
	opts := options.Find().SetSort(bson.D{{Key: "class", Value: 1}, {Key: "roll", Value: 1}})
	docs, err := find[studentDoc](ctx, c, filter, opts)
	if err != nil {
		return nil, err
	}
	students := make([]student.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.student(kind))
	}
	return students, nil
}

func (repo *studentRepository) MaxRoll(ctx context.Context, kind, class string) (int, error) {
	c, err := repo.coll(kind)
	if err != nil {
		return 0, err
	}
	// rolls may be stored as strings, which sort apart from numbers
	docs, err := find[studentDoc](ctx, c, bson.M{"class": class}, options.Find().SetProjection(bson.M{"roll": 1}))
	if err != nil {
		return 0, err
	}
	var max int
	for _, doc := range docs {
		if int(doc.Roll) > max {
			max = int(doc.Roll)
		}
	}
	return max, nil
}

func (repo *studentRepository) SetStudentPassword(ctx context.Context, kind, id, password string) error {
	c, err := repo.coll(kind)
	if err != nil {
		return err
	}
	res, err := c.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"password": password}})
	if err != nil {
		return errors.Wrap(trapDisconnected(err), "updating student password")
	}
	if res.MatchedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}
