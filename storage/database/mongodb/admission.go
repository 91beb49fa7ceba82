package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/storage/database"
)

type admissionDoc struct {
	ID           flexString `bson:"_id"`
	StudentName  flexString `bson:"student_name"`
	GuardianName flexString `bson:"guardian_name"`
	Mobile       flexString `bson:"mobile"`
	Email        flexString `bson:"email"`
	Class        flexString `bson:"class"`
	Department   flexString `bson:"department"`
	Status       flexString `bson:"status"`
	StudentID    flexString `bson:"student_id"`
	Roll         flexInt    `bson:"roll"`
	CreatedAt    time.Time  `bson:"created_at"`
	DecidedAt    time.Time  `bson:"decided_at"`
}

func (d admissionDoc) admission() admission.Admission {
	a := admission.Admission{
		ID:           string(d.ID),
		StudentName:  string(d.StudentName),
		GuardianName: string(d.GuardianName),
		Mobile:       string(d.Mobile),
		Email:        string(d.Email),
		Class:        string(d.Class),
		Department:   string(d.Department),
		Status:       string(d.Status),
		StudentID:    string(d.StudentID),
		Roll:         int(d.Roll),
		CreatedAt:    d.CreatedAt,
		DecidedAt:    d.DecidedAt,
	}
	if a.Status == "" {
		a.Status = admission.StatusPending
	}
	if a.Department == "" {
		a.Department = "general"
	}
	return a
}

type admissionRepository struct {
	coll *mongo.Collection
}

var _ admission.Repository = (*admissionRepository)(nil)

func NewAdmissionRepository(db *mongo.Database) admission.Repository {
	return &admissionRepository{coll: db.Collection(database.Admissions)}
}

func (repo *admissionRepository) CreateAdmission(ctx context.Context, a admission.Admission) (admission.Admission, error) {
	a.ID = newID()
	_, err := repo.coll.InsertOne(ctx, bson.M{
		"_id":           a.ID,
		"student_name":  a.StudentName,
		"guardian_name": a.GuardianName,
		"mobile":        a.Mobile,
		"email":         a.Email,
		"class":         a.Class,
		"department":    a.Department,
		"status":        a.Status,
		"created_at":    a.CreatedAt,
	})
	if err != nil {
		return admission.Admission{}, errors.Wrap(trapDisconnected(err), "inserting admission")
	}
	return a, nil
}

func (repo *admissionRepository) GetAdmission(ctx context.Context, id string) (admission.Admission, error) {
	var doc admissionDoc
	if err := repo.coll.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		return admission.Admission{}, trapNoDocsErr(err, admission.ErrNotFound)
	}
	return doc.admission(), nil
}

func (repo *admissionRepository) QueryAdmissions(ctx context.Context, status string) ([]admission.Admission, error) {
	filter := bson.M{}
	switch status {
	case "":
	case admission.StatusPending: // older applications carry no status
		filter["status"] = bson.M{"$in": bson.A{admission.StatusPending, "", nil}}
	default:
		filter["status"] = status
	}
	docs, err := find[admissionDoc](ctx, repo.coll, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	admissions := make([]admission.Admission, 0, len(docs))
	for _, d := range docs {
		admissions = append(admissions, d.admission())
	}
	return admissions, nil
}

func (repo *admissionRepository) SwapAdmission(ctx context.Context, from string, a admission.Admission) error {
	filter := idFilter(a.ID)
	if from == admission.StatusPending {
		filter["status"] = bson.M{"$in": bson.A{admission.StatusPending, "", nil}}
	} else {
		filter["status"] = from
	}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":     a.Status,
		"student_id": a.StudentID,
		"roll":       a.Roll,
		"decided_at": a.DecidedAt,
	}})
	if err != nil {
		return errors.Wrap(trapDisconnected(err), "updating admission")
	}
	if res.MatchedCount == 0 {
		return admission.ErrAlreadyDecided
	}
	return nil
}
