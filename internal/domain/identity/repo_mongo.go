package identity

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicdesk/clinic/internal/platform/mongodb"
)

// PatientDoc is the BSON shape of a patient. Ids are stored as strings so
// they can be joined against prescriptions.patientId with $lookup.
type PatientDoc struct {
	ID          string     `bson:"_id"`
	CardID      int64      `bson:"cardId"`
	Name        string     `bson:"name"`
	Email       string     `bson:"email,omitempty"`
	Phone       string     `bson:"phone,omitempty"`
	Gender      string     `bson:"gender,omitempty"`
	Age         *int       `bson:"age,omitempty"`
	DateOfBirth *time.Time `bson:"dateOfBirth,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func NewPatientDoc(p *Patient) PatientDoc {
	return PatientDoc{
		ID:          p.ID.String(),
		CardID:      p.CardID,
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		Gender:      p.Gender,
		Age:         p.Age,
		DateOfBirth: p.DateOfBirth,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Patient converts back; an unparsable id yields uuid.Nil.
func (d *PatientDoc) Patient() *Patient {
	id, _ := uuid.Parse(d.ID)
	return &Patient{
		ID:          id,
		CardID:      d.CardID,
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		Gender:      d.Gender,
		Age:         d.Age,
		DateOfBirth: d.DateOfBirth,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type patientRepoMongo struct {
	collection *mongo.Collection
}

func NewPatientRepoMongo(database *mongo.Database) PatientRepository {
	return &patientRepoMongo{collection: database.Collection(mongodb.PatientsCollection)}
}

// EnsurePatientIndexes creates the unique card id index and the name index.
func EnsurePatientIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(mongodb.PatientsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cardId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("UniqueCardId"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("PatientName"),
		},
	})
	return mongodb.Classify("create patient indexes", err)
}

func (r *patientRepoMongo) Create(ctx context.Context, p *Patient) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, NewPatientDoc(p))
	return mongodb.Classify("insert patient", err)
}

func (r *patientRepoMongo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var doc PatientDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, mongodb.Classify("get patient", err)
	}
	return doc.Patient(), nil
}

func (r *patientRepoMongo) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	filter := bson.M{}
	if term != "" {
		pattern := containsRegex(term)
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"phone": pattern},
			bson.M{"email": pattern},
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mongodb.Classify("count patients", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "cardId", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, mongodb.Classify("list patients", err)
	}
	defer cursor.Close(ctx)

	var docs []PatientDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, mongodb.Classify("decode patients", err)
	}
	patients := make([]*Patient, 0, len(docs))
	for i := range docs {
		patients = append(patients, docs[i].Patient())
	}
	return patients, int(total), nil
}

func (r *patientRepoMongo) MaxCardID(ctx context.Context) (int64, error) {
	var doc struct {
		CardID int64 `bson:"cardId"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "cardId", Value: -1}}).
		SetProjection(bson.M{"cardId": 1})
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, mongodb.Classify("max card id", err)
	}
	return doc.CardID, nil
}

// containsRegex builds a case-insensitive literal substring match.
func containsRegex(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}
