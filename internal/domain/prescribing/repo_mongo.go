package prescribing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicdesk/clinic/internal/platform/mongodb"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

// LabReportDoc is the BSON shape of an embedded lab report.
type LabReportDoc struct {
	ID             string    `bson:"id"`
	Name           string    `bson:"name"`
	Values         string    `bson:"values"`
	ReportDate     time.Time `bson:"reportDate"`
	ReportImageURL *string   `bson:"reportImageUrl,omitempty"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type MedicineDoc struct {
	Name         string `bson:"name"`
	Dosage       string `bson:"dosage,omitempty"`
	Frequency    string `bson:"frequency,omitempty"`
	Duration     string `bson:"duration,omitempty"`
	Instructions string `bson:"instructions,omitempty"`
}

// PrescriptionDoc is the BSON shape of a prescription.
type PrescriptionDoc struct {
	ID         string         `bson:"_id"`
	DoctorID   string         `bson:"doctorId"`
	PatientID  string         `bson:"patientId"`
	Medicines  []MedicineDoc  `bson:"medicines"`
	Diagnosis  string         `bson:"diagnosis,omitempty"`
	Notes      string         `bson:"notes,omitempty"`
	LabTests   []string       `bson:"labTests"`
	LabReports []LabReportDoc `bson:"labReports"`
	Version    int            `bson:"version"`
	CreatedAt  time.Time      `bson:"createdAt"`
	UpdatedAt  time.Time      `bson:"updatedAt"`
}

func NewLabReportDocs(reports []LabReport) []LabReportDoc {
	docs := make([]LabReportDoc, len(reports))
	for i, r := range reports {
		docs[i] = LabReportDoc{
			ID:             r.ID.String(),
			Name:           r.Name,
			Values:         r.Values,
			ReportDate:     r.ReportDate,
			ReportImageURL: r.ReportImageURL,
			Status:         string(r.Status),
			CreatedAt:      r.CreatedAt,
			UpdatedAt:      r.UpdatedAt,
		}
	}
	return docs
}

func (d *LabReportDoc) LabReport() LabReport {
	id, _ := uuid.Parse(d.ID)
	return LabReport{
		ID:             id,
		Name:           d.Name,
		Values:         d.Values,
		ReportDate:     d.ReportDate.UTC(),
		ReportImageURL: d.ReportImageURL,
		Status:         LabReportStatus(d.Status),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func NewPrescriptionDoc(rx *Prescription) PrescriptionDoc {
	meds := make([]MedicineDoc, len(rx.Medicines))
	for i, m := range rx.Medicines {
		meds[i] = MedicineDoc(m)
	}
	labTests := rx.LabTests
	if labTests == nil {
		labTests = []string{}
	}
	return PrescriptionDoc{
		ID:         rx.ID.String(),
		DoctorID:   rx.DoctorID.String(),
		PatientID:  rx.PatientID.String(),
		Medicines:  meds,
		Diagnosis:  rx.Diagnosis,
		Notes:      rx.Notes,
		LabTests:   labTests,
		LabReports: NewLabReportDocs(rx.LabReports),
		Version:    rx.Version,
		CreatedAt:  rx.CreatedAt,
		UpdatedAt:  rx.UpdatedAt,
	}
}

func (d *PrescriptionDoc) Prescription() *Prescription {
	id, _ := uuid.Parse(d.ID)
	doctorID, _ := uuid.Parse(d.DoctorID)
	patientID, _ := uuid.Parse(d.PatientID)

	rx := &Prescription{
		ID:         id,
		DoctorID:   doctorID,
		PatientID:  patientID,
		Medicines:  make([]Medicine, len(d.Medicines)),
		Diagnosis:  d.Diagnosis,
		Notes:      d.Notes,
		LabTests:   append([]string{}, d.LabTests...),
		LabReports: make([]LabReport, len(d.LabReports)),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
	for i, m := range d.Medicines {
		rx.Medicines[i] = Medicine(m)
	}
	for i := range d.LabReports {
		rx.LabReports[i] = d.LabReports[i].LabReport()
	}
	return rx
}

type repoMongo struct {
	collection *mongo.Collection
}

func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{collection: database.Collection(mongodb.PrescriptionsCollection)}
}

// EnsureIndexes creates the indexes the prescription queries rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(mongodb.PrescriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "patientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("PatientPrescriptions"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("CreatedAtId"),
		},
		{
			Keys:    bson.D{{Key: "labReports.reportDate", Value: 1}},
			Options: options.Index().SetName("LabReportDate"),
		},
	})
	return mongodb.Classify("create prescription indexes", err)
}

func (r *repoMongo) Create(ctx context.Context, rx *Prescription) error {
	rx.normalize()
	_, err := r.collection.InsertOne(ctx, NewPrescriptionDoc(rx))
	return mongodb.Classify("insert prescription", err)
}

func (r *repoMongo) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	var doc PrescriptionDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, mongodb.Classify("get prescription", err)
	}
	return doc.Prescription(), nil
}

func (r *repoMongo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	filter := bson.M{"patientId": patientID.String()}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mongodb.Classify("count prescriptions", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, mongodb.Classify("list prescriptions", err)
	}
	defer cursor.Close(ctx)

	var docs []PrescriptionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, mongodb.Classify("decode prescriptions", err)
	}
	out := make([]*Prescription, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].Prescription())
	}
	return out, int(total), nil
}

func (r *repoMongo) SaveLabReports(ctx context.Context, rx *Prescription) error {
	rx.normalize()
	now := time.Now().UTC().Truncate(time.Millisecond)

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": rx.ID.String(), "version": rx.Version},
		bson.M{
			"$set": bson.M{"labReports": NewLabReportDocs(rx.LabReports), "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return mongodb.Classify("save lab reports", err)
	}
	if res.MatchedCount == 1 {
		rx.Version++
		rx.UpdatedAt = now
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": rx.ID.String()})
	if err != nil {
		return mongodb.Classify("save lab reports", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return fmt.Errorf("save lab reports: version %d is stale: %w", rx.Version, storage.ErrConflict)
}
