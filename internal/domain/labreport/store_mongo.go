package labreport

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/mongodb"
)

type mongoStore struct {
	prescriptions *mongo.Collection
}

func NewMongoStore(database *mongo.Database) Store {
	return &mongoStore{prescriptions: database.Collection(mongodb.PrescriptionsCollection)}
}

var mongoSortField = map[SortKey]string{
	SortCreatedAt:   "labReports.createdAt",
	SortUpdatedAt:   "labReports.updatedAt",
	SortReportDate:  "labReports.reportDate",
	SortName:        "labReports.name",
	SortStatus:      "labReports.status",
	SortPatientName: "patient.name",
}

// buildPipeline unwinds the embedded lab reports, joins patients and returns
// the page and the total from a single $facet.
func buildPipeline(plan Plan) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"labReports.0": bson.M{"$exists": true}}}},
		{{Key: "$unwind", Value: bson.M{"path": "$labReports", "includeArrayIndex": "idx"}}},
	}

	if plan.From != nil || plan.To != nil {
		dateRange := bson.M{}
		if plan.From != nil {
			dateRange["$gte"] = *plan.From
		}
		if plan.To != nil {
			dateRange["$lte"] = *plan.To
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"labReports.reportDate": dateRange}}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         mongodb.PatientsCollection,
			"localField":   "patientId",
			"foreignField": "_id",
			"as":           "patient",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{"path": "$patient", "preserveNullAndEmptyArrays": true}}},
	)

	if plan.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(plan.Search), "$options": "i"}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"patient.name": pattern},
			bson.M{"patient.phone": pattern},
			bson.M{"patient.email": pattern},
			bson.M{"labReports.name": pattern},
		}}}})
	}

	field, ok := mongoSortField[plan.Sort]
	if !ok {
		field = mongoSortField[SortCreatedAt]
	}
	dir := 1
	if plan.Desc {
		dir = -1
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: field, Value: dir},
			{Key: "createdAt", Value: 1},
			{Key: "_id", Value: 1},
			{Key: "idx", Value: 1},
		}}},
		bson.D{{Key: "$facet", Value: bson.M{
			"meta": bson.A{bson.M{"$count": "total"}},
			"data": bson.A{
				bson.M{"$skip": plan.Page.Offset()},
				bson.M{"$limit": plan.Page.Limit},
				bson.M{"$project": bson.M{
					"_id":        1,
					"createdAt":  1,
					"idx":        1,
					"labReports": 1,
					"patient":    1,
				}},
			},
		}}},
	)
	return pipeline
}

type searchFacet struct {
	Meta []struct {
		Total int `bson:"total"`
	} `bson:"meta"`
	Data []struct {
		ID        string                   `bson:"_id"`
		CreatedAt time.Time                `bson:"createdAt"`
		Idx       int64                    `bson:"idx"`
		LabReport prescribing.LabReportDoc `bson:"labReports"`
		Patient   *identity.PatientDoc     `bson:"patient"`
	} `bson:"data"`
}

func (s *mongoStore) Search(ctx context.Context, plan Plan) ([]Row, int, error) {
	cursor, err := s.prescriptions.Aggregate(ctx, buildPipeline(plan), options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, 0, mongodb.Classify("search lab reports", err)
	}
	defer cursor.Close(ctx)

	var facets []searchFacet
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, 0, mongodb.Classify("decode lab reports", err)
	}
	if len(facets) == 0 {
		return []Row{}, 0, nil
	}

	facet := facets[0]
	total := 0
	if len(facet.Meta) > 0 {
		total = facet.Meta[0].Total
	}

	rows := make([]Row, 0, len(facet.Data))
	for _, d := range facet.Data {
		id, _ := uuid.Parse(d.ID)
		row := Row{
			PrescriptionID:        id,
			PrescriptionCreatedAt: d.CreatedAt.UTC(),
			Index:                 int(d.Idx),
			Report:                d.LabReport.LabReport(),
		}
		if d.Patient != nil {
			row.Patient = d.Patient.Patient()
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}
