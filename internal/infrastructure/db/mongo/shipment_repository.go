package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

const collectionShipments = "shipments"

type ShipmentRepository struct {
	col *mongo.Collection
}

func NewShipmentRepository(db *mongo.Database) *ShipmentRepository {
	return &ShipmentRepository{col: db.Collection(collectionShipments)}
}

// Create inserts a new shipment document.
func (r *ShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateShipment
		}
		return err
	}
	return nil
}

// FindByTrackingNumber retrieves a shipment by tracking number.
func (r *ShipmentRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s domain.Shipment
	err := r.col.FindOne(ctx, bson.M{"tracking_number": trackingNumber}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpdatePosition writes the observed position to every listed shipment in one
// bulk update. Unknown tracking numbers simply do not match the filter; the
// batch never fails because of them.
func (r *ShipmentRepository) UpdatePosition(ctx context.Context, trackingNumbers []string, pos domain.Coordinates, driverID string, observedAt time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"current_position": bson.M{"lat": pos.Lat, "lng": pos.Lng},
		"updated_at":       observedAt.UTC(),
	}
	if driverID != "" {
		set["driver_id"] = driverID
	}

	res, err := r.col.UpdateMany(ctx,
		bson.M{"tracking_number": bson.M{"$in": trackingNumbers}},
		bson.M{"$set": set},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// AppendEventAndSetStatus performs the compare-and-set status transition: the
// update matches only while the document still holds the status the caller's
// decision was based on. Losing a race returns domain.ErrStatusConflict so
// the caller can re-read and re-evaluate; two simultaneous reports can never
// both append the same transition event.
func (r *ShipmentRepository) AppendEventAndSetStatus(ctx context.Context, trackingNumber string, expected, next domain.ShipmentStatus, event domain.ShipmentEvent) (*domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"tracking_number": trackingNumber,
		"status":          string(expected),
	}
	update := bson.M{
		"$set": bson.M{
			"status":           string(next),
			"current_location": event.Location,
			"updated_at":       event.Timestamp.UTC(),
		},
		"$push": bson.M{"events": event},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Shipment
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// No match: either the shipment is gone or its status moved underneath
	// us. Distinguish so the caller can retry on conflict only.
	n, countErr := r.col.CountDocuments(ctx, bson.M{"tracking_number": trackingNumber})
	if countErr != nil {
		return nil, countErr
	}
	if n == 0 {
		return nil, domain.ErrShipmentNotFound
	}
	return nil, domain.ErrStatusConflict
}

// AssignDriver links a driver to a shipment.
func (r *ShipmentRepository) AssignDriver(ctx context.Context, trackingNumber, driverID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"tracking_number": trackingNumber},
		bson.M{"$set": bson.M{"driver_id": driverID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// List returns a page of shipments matching filter and the total count.
func (r *ShipmentRepository) List(ctx context.Context, filter ports.ListShipmentsFilter) ([]*domain.Shipment, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DriverID != "" {
		query["driver_id"] = filter.DriverID
	}
	if filter.Search != "" {
		pattern := bson.M{"$regex": filter.Search, "$options": "i"}
		query["$or"] = []bson.M{
			{"tracking_number": pattern},
			{"delivery_address": pattern},
		}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var shipments []*domain.Shipment
	if err := cur.All(ctx, &shipments); err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// EnsureIndexes creates necessary indexes on the shipments collection.
func (r *ShipmentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tracking_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "driver_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
