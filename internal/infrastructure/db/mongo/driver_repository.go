package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shiptrack/tracking-system/internal/core/domain"
)

const collectionDrivers = "drivers"

type DriverRepository struct {
	col *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) *DriverRepository {
	return &DriverRepository{col: db.Collection(collectionDrivers)}
}

// EnsureIndexes creates the unique username index drivers are looked up by.
func (r *DriverRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new driver record.
func (r *DriverRepository) Create(ctx context.Context, d *domain.Driver) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, d)
	return err
}

// FindByUsername retrieves a driver by username.
func (r *DriverRepository) FindByUsername(ctx context.Context, username string) (*domain.Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d domain.Driver
	err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDriverNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns all driver records, newest first.
func (r *DriverRepository) List(ctx context.Context) ([]*domain.Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var drivers []*domain.Driver
	if err := cur.All(ctx, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// AddAssignment records a shipment on the driver's assignment list.
// Re-assignment of the same tracking number is a no-op.
func (r *DriverRepository) AddAssignment(ctx context.Context, driverID, trackingNumber string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"username": driverID},
		bson.M{"$addToSet": bson.M{"assigned_shipments": trackingNumber}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrDriverNotFound
	}
	return nil
}

// UpdateLastSeen records the driver's most recent reported position. The
// write is best-effort bookkeeping; a missing driver is not an error.
func (r *DriverRepository) UpdateLastSeen(ctx context.Context, driverID string, pos domain.Coordinates, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"username": driverID},
		bson.M{"$set": bson.M{
			"last_position": bson.M{"lat": pos.Lat, "lng": pos.Lng},
			"last_seen_at":  at.UTC(),
		}},
	)
	return err
}
