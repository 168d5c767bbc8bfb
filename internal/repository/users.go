package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type MongoUsers struct {
	col *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{col: db.Collection("users")}
}

func (r *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUsers) Create(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.Email = normalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Wishlist == nil {
		u.Wishlist = []primitive.ObjectID{}
	}
	if u.Liked == nil {
		u.Liked = []primitive.ObjectID{}
	}

	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

func (r *MongoUsers) UpdateRole(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}})
}

func (r *MongoUsers) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now()}})
}

// UpgradeToAdmin uses an update pipeline so the name is only filled when the
// stored one is empty, in the same single-document write. Values inside a
// pipeline are expressions, so caller data goes through $literal: a bcrypt
// hash starts with "$" and would otherwise be read as a field path.
func (r *MongoUsers) UpgradeToAdmin(ctx context.Context, id primitive.ObjectID, role models.Role, hash, name string) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"role":         literal(role),
			"passwordHash": literal(hash),
			"provider":     literal(models.ProviderCredentials),
			"updatedAt":    time.Now(),
			"name": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$strLenCP": bson.M{"$ifNull": bson.A{"$name", ""}}}, 0}},
				"$name",
				literal(name),
			}},
		}}},
	}
	return r.updateByID(ctx, id, pipeline)
}

func (r *MongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Name != nil {
		set["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.IsSubscribed != nil {
		set["isSubscribed"] = *upd.IsSubscribed
	}
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *MongoUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUsers) CountByRoles(ctx context.Context, roles ...models.Role) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"role": bson.M{"$in": roles}})
}

func (r *MongoUsers) List(ctx context.Context, filter UserFilter, page, limit int) ([]models.User, int64, error) {
	query := bson.M{}
	if len(filter.Roles) > 0 {
		query["role"] = bson.M{"$in": filter.Roles}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := regexp.QuoteMeta(search)
		query["$or"] = bson.A{
			bson.M{"email": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"passwordHash": 0})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *MongoUsers) IncrementOrderStats(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$inc": bson.M{"stats.totalOrders": 1, "stats.totalSpent": amount},
		"$set": bson.M{"stats.lastOrderAt": at, "updatedAt": at},
	})
}

func (r *MongoUsers) AddToSet(ctx context.Context, id primitive.ObjectID, field string, productID primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$addToSet": bson.M{field: productID}})
}

func (r *MongoUsers) Pull(ctx context.Context, id primitive.ObjectID, field string, productID primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$pull": bson.M{field: productID}})
}

func (r *MongoUsers) updateByID(ctx context.Context, id primitive.ObjectID, update interface{}) error {
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func literal(v interface{}) bson.M {
	return bson.M{"$literal": v}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
