package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/fjod/shoestore/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCatalogRepository struct {
	collection *mongo.Collection
}

func NewMongoCatalogRepository(db *mongo.Database) CatalogRepository {
	return &mongoCatalogRepository{
		collection: db.Collection(ShoesCollection),
	}
}

func (m mongoCatalogRepository) ListShoes(ctx context.Context, page Page) ([]domain.Shoe, error) {
	opts := options.Find()
	if !page.IsZero() {
		number := page.Number
		if number < 1 {
			number = 1
		}
		opts.SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetSkip(int64((number - 1) * page.Size)).
			SetLimit(int64(page.Size))
	}

	shoes, err := m.find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list shoes: %w", err)
	}
	return shoes, nil
}

// SearchByBrand matches listings whose brand contains term, ignoring case.
func (m mongoCatalogRepository) SearchByBrand(ctx context.Context, term string) ([]domain.Shoe, error) {
	filter := bson.M{
		"brand": primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"},
	}

	shoes, err := m.find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search shoes: %w", err)
	}
	return shoes, nil
}

func (m mongoCatalogRepository) DistinctFilters(ctx context.Context) (*domain.Filters, error) {
	brands, err := m.distinct(ctx, "shoeDetails.brand")
	if err != nil {
		return nil, err
	}
	colors, err := m.distinct(ctx, "shoeDetails.color")
	if err != nil {
		return nil, err
	}
	sizes, err := m.distinct(ctx, "shoeDetails.size")
	if err != nil {
		return nil, err
	}

	return &domain.Filters{Brands: brands, Colors: colors, Sizes: sizes}, nil
}

func (m mongoCatalogRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Shoe, error) {
	result := make(map[primitive.ObjectID]domain.Shoe, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	shoes, err := m.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find shoes by id: %w", err)
	}
	for _, s := range shoes {
		result[s.ID] = s
	}
	return result, nil
}

// InsertShoes loads listings into the collection, assigning ids where missing.
func (m mongoCatalogRepository) InsertShoes(ctx context.Context, shoes []domain.Shoe) (int, error) {
	if len(shoes) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(shoes))
	for i := range shoes {
		if shoes[i].ID.IsZero() {
			shoes[i].ID = primitive.NewObjectID()
		}
		docs[i] = shoes[i]
	}

	res, err := m.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shoes: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (m mongoCatalogRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "brand", Value: 1}}},
		{Keys: bson.D{{Key: "shoeDetails.brand", Value: 1}}},
		{Keys: bson.D{{Key: "shoeDetails.color", Value: 1}}},
		{Keys: bson.D{{Key: "shoeDetails.size", Value: 1}}},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create shoe indexes: %w", err)
	}
	return nil
}

func (m mongoCatalogRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]domain.Shoe, error) {
	cursor, err := m.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	shoes := make([]domain.Shoe, 0)
	if err := cursor.All(ctx, &shoes); err != nil {
		return nil, err
	}
	if shoes == nil {
		shoes = []domain.Shoe{}
	}
	return shoes, nil
}

func (m mongoCatalogRepository) distinct(ctx context.Context, field string) ([]string, error) {
	values, err := m.collection.Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan distinct %s: %w", field, err)
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := stringify(v)
		if !ok || s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// stringify flattens the scalar types Distinct can decode into.
func stringify(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int32:
		return strconv.Itoa(int(t)), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func NewMongoCatalogLoader(db *mongo.Database) CatalogLoader {
	return &mongoCatalogRepository{
		collection: db.Collection(ShoesCollection),
	}
}
