package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mỗi document lưu thêm đường dẫn collection và id gốc để truy vấn theo group.
const (
	metaPath = "_path"
	metaID   = "_docId"
)

// MongoStore maps a collection path onto the Mongo collection named after its
// group. _id is "path/id" so private copies never collide.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func docKey(path, id string) string { return path + "/" + id }

func (s *MongoStore) collection(path string) *mongo.Collection {
	return s.db.Collection(Group(path))
}

// EnsureIndexes creates the _path index used by every path scoped query.
func (s *MongoStore) EnsureIndexes(ctx context.Context, groups ...string) error {
	for _, g := range groups {
		_, err := s.db.Collection(g).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: metaPath, Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", g, err)
		}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, path, id string, out interface{}) error {
	raw, err := s.collection(path).FindOne(ctx, bson.M{"_id": docKey(path, id)}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
		}
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (s *MongoStore) List(ctx context.Context, path string, filter Filter) ([]Snapshot, error) {
	q := append(bson.D{{Key: metaPath, Value: path}}, filter.toBSON("")...)
	return s.find(ctx, s.collection(path), q)
}

func (s *MongoStore) ListGroup(ctx context.Context, group string, filter Filter) ([]Snapshot, error) {
	return s.find(ctx, s.db.Collection(group), filter.toBSON(""))
}

func (s *MongoStore) find(ctx context.Context, coll *mongo.Collection, q bson.D) ([]Snapshot, error) {
	cursor, err := coll.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Snapshot
	for cursor.Next(ctx) {
		raw := make(bson.Raw, len(cursor.Current))
		copy(raw, cursor.Current)
		out = append(out, snapshotOf(raw))
	}
	return out, cursor.Err()
}

func snapshotOf(raw bson.Raw) Snapshot {
	path, _ := raw.Lookup(metaPath).StringValueOK()
	id, _ := raw.Lookup(metaID).StringValueOK()
	return Snapshot{Ref: Ref{Path: path, ID: id}, Raw: raw}
}

func (s *MongoStore) Create(ctx context.Context, path string, doc interface{}) (string, error) {
	id := uuid.NewString()
	if err := s.Put(ctx, path, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) Put(ctx context.Context, path, id string, doc interface{}) error {
	d, err := withMeta(doc, path, id)
	if err != nil {
		return err
	}
	_, err = s.collection(path).ReplaceOne(ctx, bson.M{"_id": docKey(path, id)}, d, options.Replace().SetUpsert(true))
	return err
}

func withMeta(doc interface{}, path, id string) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	out := bson.D{
		{Key: "_id", Value: docKey(path, id)},
		{Key: metaPath, Value: path},
		{Key: metaID, Value: id},
	}
	for _, e := range fields {
		if e.Key == "_id" || e.Key == metaPath || e.Key == metaID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func updateDoc(fields map[string]interface{}) bson.D {
	set := bson.M{}
	push := bson.M{}
	for k, v := range fields {
		if av, ok := v.(appendValues); ok {
			push[k] = bson.M{"$each": av.values}
			continue
		}
		set[k] = v
	}
	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(push) > 0 {
		update = append(update, bson.E{Key: "$push", Value: push})
	}
	return update
}

func (s *MongoStore) Merge(ctx context.Context, path, id string, fields map[string]interface{}) error {
	update := append(updateDoc(fields), bson.E{Key: "$setOnInsert", Value: bson.M{metaPath: path, metaID: id}})
	_, err := s.collection(path).UpdateOne(ctx, bson.M{"_id": docKey(path, id)}, update, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) Patch(ctx context.Context, path, id string, fields map[string]interface{}) error {
	return s.PatchIf(ctx, path, id, nil, fields)
}

func (s *MongoStore) PatchIf(ctx context.Context, path, id string, cond Filter, fields map[string]interface{}) error {
	coll := s.collection(path)
	q := append(bson.D{{Key: "_id", Value: docKey(path, id)}}, cond.toBSON("")...)
	res, err := coll.UpdateOne(ctx, q, updateDoc(fields))
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if len(cond) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": docKey(path, id)})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	return fmt.Errorf("%w: %s/%s", ErrConditionFailed, path, id)
}

func (s *MongoStore) Delete(ctx context.Context, path, id string) error {
	_, err := s.collection(path).DeleteOne(ctx, bson.M{"_id": docKey(path, id)})
	return err
}

// Subscribe needs a replica set (change streams).
func (s *MongoStore) Subscribe(ctx context.Context, path string, filter Filter) (<-chan Snapshot, error) {
	match := bson.D{
		{Key: "operationType", Value: bson.M{"$in": bson.A{"insert", "update", "replace"}}},
		{Key: "fullDocument." + metaPath, Value: path},
	}
	match = append(match, filter.toBSON("fullDocument.")...)
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}

	cs, err := s.collection(path).Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream on %s: %w", path, err)
	}

	ch := make(chan Snapshot, 16)
	go func() {
		defer close(ch)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var event struct {
				FullDocument bson.Raw `bson:"fullDocument"`
			}
			if err := cs.Decode(&event); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to decode change event")
				continue
			}
			select {
			case ch <- snapshotOf(event.FullDocument):
			case <-ctx.Done():
				return
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("path", path).Msg("change stream closed")
		}
	}()
	return ch, nil
}
