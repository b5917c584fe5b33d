package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

// MongoStore keeps one document per project in a single collection and
// mutates fileSets with field-level operators only.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a new MongoStore
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

var summaryProjection = bson.D{
	{Key: "_id", Value: 0},
	{Key: "projectId", Value: 1},
	{Key: "projectName", Value: 1},
	{Key: "lang", Value: 1},
	{Key: "lastUpdatedDate", Value: 1},
}

func byID(projectID string) bson.D {
	return bson.D{{Key: "projectId", Value: projectID}}
}

func (s *MongoStore) Create(ctx context.Context, p *domain.Project) error {
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ProjectExists(p.ProjectID)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}

	out := make([]domain.ProjectSummary, 0, 16)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 0}})

	var p domain.Project
	err := s.coll.FindOne(ctx, byID(projectID), opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ProjectNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}

	normalize(&p)
	return &p, nil
}

func (s *MongoStore) AppendFile(ctx context.Context, projectID string, f domain.File, lastUpdated string) error {
	filter := bson.D{
		{Key: "projectId", Value: projectID},
		{Key: "fileSets.filePath", Value: bson.D{{Key: "$ne", Value: f.FilePath}}},
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "fileSets", Value: f}}},
		{Key: "$set", Value: bson.D{{Key: "lastUpdatedDate", Value: lastUpdated}}},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("push file: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, projectID, domain.FileExists(f.FilePath))
	}
	return nil
}

func (s *MongoStore) UpdateFileCode(ctx context.Context, projectID string, u domain.CodeUpdate) error {
	filter := bson.D{
		{Key: "projectId", Value: projectID},
		{Key: "fileSets.filePath", Value: u.FilePath},
	}
	set := bson.D{
		{Key: "fileSets.$.code", Value: u.Code},
		{Key: "lastUpdatedDate", Value: u.LastUpdatedDate},
	}
	if u.ResetRuntime {
		set = append(set,
			bson.E{Key: "dataStatus", Value: u.DataStatus},
			bson.E{Key: "logs", Value: bson.A{}},
		)
	}

	res, err := s.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("set file code: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, projectID, domain.FileNotFound(u.FilePath))
	}
	return nil
}

func (s *MongoStore) RenameFile(ctx context.Context, projectID, oldPath, newPath, lastUpdated string) error {
	filter := bson.D{
		{Key: "projectId", Value: projectID},
		{Key: "$and", Value: bson.A{
			bson.D{{Key: "fileSets.filePath", Value: oldPath}},
			bson.D{{Key: "fileSets.filePath", Value: bson.D{{Key: "$ne", Value: newPath}}}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "fileSets.$[f].filePath", Value: newPath},
		{Key: "lastUpdatedDate", Value: lastUpdated},
	}}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.D{{Key: "f.filePath", Value: oldPath}}},
	})

	res, err := s.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	p, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.FindFile(oldPath) < 0 {
		return domain.FileNotFound(oldPath)
	}
	return domain.FileExists(newPath)
}

func (s *MongoStore) RemoveFile(ctx context.Context, projectID, filePath, lastUpdated string) error {
	filter := bson.D{
		{Key: "projectId", Value: projectID},
		{Key: "fileSets.filePath", Value: filePath},
	}
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "fileSets", Value: bson.D{{Key: "filePath", Value: filePath}}}}},
		{Key: "$set", Value: bson.D{{Key: "lastUpdatedDate", Value: lastUpdated}}},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("pull file: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, projectID, domain.FileNotFound(filePath))
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, projectID string) error {
	res, err := s.coll.DeleteOne(ctx, byID(projectID))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFound("Project not found or already deleted.")
	}
	return nil
}

// Migrate creates the unique index that backs projectId uniqueness.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "projectId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("projectId_unique"),
	})
	if err != nil {
		return fmt.Errorf("create projectId index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// explainMiss turns a guarded update that matched nothing into the right
// error: the project is gone, or the guard (fileErr) did not hold.
func (s *MongoStore) explainMiss(ctx context.Context, projectID string, fileErr error) error {
	n, err := s.coll.CountDocuments(ctx, byID(projectID), options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count project: %w", err)
	}
	if n == 0 {
		return domain.ProjectNotFound()
	}
	return fileErr
}

// normalize replaces nil collections with empty ones so documents encode as
// [] and {} rather than null.
func normalize(p *domain.Project) {
	if p.FileSets == nil {
		p.FileSets = []domain.File{}
	}
	if p.Dependencies == nil {
		p.Dependencies = map[string]string{}
	}
	if p.Logs != nil && *p.Logs == nil {
		empty := []string{}
		p.Logs = &empty
	}
}

var _ Store = (*MongoStore)(nil)
