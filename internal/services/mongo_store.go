package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
)

const (
	profilesCollection = "profiles"
	grantsCollection   = "access_grants"
	usersCollection    = "user_profiles"
)

type MongoStore struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
	grantsCol   *mongo.Collection
	usersCol    *mongo.Collection
	logger      *zap.Logger
}

type MongoOptions struct {
	URI      string
	Database string
	// TLS pins the connection to TLS 1.2, as hosted clusters require.
	TLS bool
}

func NewMongoStore(ctx context.Context, opts MongoOptions, logger *zap.Logger) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.TLS {
		clientOpts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(opts.Database)
	s := &MongoStore{
		client:      client,
		db:          db,
		profilesCol: db.Collection(profilesCollection),
		grantsCol:   db.Collection(grantsCollection),
		usersCol:    db.Collection(usersCollection),
		logger:      logger,
	}

	// Best-effort indexes; the unique ones back the slug and grant invariants.
	if _, err := s.profilesCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "is_default", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_default": true}),
		},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}); err != nil {
		logger.Warn("create profile indexes", zap.Error(err))
	}
	if _, err := s.grantsCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "profile_id", Value: 1}, {Key: "user_email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_email", Value: 1}}},
	}); err != nil {
		logger.Warn("create grant indexes", zap.Error(err))
	}

	logger.Info("mongodb connected", zap.String("db", opts.Database))
	return s, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	if _, err := s.profilesCol.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *MongoStore) GetProfileBySlug(ctx context.Context, slug string) (*models.Profile, error) {
	return s.findProfile(ctx, bson.M{"slug": slug})
}

func (s *MongoStore) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.findProfile(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findProfile(ctx context.Context, filter bson.M) (*models.Profile, error) {
	var p models.Profile
	if err := s.profilesCol.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	cur, err := s.profilesCol.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{
		{Key: "is_default", Value: -1},
		{Key: "is_template", Value: -1},
		{Key: "title", Value: 1},
	}))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*models.Profile, 0)
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out = append(out, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ListSlugs(ctx context.Context) ([]string, error) {
	cur, err := s.profilesCol.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"slug": 1}))
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]string, 0)
	for cur.Next(ctx) {
		var d struct {
			Slug string `bson:"slug"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode slug: %w", err)
		}
		out = append(out, d.Slug)
	}
	return out, cur.Err()
}

func (s *MongoStore) UpdateProfile(ctx context.Context, slug string, patch models.ProfilePatch, now time.Time) (*models.Profile, error) {
	set := bson.M{"updated_at": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.IsTemplate != nil {
		set["is_template"] = *patch.IsTemplate
	}
	if patch.GospelData != nil {
		set["gospel_data"] = patch.GospelData
	}
	if patch.ClearProgress {
		set["last_viewed_scripture"] = nil
	}
	if patch.LastViewedScripture != nil {
		set["last_viewed_scripture"] = patch.LastViewedScripture
	}

	var p models.Profile
	err := s.profilesCol.FindOneAndUpdate(
		ctx,
		bson.M{"slug": slug},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) DeleteProfile(ctx context.Context, slug string) error {
	var deleted struct {
		ID string `bson:"_id"`
	}
	err := s.profilesCol.FindOneAndDelete(ctx, bson.M{
		"slug":       slug,
		"is_default": bson.M{"$ne": true},
	}, options.FindOneAndDelete().SetProjection(bson.M{"_id": 1})).Decode(&deleted)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("delete profile: %w", err)
		}
		n, cerr := s.profilesCol.CountDocuments(ctx, bson.M{"slug": slug})
		if cerr == nil && n > 0 {
			return ErrDefaultProfileProtected
		}
		return ErrProfileNotFound
	}

	// The profile is already gone; stale grants no longer match any profile id.
	if _, err := s.grantsCol.DeleteMany(ctx, bson.M{"profile_id": deleted.ID}); err != nil {
		s.logger.Warn("delete grants for removed profile",
			zap.String("slug", slug),
			zap.String("profile_id", deleted.ID),
			zap.Error(err))
	}
	return nil
}

func (s *MongoStore) IncrementVisitCount(ctx context.Context, slug string, now time.Time) error {
	res, err := s.profilesCol.UpdateOne(ctx, bson.M{"slug": slug}, bson.M{
		"$inc": bson.M{"visit_count": 1},
		"$set": bson.M{"last_visited": now},
	})
	if err != nil {
		return fmt.Errorf("increment visit count: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *MongoStore) EnsureDefaultProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.profilesCol.UpdateOne(
		ctx,
		bson.M{"is_default": true},
		bson.M{"$setOnInsert": bson.M{
			"_id":                   p.ID,
			"slug":                  p.Slug,
			"title":                 p.Title,
			"description":           p.Description,
			"is_template":           p.IsTemplate,
			"visit_count":           int64(0),
			"gospel_data":           p.GospelData,
			"last_viewed_scripture": nil,
			"created_by":            nil,
			"created_at":            p.CreatedAt,
			"updated_at":            p.UpdatedAt,
			"last_visited":          nil,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("ensure default profile: %w", err)
	}
	return nil
}

func (s *MongoStore) UpsertGrant(ctx context.Context, g *models.AccessGrant) (*models.AccessGrant, error) {
	filter := bson.M{"profile_id": g.ProfileID, "user_email": g.UserEmail}
	id := g.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.grantsCol.UpdateOne(ctx, filter, bson.M{
		"$set":         bson.M{"granted_by": g.GrantedBy, "granted_at": g.GrantedAt},
		"$setOnInsert": bson.M{"_id": id},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert grant: %w", err)
	}

	var out models.AccessGrant
	if err := s.grantsCol.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, fmt.Errorf("read grant: %w", err)
	}
	return &out, nil
}

func (s *MongoStore) DeleteGrant(ctx context.Context, profileID, email string) error {
	if _, err := s.grantsCol.DeleteOne(ctx, bson.M{"profile_id": profileID, "user_email": email}); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

func (s *MongoStore) ListGrants(ctx context.Context, profileID string) ([]models.AccessGrant, error) {
	return s.findGrants(ctx, bson.M{"profile_id": profileID})
}

func (s *MongoStore) ListGrantsForProfiles(ctx context.Context, profileIDs []string) (map[string][]models.AccessGrant, error) {
	out := make(map[string][]models.AccessGrant)
	if len(profileIDs) == 0 {
		return out, nil
	}
	grants, err := s.findGrants(ctx, bson.M{"profile_id": bson.M{"$in": profileIDs}})
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		out[g.ProfileID] = append(out[g.ProfileID], g)
	}
	return out, nil
}

func (s *MongoStore) findGrants(ctx context.Context, filter bson.M) ([]models.AccessGrant, error) {
	cur, err := s.grantsCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "user_email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.AccessGrant, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode grants: %w", err)
	}
	return out, nil
}

func (s *MongoStore) HasGrant(ctx context.Context, profileID, email string) (bool, error) {
	n, err := s.grantsCol.CountDocuments(ctx, bson.M{"profile_id": profileID, "user_email": email},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) ListGrantedProfileIDs(ctx context.Context, email string) ([]string, error) {
	grants, err := s.findGrants(ctx, bson.M{"user_email": email})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(grants))
	for _, g := range grants {
		out = append(out, g.ProfileID)
	}
	return out, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	var u models.UserProfile
	if err := s.usersCol.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) (map[string]*models.UserProfile, error) {
	out := make(map[string]*models.UserProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]*models.UserProfile, error) {
	return s.findUsers(ctx, bson.M{})
}

func (s *MongoStore) findUsers(ctx context.Context, filter bson.M) ([]*models.UserProfile, error) {
	cur, err := s.usersCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*models.UserProfile, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (s *MongoStore) UpsertUser(ctx context.Context, u *models.UserProfile) error {
	set := bson.M{
		"email":        u.Email,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"updated_at":   u.UpdatedAt,
	}
	_, err := s.usersCol.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
