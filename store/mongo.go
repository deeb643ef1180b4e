package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store backed by MongoDB
type MongoStore struct {
	// client is the MongoDB connection
	client *mongo.Client

	// db is the database which holds the collections below
	db *mongo.Database

	users        *mongo.Collection
	admins       *mongo.Collection
	sessions     *mongo.Collection
	categories   *mongo.Collection
	contents     *mongo.Collection
	sliderImages *mongo.Collection
}

// NewMongoStore connects to the MongoDB server described by cfg
func NewMongoStore(ctx context.Context, cfg *config.Config) (*MongoStore, error) {
	// {{{1 Build connection options
	opts := options.Client()
	if len(cfg.DbUser) > 0 {
		opts.SetAuth(options.Credential{
			Username: cfg.DbUser,
			Password: cfg.DbPassword,
		})
	}
	opts.SetHosts([]string{
		fmt.Sprintf("%s:%d", cfg.DbHost, cfg.DbPort),
	})

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate database connection options: %w", err)
	}

	return connectMongo(ctx, opts, cfg.DbName)
}

// NewMongoStoreFromURI connects to the MongoDB server at uri
func NewMongoStoreFromURI(ctx context.Context, uri string, dbName string) (*MongoStore, error) {
	return connectMongo(ctx, options.Client().ApplyURI(uri), dbName)
}

// connectMongo connects, pings and makes sure indexes exist
func connectMongo(ctx context.Context, opts *options.ClientOptions, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to test database connection: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:       client,
		db:           db,
		users:        db.Collection("users"),
		admins:       db.Collection("admins"),
		sessions:     db.Collection("sessions"),
		categories:   db.Collection("categories"),
		contents:     db.Collection("contents"),
		sliderImages: db.Collection("slider_images"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

// ensureIndexes creates the indexes queries and uniqueness rely on
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		s.sessions: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		s.categories: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "display_order", Value: 1}}},
		},
		s.contents: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "display_order", Value: 1}}},
			{Keys: bson.D{{Key: "is_published", Value: 1}, {Key: "featured", Value: 1}, {Key: "display_order", Value: 1}}},
		},
		s.sliderImages: {
			{Keys: bson.D{{Key: "display_order", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s collection: %w",
				coll.Name(), err)
		}
	}

	return nil
}

// mongoErr converts driver errors into store errors
func mongoErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	return err
}

// byDisplayOrder sorts by display order, oldest first for equal orders
func byDisplayOrder() bson.D {
	return bson.D{
		{Key: "display_order", Value: 1},
		{Key: "created_at", Value: 1},
	}
}

// findOne decodes the document matching filter into dest
func findOne(ctx context.Context, coll *mongo.Collection, filter interface{}, dest interface{}) error {
	if err := coll.FindOne(ctx, filter).Decode(dest); err != nil {
		return mongoErr(err)
	}

	return nil
}

// deleteOne removes the document with the ID, ErrNotFound if there was none
func deleteOne(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoErr(err)
	}

	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// {{{1 Users

// CreateUser implements UserStore.CreateUser
func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	prepareUser(user)

	_, err := s.users.InsertOne(ctx, user)
	return mongoErr(err)
}

// GetUser implements UserStore.GetUser
func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, s.users, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByEmail implements UserStore.GetUserByEmail
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, s.users, bson.M{"email": NormalizeEmail(email)}, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// {{{1 Admins

// CreateAdmin implements AdminStore.CreateAdmin
func (s *MongoStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	prepareAdmin(admin)

	_, err := s.admins.InsertOne(ctx, admin)
	return mongoErr(err)
}

// GetAdmin implements AdminStore.GetAdmin
func (s *MongoStore) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := findOne(ctx, s.admins, bson.M{"_id": id}, &admin); err != nil {
		return nil, err
	}

	return &admin, nil
}

// ListAdmins implements AdminStore.ListAdmins
func (s *MongoStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	cur, err := s.admins.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}

	admins := []models.Admin{}
	if err := cur.All(ctx, &admins); err != nil {
		return nil, fmt.Errorf("failed to decode admins: %w", err)
	}

	return admins, nil
}

// DeleteAdmin implements AdminStore.DeleteAdmin
func (s *MongoStore) DeleteAdmin(ctx context.Context, id string) error {
	return deleteOne(ctx, s.admins, id)
}

// {{{1 Sessions

// CreateSession implements SessionStore.CreateSession
func (s *MongoStore) CreateSession(ctx context.Context, session *models.Session) error {
	prepareSession(session)

	_, err := s.sessions.InsertOne(ctx, session)
	return mongoErr(err)
}

// GetSession implements SessionStore.GetSession
func (s *MongoStore) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	if err := findOne(ctx, s.sessions, bson.M{"_id": tokenHash}, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// ExtendSession implements SessionStore.ExtendSession
func (s *MongoStore) ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	res, err := s.sessions.UpdateOne(ctx, bson.M{"_id": tokenHash},
		bson.M{"$set": bson.M{"expires_at": normalizeTime(expiresAt)}})
	if err != nil {
		return mongoErr(err)
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteSession implements SessionStore.DeleteSession
func (s *MongoStore) DeleteSession(ctx context.Context, tokenHash string) error {
	return deleteOne(ctx, s.sessions, tokenHash)
}

// DeleteExpiredSessions implements SessionStore.DeleteExpiredSessions
func (s *MongoStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sessions.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": normalizeTime(now)},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return res.DeletedCount, nil
}

// {{{1 Categories

// ListCategories implements CategoryStore.ListCategories
func (s *MongoStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	cur, err := s.categories.Find(ctx, bson.M{}, options.Find().SetSort(byDisplayOrder()))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	categories := []models.Category{}
	if err := cur.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	return categories, nil
}

// GetCategory implements CategoryStore.GetCategory
func (s *MongoStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := findOne(ctx, s.categories, bson.M{"_id": id}, &category); err != nil {
		return nil, err
	}

	return &category, nil
}

// GetCategoryBySlug implements CategoryStore.GetCategoryBySlug
func (s *MongoStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := findOne(ctx, s.categories, bson.M{"slug": slug}, &category); err != nil {
		return nil, err
	}

	return &category, nil
}

// CreateCategory implements CategoryStore.CreateCategory
func (s *MongoStore) CreateCategory(ctx context.Context, category *models.Category) error {
	prepareCategory(category)

	_, err := s.categories.InsertOne(ctx, category)
	return mongoErr(err)
}

// UpdateCategory implements CategoryStore.UpdateCategory
func (s *MongoStore) UpdateCategory(ctx context.Context, id string, patch models.CategoryPatch, updatedAt time.Time) (*models.Category, error) {
	set := bson.M{}
	for k, v := range patch.Fields() {
		set[k] = v
	}
	set["updated_at"] = normalizeTime(updatedAt)

	var category models.Category
	err := s.categories.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&category)
	if err != nil {
		return nil, mongoErr(err)
	}

	return &category, nil
}

// DeleteCategory implements CategoryStore.DeleteCategory
func (s *MongoStore) DeleteCategory(ctx context.Context, id string) error {
	return deleteOne(ctx, s.categories, id)
}

// {{{1 Contents

// contentQuery builds the MongoDB filter of a ContentFilter
func contentQuery(filter ContentFilter) bson.M {
	query := bson.M{}

	if len(filter.CategoryID) > 0 {
		query["category_id"] = filter.CategoryID
	}
	if filter.PublishedOnly {
		query["is_published"] = true
	}
	if filter.FeaturedOnly {
		query["featured"] = true
	}

	return query
}

// withCategories attaches category summaries to contents
func (s *MongoStore) withCategories(ctx context.Context, contents []models.Content) ([]models.ContentWithCategory, error) {
	ids := []string{}
	seen := map[string]bool{}

	for _, c := range contents {
		if !seen[c.CategoryID] {
			seen[c.CategoryID] = true
			ids = append(ids, c.CategoryID)
		}
	}

	summaries := map[string]*models.CategorySummary{}

	if len(ids) > 0 {
		cur, err := s.categories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
			options.Find().SetProjection(bson.M{"name": 1, "slug": 1}))
		if err != nil {
			return nil, fmt.Errorf("failed to query categories of contents: %w", err)
		}

		categories := []models.CategorySummary{}
		if err := cur.All(ctx, &categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories of contents: %w", err)
		}

		for i := range categories {
			summaries[categories[i].ID] = &categories[i]
		}
	}

	out := make([]models.ContentWithCategory, len(contents))
	for i, c := range contents {
		out[i] = models.ContentWithCategory{
			Content:  c,
			Category: summaries[c.CategoryID],
		}
	}

	return out, nil
}

// ListContents implements ContentStore.ListContents
func (s *MongoStore) ListContents(ctx context.Context, filter ContentFilter) ([]models.ContentWithCategory, error) {
	opts := options.Find().SetSort(byDisplayOrder())
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cur, err := s.contents.Find(ctx, contentQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}

	contents := []models.Content{}
	if err := cur.All(ctx, &contents); err != nil {
		return nil, fmt.Errorf("failed to decode contents: %w", err)
	}

	return s.withCategories(ctx, contents)
}

// CountContents implements ContentStore.CountContents
func (s *MongoStore) CountContents(ctx context.Context, filter ContentFilter) (int64, error) {
	n, err := s.contents.CountDocuments(ctx, contentQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count contents: %w", err)
	}

	if filter.Limit > 0 && n > filter.Limit {
		n = filter.Limit
	}

	return n, nil
}

// getContentWithCategory returns a single content with its category
func (s *MongoStore) getContentWithCategory(ctx context.Context, content models.Content) (*models.ContentWithCategory, error) {
	out, err := s.withCategories(ctx, []models.Content{content})
	if err != nil {
		return nil, err
	}

	return &out[0], nil
}

// GetContent implements ContentStore.GetContent
func (s *MongoStore) GetContent(ctx context.Context, id string) (*models.ContentWithCategory, error) {
	var content models.Content
	if err := findOne(ctx, s.contents, bson.M{"_id": id}, &content); err != nil {
		return nil, err
	}

	return s.getContentWithCategory(ctx, content)
}

// CreateContent implements ContentStore.CreateContent
func (s *MongoStore) CreateContent(ctx context.Context, content *models.Content) error {
	prepareContent(content)

	_, err := s.contents.InsertOne(ctx, content)
	return mongoErr(err)
}

// UpdateContent implements ContentStore.UpdateContent
func (s *MongoStore) UpdateContent(ctx context.Context, id string, patch models.ContentPatch, updatedAt time.Time) (*models.ContentWithCategory, error) {
	set := bson.M{}
	for k, v := range patch.Fields() {
		set[k] = v
	}
	set["updated_at"] = normalizeTime(updatedAt)

	var content models.Content
	err := s.contents.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&content)
	if err != nil {
		return nil, mongoErr(err)
	}

	return s.getContentWithCategory(ctx, content)
}

// DeleteContent implements ContentStore.DeleteContent
func (s *MongoStore) DeleteContent(ctx context.Context, id string) error {
	return deleteOne(ctx, s.contents, id)
}

// {{{1 Slider images

// ListSliderImages implements SliderImageStore.ListSliderImages
func (s *MongoStore) ListSliderImages(ctx context.Context) ([]models.SliderImage, error) {
	cur, err := s.sliderImages.Find(ctx, bson.M{}, options.Find().SetSort(byDisplayOrder()))
	if err != nil {
		return nil, fmt.Errorf("failed to query slider images: %w", err)
	}

	images := []models.SliderImage{}
	if err := cur.All(ctx, &images); err != nil {
		return nil, fmt.Errorf("failed to decode slider images: %w", err)
	}

	return images, nil
}

// GetSliderImage implements SliderImageStore.GetSliderImage
func (s *MongoStore) GetSliderImage(ctx context.Context, id string) (*models.SliderImage, error) {
	var image models.SliderImage
	if err := findOne(ctx, s.sliderImages, bson.M{"_id": id}, &image); err != nil {
		return nil, err
	}

	return &image, nil
}

// CreateSliderImage implements SliderImageStore.CreateSliderImage
func (s *MongoStore) CreateSliderImage(ctx context.Context, image *models.SliderImage) error {
	prepareSliderImage(image)

	_, err := s.sliderImages.InsertOne(ctx, image)
	return mongoErr(err)
}

// SetSliderImageOrder implements SliderImageStore.SetSliderImageOrder
func (s *MongoStore) SetSliderImageOrder(ctx context.Context, id string, displayOrder int) error {
	res, err := s.sliderImages.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"display_order": displayOrder}})
	if err != nil {
		return mongoErr(err)
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteSliderImage implements SliderImageStore.DeleteSliderImage
func (s *MongoStore) DeleteSliderImage(ctx context.Context, id string) error {
	return deleteOne(ctx, s.sliderImages, id)
}

// {{{1 Other

// ListImageURLs implements Store.ListImageURLs
func (s *MongoStore) ListImageURLs(ctx context.Context) ([]string, error) {
	urls := []string{}
	seen := map[string]bool{}

	for _, coll := range []*mongo.Collection{s.categories, s.contents, s.sliderImages} {
		values, err := coll.Distinct(ctx, "image_url", bson.M{})
		if err != nil {
			return nil, fmt.Errorf("failed to list image URLs of %s collection: %w",
				coll.Name(), err)
		}

		for _, v := range values {
			u, ok := v.(string)
			if !ok || len(u) == 0 || seen[u] {
				continue
			}

			seen[u] = true
			urls = append(urls, u)
		}
	}

	return urls, nil
}

// Ping implements Store.Ping
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close implements Store.Close
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
