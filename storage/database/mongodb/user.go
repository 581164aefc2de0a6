package mongorepos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/user"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Mobile       string    `bson:"mobile"`
	IsActive     bool      `bson:"isActive"`
	Roles        []string  `bson:"roles"`
	PasswordHash []byte    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
	LastLogin    time.Time `bson:"lastLogin,omitempty"`
}

func toUserDoc(usr user.User) userDoc {
	return userDoc{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Mobile:       usr.Mobile,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    usr.LastLogin,
	}
}

func (d userDoc) user() user.User {
	return user.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Mobile:       d.Mobile,
		IsActive:     d.IsActive,
		Roles:        d.Roles,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		LastLogin:    d.LastLogin.UTC(),
	}
}

type userRepository struct {
	store
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *mongo.Database, conf *core.Config) *userRepository {
	return &userRepository{store: newStore(db, conf)}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.retry.Do(ctx, "creating user", func(ctx context.Context) error {
		_, err := repo.col(colUsers).InsertOne(ctx, toUserDoc(usr))
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	var doc userDoc
	err := repo.retry.Do(ctx, "finding user", func(ctx context.Context) error {
		return repo.col(colUsers).FindOne(ctx, filter).Decode(&doc)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return doc.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.findOne(ctx, bson.M{"_id": id})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.findOne(ctx, bson.M{"email": email})
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := bson.M{}
	if filter.Search != "" {
		rx := primitiveRegex(filter.Search)
		q["$or"] = bson.A{bson.M{"name": rx}, bson.M{"email": rx}}
	}
	if len(filter.Roles) > 0 {
		q["roles"] = bson.M{"$in": filter.Roles}
	}
	if filter.IsActive != nil {
		q["isActive"] = *filter.IsActive
	}

	var docs []userDoc
	err := repo.retry.Do(ctx, "querying users", func(ctx context.Context) error {
		cur, err := repo.col(colUsers).Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc := toUserDoc(usr)
	var res *mongo.UpdateResult
	err := repo.retry.Do(ctx, "updating user", func(ctx context.Context) (err error) {
		res, err = repo.col(colUsers).ReplaceOne(ctx, bson.M{"_id": usr.ID}, doc)
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	err := repo.retry.Do(ctx, "deleting users", func(ctx context.Context) error {
		_, err := repo.col(colUsers).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		return err
	})
	return errors.Wrap(err, "deleting users")
}

// primitiveRegex matches s anywhere, case-insensitively.
func primitiveRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
