// Package seed fills a development database with demo users, profiles,
// swipes and matches.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/embedding"
	"github.com/oggyb/gymbro-match/internal/repository"
)

type Options struct {
	Users int
	// Seed makes the generated data reproducible.
	Seed int64
	// SwipesPerUser is how many random recipients each user decides on.
	SwipesPerUser int
}

var DefaultOptions = Options{Users: 20, Seed: 42, SwipesPerUser: 6}

type Stats struct {
	Users   int64
	Actions int64
	Matches int64
}

var firstNames = []string{"Alex", "Maria", "Ivan", "Olga", "Dmitry", "Anna", "Sergey", "Elena", "Nikita", "Sofia"}

var routines = []string{
	"Powerlifting three times a week, chasing a 200kg deadlift.",
	"Morning cardio and a long run on Sundays.",
	"Calisthenics in the park, working on the front lever.",
	"CrossFit addict looking for a WOD buddy.",
	"Bodybuilding split, push pull legs, always hungry.",
	"Yoga and mobility after heavy squats.",
	"Boxing twice a week and strength work in between.",
	"Training for my first marathon, need a pace partner.",
}

// Run wipes every table and inserts the demo dataset.
//
// Behavior:
//  1. Clears matches, actions, profiles and users, resetting id sequences.
//  2. Creates opts.Users users, each with an active embedded profile.
//     Genders alternate male/female.
//  3. Each user decides on opts.SwipesPerUser random users of the other
//     gender with ~70% likes; every 3rd decision is made mutual.
//  4. A match is stored for every mutual like.
func Run(ctx context.Context, gdb *gorm.DB, emb embedding.Embedder, log *slog.Logger, opts Options) (Stats, error) {
	if opts.Users <= 1 {
		return Stats{}, fmt.Errorf("seed needs at least 2 users, got %d", opts.Users)
	}
	r := rand.New(rand.NewSource(opts.Seed))

	if err := reset(gdb); err != nil {
		return Stats{}, err
	}
	log.Info("cleared existing data")

	users := make([]db.User, 0, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		u, err := createUser(ctx, gdb, emb, r, i)
		if err != nil {
			return Stats{}, err
		}
		users = append(users, *u)
	}
	log.Info("seeded users", "count", len(users))

	actions := repository.NewActionRepository(gdb)
	matches := repository.NewMatchRepository(gdb)
	counter := 0
	for _, actor := range users {
		for j := 0; j < opts.SwipesPerUser; j++ {
			recipient := users[r.Intn(len(users))]
			if recipient.ID == actor.ID || recipient.Profile.Gender == actor.Profile.Gender {
				continue
			}

			liked := r.Intn(100) < 70
			if counter%3 == 0 {
				liked = true
				if err := decide(ctx, actions, matches, recipient.ID, actor.ID, true); err != nil {
					return Stats{}, err
				}
			}
			if err := decide(ctx, actions, matches, actor.ID, recipient.ID, liked); err != nil {
				return Stats{}, err
			}
			counter++
		}
	}

	var stats Stats
	stats.Users = int64(len(users))
	if err := gdb.WithContext(ctx).Model(&db.Action{}).Count(&stats.Actions).Error; err != nil {
		return Stats{}, err
	}
	if err := gdb.WithContext(ctx).Model(&db.Match{}).Count(&stats.Matches).Error; err != nil {
		return Stats{}, err
	}
	log.Info("seeding completed", "users", stats.Users, "actions", stats.Actions, "matches", stats.Matches)
	return stats, nil
}

func reset(gdb *gorm.DB) error {
	if db.IsPostgres(gdb) {
		if err := gdb.Exec("TRUNCATE matches, user_actions, profiles, users RESTART IDENTITY CASCADE").Error; err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
		return nil
	}

	for _, table := range []string{"matches", "user_actions", "profiles", "users"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
		// best effort, the table only exists once a row was inserted
		gdb.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table)
	}
	return nil
}

func createUser(ctx context.Context, gdb *gorm.DB, emb embedding.Embedder, r *rand.Rand, i int) (*db.User, error) {
	username := fmt.Sprintf("gymbro%d", i)
	firstName := firstNames[(i-1)%len(firstNames)]
	gender := db.GenderMale
	if i%2 == 0 {
		gender = db.GenderFemale
	}
	age := 18 + r.Intn(28)
	description := routines[r.Intn(len(routines))]

	vec, err := emb.Embed(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("failed to embed profile %d: %w", i, err)
	}
	v := pgvector.NewVector(vec)

	u := &db.User{
		TelegramID: strconv.Itoa(1_000_000 + i),
		Username:   &username,
		FirstName:  &firstName,
		Profile: &db.Profile{
			Name:        firstName,
			Description: description,
			Gender:      gender,
			Age:         &age,
			Media:       db.MediaList{},
			Embedding:   &v,
			IsActive:    true,
		},
	}
	if err := gdb.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("failed to seed user: %w", err)
	}
	return u, nil
}

// decide records from -> to unless that pair already has an action, and
// stores the match when the like is mutual.
func decide(
	ctx context.Context,
	actions *repository.ActionRepository,
	matches *repository.MatchRepository,
	from, to uint64,
	liked bool,
) error {
	_, err := actions.Get(ctx, from, to)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	kind := db.ActionDislike
	if liked {
		kind = db.ActionLike
	}
	if err := actions.Create(ctx, &db.Action{FromUserID: from, ToUserID: to, ActionType: kind}); err != nil {
		return fmt.Errorf("failed to seed action: %w", err)
	}
	if !liked {
		return nil
	}

	mutual, err := actions.HasLiked(ctx, to, from)
	if err != nil || !mutual {
		return err
	}
	_, _, err = matches.CreateIfAbsent(ctx, from, to)
	return err
}
