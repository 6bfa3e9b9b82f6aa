package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ritik/fanout-timeline/internal/cache"
	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/store"
	"github.com/spf13/cobra"
)

var (
	seedUsers        int
	seedAvgFollowers int
	seedPostsPerUser int
	seedClear        bool
)

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 10000, "Number of users to create")
	seedCmd.Flags().IntVar(&seedAvgFollowers, "avg-followers", 150, "Average followers per user")
	seedCmd.Flags().IntVar(&seedPostsPerUser, "posts-per-user", 10, "Posts per user")
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "Clear existing data before seeding")

	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with test data",
	Long: `Generate test users, follows, and posts for benchmarking.

This creates a realistic social graph with:
  - Users with follower counts drawn from a skewed distribution, so a
    small minority accumulate most of the followers
  - Follow relationships biased toward that minority
  - Sample posts for each user`,
	Run: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) {
	fmt.Println("🌱 Seeding database...")
	fmt.Printf("   Users: %d\n", seedUsers)
	fmt.Printf("   Avg followers: %d\n", seedAvgFollowers)
	fmt.Printf("   Posts per user: %d\n", seedPostsPerUser)
	fmt.Println()

	cfg := config.Get()
	ctx := context.Background()

	db, err := store.InitDB(cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.RunMigrations(db, "migrations"); err != nil {
		fmt.Printf("⚠️  Warning: Failed to run migrations: %v\n", err)
	}

	if _, err := cache.InitRedis(cfg); err != nil {
		fmt.Printf("❌ Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)
	followStore := store.NewFollowStore(db)

	if seedClear {
		fmt.Println("🗑️  Clearing existing data...")
		followStore.Truncate(ctx)
		postStore.Truncate(ctx)
		userStore.Truncate(ctx)
		cache.FlushAll(ctx)
		fmt.Println("   Done")
	}

	fmt.Printf("👤 Creating %d users...\n", seedUsers)
	start := time.Now()

	usernames := make([]string, seedUsers)
	for i := 0; i < seedUsers; i++ {
		usernames[i] = fmt.Sprintf("user_%d", i+1)
	}

	batchSize := 1000
	for i := 0; i < len(usernames); i += batchSize {
		end := i + batchSize
		if end > len(usernames) {
			end = len(usernames)
		}
		if err := userStore.BulkCreate(ctx, usernames[i:end]); err != nil {
			fmt.Printf("❌ Failed to create users: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   Created %d/%d users\r", end, seedUsers)
	}
	fmt.Printf("   Created %d users in %v\n", seedUsers, time.Since(start))

	users, err := userStore.GetAll(ctx, seedUsers, 0)
	if err != nil {
		fmt.Printf("❌ Failed to get users: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🔗 Creating follow relationships...\n")
	start = time.Now()

	// A small head of users (the top ~1%) absorbs a disproportionate
	// share of incoming follows, approximating a power-law degree
	// distribution without a dedicated celebrity flag or table column.
	headSize := len(users) / 100
	if headSize < 1 {
		headSize = 1
	}

	follows := make([]struct {
		FollowerID int64
		FollowedID int64
	}, 0, seedUsers*seedAvgFollowers)

	totalFollows := seedUsers * seedAvgFollowers
	for i := 0; i < totalFollows; i++ {
		followerIdx := rand.Intn(len(users))

		var followedIdx int
		if rand.Float64() < 0.5 {
			followedIdx = rand.Intn(headSize)
		} else {
			followedIdx = rand.Intn(len(users))
		}

		if followerIdx == followedIdx {
			continue
		}

		follows = append(follows, struct {
			FollowerID int64
			FollowedID int64
		}{
			FollowerID: users[followerIdx].ID,
			FollowedID: users[followedIdx].ID,
		})
	}

	for i := 0; i < len(follows); i += batchSize {
		end := i + batchSize
		if end > len(follows) {
			end = len(follows)
		}
		if err := followStore.BulkCreate(ctx, follows[i:end]); err != nil {
			fmt.Printf("⚠️  Warning: Some follows failed: %v\n", err)
		}
		fmt.Printf("   Created %d/%d follows\r", end, len(follows))
	}
	fmt.Printf("   Created %d follows in %v\n", len(follows), time.Since(start))

	fmt.Printf("📝 Creating posts...\n")
	start = time.Now()

	samplePosts := []string{
		"Just had the best coffee! ☕",
		"Working on something exciting...",
		"Beautiful day outside! 🌞",
		"Can't believe this happened today",
		"Learning new things every day",
		"Just finished a great book 📚",
		"Thinking about the future...",
		"Great meeting with the team today",
		"Weekend vibes! 🎉",
		"Grateful for all the support",
		"New project coming soon!",
		"Just hit a major milestone 🎯",
		"Coffee and code, perfect combo",
		"Exploring new ideas today",
		"Thankful for this community",
	}

	posts := make([]struct {
		AuthorID int64
		Body     string
	}, 0, len(users)*seedPostsPerUser)

	for _, user := range users {
		for j := 0; j < seedPostsPerUser; j++ {
			posts = append(posts, struct {
				AuthorID int64
				Body     string
			}{
				AuthorID: user.ID,
				Body:     samplePosts[rand.Intn(len(samplePosts))],
			})
		}
	}

	for i := 0; i < len(posts); i += batchSize {
		end := i + batchSize
		if end > len(posts) {
			end = len(posts)
		}
		if err := postStore.BulkCreate(ctx, posts[i:end]); err != nil {
			fmt.Printf("⚠️  Warning: Some posts failed: %v\n", err)
		}
		fmt.Printf("   Created %d/%d posts\r", end, len(posts))
	}
	fmt.Printf("   Created %d posts in %v\n", len(posts), time.Since(start))

	fmt.Println()
	fmt.Println("✅ Seeding complete!")
	fmt.Println()

	userCount, _ := userStore.Count(ctx)
	postCount, _ := postStore.Count(ctx)
	followCount, _ := followStore.Count(ctx)

	fmt.Println("📊 Database Statistics:")
	fmt.Printf("   Total users:   %d\n", userCount)
	fmt.Printf("   Total posts:   %d\n", postCount)
	fmt.Printf("   Total follows: %d\n", followCount)
}
