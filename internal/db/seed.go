package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tanishuv-bot/internal/domain"
)

// SeedDemoData resets the database and populates it with demo profiles and
// interaction edges.
//
// Behavior:
//  1. Clears all tables.
//  2. Creates 20 profiles (10 male, 10 female) spread over two cities.
//  3. Generates ~100 like/dislike/skip edges, forcing a mutual like every
//     third pair.
func SeedDemoData(gdb *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"likes", "dislikes", "skips", "invitations", "logs", "admins", "users"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	cities := []string{"Душанбе", "Худжанд"}
	now := time.Now()

	for i := 1; i <= 20; i++ {
		gender := domain.GenderMale
		seeking := domain.GenderFemale
		if i > 10 {
			gender = domain.GenderFemale
			seeking = domain.GenderMale
		}
		boost := now.Add(-time.Duration(r.Intn(500)) * time.Hour)
		p := Profile{
			UserID:        int64(i),
			Username:      fmt.Sprintf("user%d", i),
			Name:          fmt.Sprintf("Демо %d", i),
			Photos:        PhotoList{fmt.Sprintf("photo-%d-1", i), fmt.Sprintf("photo-%d-2", i)},
			Age:           18 + r.Intn(20),
			Gender:        gender,
			SeekingGender: seeking,
			Country:       "Таджикистан",
			City:          cities[i%2],
			Premium:       i%7 == 0,
			LastBoost:     &boost,
		}
		if err := gdb.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	counter := 0
	for from := int64(1); from <= 20; from++ {
		for j := 0; j < 8; j++ {
			to := int64(r.Intn(20) + 1)
			if from == to {
				continue
			}
			// likes only across genders, same as live traffic
			if (from <= 10) == (to <= 10) {
				continue
			}

			switch {
			case counter%3 == 0:
				// guaranteed mutual like
				for _, pair := range [][2]int64{{from, to}, {to, from}} {
					l := Like{FromUser: pair[0], ToUser: pair[1]}
					if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&l).Error; err != nil {
						return fmt.Errorf("failed to seed like: %w", err)
					}
				}
			case r.Intn(100) < 60:
				l := Like{FromUser: from, ToUser: to}
				if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&l).Error; err != nil {
					return fmt.Errorf("failed to seed like: %w", err)
				}
			case r.Intn(2) == 0:
				d := Dislike{FromUser: from, ToUser: to}
				if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&d).Error; err != nil {
					return fmt.Errorf("failed to seed dislike: %w", err)
				}
			default:
				s := Skip{FromUser: from, ToUser: to}
				if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&s).Error; err != nil {
					return fmt.Errorf("failed to seed skip: %w", err)
				}
			}
			counter++
		}
	}

	return nil
}
