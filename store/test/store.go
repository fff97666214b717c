package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/internal/version"
	"github.com/hrygo/rivalchat/store"
	"github.com/hrygo/rivalchat/store/db"
)

// getDriverFromEnv returns the driver selected with DRIVER, or "" to run against every local driver.
func getDriverFromEnv() string {
	return os.Getenv("DRIVER")
}

// testingDrivers lists the drivers a store test runs against.
func testingDrivers() []string {
	if driver := getDriverFromEnv(); driver != "" {
		return []string{driver}
	}
	drivers := []string{"memory", "sqlite", "redis"}
	if os.Getenv("POSTGRES_TEST_DSN") != "" {
		drivers = append(drivers, "postgres")
	}
	return drivers
}

// forEachDriver runs fn as a subtest against a fresh store of every testing driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, ts *store.Store)) {
	for _, driver := range testingDrivers() {
		t.Run(driver, func(t *testing.T) {
			fn(t, NewTestingStore(context.Background(), t, driver))
		})
	}
}

func getTestingProfile(t *testing.T, driver string) *profile.Profile {
	t.Helper()
	p := &profile.Profile{
		Mode:    "dev",
		Driver:  driver,
		Version: version.GetCurrentVersion("dev"),
	}
	switch driver {
	case "sqlite":
		p.Data = t.TempDir()
		p.DSN = filepath.Join(p.Data, "rivalchat_test.db")
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	case "redis":
		mr := miniredis.RunT(t)
		p.RedisAddr = mr.Addr()
	}
	return p
}

// NewTestingStore opens and migrates a store backed by driver.
func NewTestingStore(ctx context.Context, t *testing.T, driver string) *store.Store {
	t.Helper()
	p := getTestingProfile(t, driver)
	dbDriver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	ts := store.New(dbDriver, p)
	require.NoError(t, ts.Migrate(ctx))
	t.Cleanup(func() {
		if driver == "postgres" {
			// The PostgreSQL instance is shared between tests.
			if sqlDriver, ok := dbDriver.(store.SQLDriver); ok {
				_, _ = sqlDriver.GetDB().Exec("DELETE FROM kv")
			}
		}
		ts.Close()
	})
	return ts
}

func newTestingPersona(name string) *store.Persona {
	return &store.Persona{
		ID:   fmt.Sprintf("persona_%s", shortuuid.New()),
		Name: name,
		Age:  32,
		Education: store.Education{
			School: "某985大学",
			Major:  "金融",
			Degree: "硕士",
		},
		FamilyBackground: store.FamilyBackground{
			FatherOccupation: "国企领导",
			MotherOccupation: "大学教授",
			FamilyStatus:     "中产偏上",
			PropertyCount:    3,
			CarBrand:         "保时捷",
		},
		Career: store.Career{
			Title:        "投资总监",
			Company:      "某头部基金",
			Industry:     "金融",
			AnnualIncome: "200万",
			Subordinates: 12,
		},
		Philosophy: store.Philosophy{
			LifeMotto:     "格局要大",
			SuccessSecret: "认知变现",
			Worldview:     "强者恒强",
		},
		Hobbies:           []string{"高尔夫", "红酒"},
		Catchphrases:      []string{"说白了", "本质上"},
		PersonalityTraits: []string{"自信", "爱说教"},
	}
}

func newTestingMessage(sender store.SenderID, content string) *store.Message {
	return &store.Message{
		ID:        fmt.Sprintf("%s_%s", sender, shortuuid.New()),
		SenderID:  sender,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Type:      store.MessageTypeText,
	}
}
