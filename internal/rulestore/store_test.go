package rulestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/internal/logger"
	"github.com/webscoutlabs/webscout/internal/model"
	"github.com/webscoutlabs/webscout/internal/rulestore"
)

func newStore(t *testing.T) *rulestore.Store {
	t.Helper()
	s, err := rulestore.New(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	return s
}

func TestLoadMissingDomainIsEmpty(t *testing.T) {
	s := newStore(t)
	rules, err := s.Load("unknown.test")
	require.NoError(t, err)
	assert.Equal(t, "unknown.test", rules.Domain)
	assert.Zero(t, rules.Version)
	assert.Empty(t, rules.TrainedComponents)
}

func TestUpsertInsertThenRetrainInPlace(t *testing.T) {
	s := newStore(t)

	first := model.TrainedComponent{
		ID:       "cookie-banner-a1b2c3d4",
		PageURL:  "https://shop.test/",
		PagePath: "/",
		Type:     "modal",
		Selector: "div.consent",
	}
	rules, err := s.Upsert("shop.test", first)
	require.NoError(t, err)
	assert.Equal(t, 1, rules.Version)
	require.Len(t, rules.TrainedComponents, 1)
	createdAt := rules.TrainedComponents[0].CreatedAt
	assert.False(t, createdAt.IsZero())

	// retraining the same (id, page URL) replaces the entry instead of
	// appending, keeps the original creation time, and bumps the version
	retrained := first
	retrained.Selector = "#consent-box"
	rules, err = s.Upsert("shop.test", retrained)
	require.NoError(t, err)
	assert.Equal(t, 2, rules.Version)
	require.Len(t, rules.TrainedComponents, 1)
	assert.Equal(t, "#consent-box", rules.TrainedComponents[0].Selector)
	// the reloaded document carries the JSON-round-tripped timestamp, so
	// compare instants rather than struct equality
	assert.True(t, createdAt.Equal(rules.TrainedComponents[0].CreatedAt))

	// same id on a different page URL is a separate entry
	other := first
	other.PageURL = "https://shop.test/checkout"
	other.PagePath = "/checkout"
	rules, err = s.Upsert("shop.test", other)
	require.NoError(t, err)
	assert.Equal(t, 3, rules.Version)
	assert.Len(t, rules.TrainedComponents, 2)
}

func TestUpsertSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	s, err := rulestore.New(dir, logger.Nop())
	require.NoError(t, err)

	_, err = s.Upsert("shop.test", model.TrainedComponent{
		ID: "x", PageURL: "https://shop.test/", Selector: "div.x",
	})
	require.NoError(t, err)

	// a second store over the same directory sees the same document
	s2, err := rulestore.New(dir, logger.Nop())
	require.NoError(t, err)
	rules, err := s2.Load("shop.test")
	require.NoError(t, err)
	assert.Equal(t, 1, rules.Version)
	require.Len(t, rules.TrainedComponents, 1)

	// no temp file left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()))
	}
}

func TestDeleteRemovesAcrossPages(t *testing.T) {
	s := newStore(t)
	for _, pageURL := range []string{"https://shop.test/", "https://shop.test/checkout"} {
		_, err := s.Upsert("shop.test", model.TrainedComponent{
			ID: "promo", PageURL: pageURL, Selector: "div.promo",
		})
		require.NoError(t, err)
	}
	_, err := s.Upsert("shop.test", model.TrainedComponent{
		ID: "other", PageURL: "https://shop.test/", Selector: "div.other",
	})
	require.NoError(t, err)

	removed, err := s.Delete("shop.test", "promo")
	require.NoError(t, err)
	assert.True(t, removed)

	rules, err := s.Load("shop.test")
	require.NoError(t, err)
	assert.Equal(t, 4, rules.Version)
	require.Len(t, rules.TrainedComponents, 1)
	assert.Equal(t, "other", rules.TrainedComponents[0].ID)

	removed, err = s.Delete("shop.test", "promo")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDomainWithPortMapsToFile(t *testing.T) {
	dir := t.TempDir()
	s, err := rulestore.New(dir, logger.Nop())
	require.NoError(t, err)

	_, err = s.Upsert("Localhost:8080", model.TrainedComponent{
		ID: "x", PageURL: "http://localhost:8080/", Selector: "div",
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "localhost_8080.json"))
	assert.NoError(t, err)
}
