package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

func TestConfigUpdatesEmptyPatchOnlyFillsDefaults(t *testing.T) {
	now := time.Unix(0, 0)
	first, second := configUpdates("g1", models.CategoryBan, models.ConfigPatch{}, now)

	assert.Nil(t, second)
	assert.Equal(t, bson.M{"updated_at": now}, first["$set"])
	onInsert := first["$setOnInsert"].(bson.M)
	assert.Equal(t, false, onInsert["enabled"])
	assert.Equal(t, models.DefaultPunishment, onInsert["punishment"])
	assert.Equal(t, models.DefaultMaxViolations, onInsert["max_violations"])
	assert.Equal(t, []string{}, onInsert["whitelisted_members"])
	assert.NotContains(t, first, "$addToSet")
}

func TestConfigUpdatesNeverTouchAFieldTwice(t *testing.T) {
	enabled := true
	limit := 7
	patch := models.ConfigPatch{
		Enabled:       &enabled,
		MaxViolations: &limit,
		AddMembers:    []string{"u1"},
		RemoveRoles:   []string{"r1"},
	}
	first, second := configUpdates("g1", models.CategoryKick, patch, time.Now())

	set := first["$set"].(bson.M)
	onInsert := first["$setOnInsert"].(bson.M)
	assert.Equal(t, true, set["enabled"])
	assert.Equal(t, 7, set["max_violations"])
	for field := range set {
		assert.NotContains(t, onInsert, field)
	}
	assert.Equal(t, models.DefaultPunishment, onInsert["punishment"])

	addToSet := first["$addToSet"].(bson.M)
	assert.Contains(t, addToSet, "whitelisted_members")
	assert.NotContains(t, onInsert, "whitelisted_members")
	assert.Equal(t, []string{}, onInsert["whitelisted_roles"])

	assert.Equal(t, bson.M{"$pull": bson.M{"whitelisted_roles": bson.M{"$in": []string{"r1"}}}}, second)
}
