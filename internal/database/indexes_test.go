package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexSpecsCoverUniqueKeys(t *testing.T) {
	unique := map[string]string{}
	for _, spec := range indexSpecs() {
		for _, m := range spec.models {
			if m.Options != nil && m.Options.Unique != nil && *m.Options.Unique {
				keys := m.Keys.(bson.D)
				unique[spec.collection] = keys[0].Key
			}
		}
	}

	assert.Equal(t, "email", unique["users"])
	assert.Equal(t, "code", unique["coupons"])
	assert.Equal(t, "tokenHash", unique["refresh_tokens"])
}
