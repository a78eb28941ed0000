package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := DialMongo(ctx, MongoOpts{AppName: "tgroute-test", URI: uri})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	coll := client.Database("tgroute_test").Collection("sessions")
	t.Cleanup(func() { _ = coll.Drop(ctx) })

	suite.Run(t, &storeSuite{
		open: func(now func() time.Time) Store {
			m := NewMongo(coll)
			m.now = now
			require.NoError(t, m.EnsureIndexes(ctx))
			return m
		},
	})
}

func TestCheckMongoField(t *testing.T) {
	assert.NoError(t, checkMongoField("force_reply_handler"))
	assert.Error(t, checkMongoField(""))
	assert.Error(t, checkMongoField("a.b"))
	assert.Error(t, checkMongoField("$set"))
}
