package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/bjaus/tgroute/session"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var noopCloser = closerFunc(func() error { return nil })

// openStore builds the session backend selected by "session-backend".
func openStore(ctx context.Context, log logrus.FieldLogger) (session.Store, io.Closer, error) {
	backend := viper.GetString("session-backend")
	log = log.WithField("backend", backend)

	switch backend {
	case "", "memory":
		log.Info("keeping sessions in memory")
		return session.NewMemory(), noopCloser, nil

	case "redis":
		client, err := session.DialRedis(session.RedisOpts{
			Addr:     viper.GetString("redis-addr"),
			Username: viper.GetString("redis-username"),
			Password: viper.GetString("redis-password"),
			DB:       viper.GetInt("redis-db"),
		})
		if err != nil {
			return nil, nil, err
		}
		log.Infof("keeping sessions in redis at addr[%s]", viper.GetString("redis-addr"))
		return session.NewRedis(client, session.WithKeyPrefix("tgroute:"), session.WithRedisLogger(log)), client, nil

	case "mysql", "sqlite":
		driver := "mysql"
		if backend == "sqlite" {
			driver = "sqlite3"
		}
		db, err := session.OpenSQL(driver, viper.GetString("sql-dsn"))
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewSQL(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Infof("keeping sessions in %s table[%s]", driver, session.DefaultSQLTable)
		return store, db, nil

	case "mongo":
		client, err := session.DialMongo(ctx, session.MongoOpts{
			AppName: "tgroute",
			URI:     viper.GetString("mongo-uri"),
		})
		if err != nil {
			return nil, nil, err
		}
		store := session.NewMongo(client.Database(viper.GetString("mongo-database")).Collection("sessions"))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		log.Infof("keeping sessions in mongo database[%s]", viper.GetString("mongo-database"))
		return store, closerFunc(func() error { return client.Disconnect(context.Background()) }), nil
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", backend)
}
