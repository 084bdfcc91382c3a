// Package db opens pgx pools, runs goose migrations and wraps transactions.
//
//	pool, err := db.Connect(ctx, cfg.DB)
//	if err != nil {
//		return err
//	}
//	defer db.Shutdown(pool)(ctx)
//
//	if err := db.Migrate(ctx, pool, pgstore.Migrations, cfg.DB.MigrationsTable, log); err != nil {
//		return err
//	}
//
// WithSerializableTx runs a function at serializable isolation. Conflicting
// concurrent transactions fail with a serialization failure or a unique
// violation; IsRetryable tells those apart from permanent errors.
package db
