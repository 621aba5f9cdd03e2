package writer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

func customerMapping() *mapping.SchemaMapping {
	return mapping.NewSchemaMapping("CUSTOMER", "ID").
		Map("ID", "ID").
		Map("Name", "NAME").
		Map("Age", "AGE")
}

func TestGormPersistItemWriter_UpsertsInsideChunkTransaction(t *testing.T) {
	db, err := gormadapter.OpenDialector(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Exec("CREATE TABLE CUSTOMER (ID INTEGER PRIMARY KEY, NAME TEXT, AGE INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO CUSTOMER (ID, NAME, AGE) VALUES (1, 'Alice', 30)").Error)

	w, err := writer.NewGormPersistItemWriter[*customer]("customerPersist", customerMapping())
	require.NoError(t, err)
	tm := gormadapter.NewGormTransactionManager(db)
	ctx := context.Background()

	chunkTx, err := tm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, chunkTx, []*customer{{ID: 1, Name: "Alice", Age: 31}, {ID: 2, Name: "Bob", Age: 20}}))
	require.NoError(t, tm.Commit(chunkTx))

	var count int64
	require.NoError(t, db.Table("CUSTOMER").Count(&count).Error)
	assert.Equal(t, int64(2), count)
	var age int
	require.NoError(t, db.Raw("SELECT AGE FROM CUSTOMER WHERE ID = 1").Scan(&age).Error)
	assert.Equal(t, 31, age)

	rolledBack, err := tm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, rolledBack, []*customer{{ID: 3, Name: "Carol", Age: 50}}))
	require.NoError(t, tm.Rollback(rolledBack))
	require.NoError(t, db.Table("CUSTOMER").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGormPersistItemWriter_RejectsNonGormTransaction(t *testing.T) {
	w, err := writer.NewGormPersistItemWriter[*customer]("customerPersist", customerMapping())
	require.NoError(t, err)
	noop := tx.NewNoOpTransactionManager()
	chunkTx, err := noop.Begin(context.Background())
	require.NoError(t, err)
	err = w.Write(context.Background(), chunkTx, []*customer{{ID: 1}})
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
