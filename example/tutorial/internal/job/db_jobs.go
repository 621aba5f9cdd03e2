package job

import (
	"strconv"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/step/processor"
	tutorialwriter "github.com/tigerroll/chunkbatch/example/tutorial/internal/step/writer"
	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/writer"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/job/runner"
	itemstep "github.com/tigerroll/chunkbatch/pkg/batch/engine/step/item"
)

const (
	// GradeMinimumAge is the lowest age customerGradeJob grades.
	GradeMinimumAge = 20
	// OrmMinimumAge is the age customers must exceed to be read by the ORM and mapper jobs.
	OrmMinimumAge = 20
	// BonusMinimumAge is the age customers must exceed to be considered for a bonus.
	BonusMinimumAge = 50

	gradeChunkSize = 10
	bonusChunkSize = 10

	// ExportBaseDir is the object prefix of the Parquet export.
	ExportBaseDir = "exports/customers"
)

// customerSource pages through CUSTOMER with GORM. query narrows and orders
// the rows; it must give a stable order.
func (d *Deps) customerSource(name string, query reader.GormQueryFunc) (*item.PagingItemReader[*entity.Customer], error) {
	source, err := reader.NewGormPagingSourceBuilder[*entity.Customer]().
		Name(name).
		DB(d.Gorm).
		Query(query).
		PageSize(d.pageSize()).
		Mapping(entity.CustomerMapping()).
		Build()
	if err != nil {
		return nil, err
	}
	return item.NewPagingItemReader[*entity.Customer](name, source), nil
}

func byIDDesc(minAge int) reader.GormQueryFunc {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("AGE > ?", minAge).Order("ID DESC")
	}
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("ID")
}

func (d *Deps) printCustomers() *writer.PrintItemWriter[*entity.Customer] {
	return writer.NewPrintItemWriter(d.out(), func(c *entity.Customer) string { return c.String() })
}

// CustomerGradeJob grades every customer aged 20 or more with plain SQL.
func (d *Deps) CustomerGradeJob() (port.Job, error) {
	source, err := reader.NewSQLPagingSource(d.SQL, reader.SQLPagingSourceConfig[*entity.Customer]{
		Name:         "customerGradeReader",
		SelectClause: "ID, NAME, AGE, GENDER",
		FromClause:   entity.CustomerTable,
		WhereClause:  "AGE >= :age",
		SortKeys:     []reader.SortKey{{Column: "ID", Descending: true}},
		Parameters:   map[string]interface{}{"age": GradeMinimumAge},
		PageSize:     d.pageSize(),
		Mapping:      entity.CustomerMapping(),
	})
	if err != nil {
		return nil, err
	}
	gradeWriter, err := writer.NewSQLBatchItemWriter("customerGradeWriter",
		"UPDATE CUSTOMER SET GRADE = :grade WHERE ID = :id",
		func(c *entity.Customer) (map[string]interface{}, error) {
			return map[string]interface{}{"grade": string(c.Grade), "id": c.ID}, nil
		})
	if err != nil {
		return nil, err
	}

	step, err := itemstep.NewChunkStep[*entity.Customer, *entity.Customer]("customerGradeStep",
		item.NewPagingItemReader[*entity.Customer]("customerGradeReader", source),
		processor.AssignGrade(), gradeWriter, gradeChunkSize, d.Repository, sqldb.NewSQLTransactionManager(d.SQL))
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return d.finish(runner.NewSimpleJob(CustomerGradeJobName, d.Repository, step))
}

// CustomerOrmJob ages every customer older than 20 through the ORM, printing
// and persisting each one.
func (d *Deps) CustomerOrmJob() (port.Job, error) {
	customers, err := d.customerSource("customerOrmReader", byIDDesc(OrmMinimumAge))
	if err != nil {
		return nil, err
	}
	persist, err := writer.NewGormPersistItemWriter[*entity.Customer]("customerOrmWriter", entity.CustomerMapping())
	if err != nil {
		return nil, err
	}
	out := item.NewCompositeItemWriter[*entity.Customer](d.printCustomers(), persist)

	step, err := itemstep.NewChunkStep[*entity.Customer, *entity.Customer]("customerOrmStep",
		customers, processor.AddOneAge(), out, d.chunkSize(), d.Repository, gormadapter.NewGormTransactionManager(d.Gorm))
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return d.finish(runner.NewSimpleJob(CustomerOrmJobName, d.Repository, step))
}

// CustomerMapperJob ages customers through the named selectCustomers and
// updateCustomer statements.
func (d *Deps) CustomerMapperJob() (port.Job, error) {
	source, err := reader.NewNamedStatementPagingSource[*entity.Customer](d.SQL, d.Statements,
		"customer.selectCustomers", map[string]interface{}{"age": OrmMinimumAge}, d.pageSize(), entity.CustomerMapping())
	if err != nil {
		return nil, err
	}
	updateWriter, err := writer.NewNamedStatementItemWriter(d.Statements, "customer.updateCustomer", writer.StructParams[*entity.Customer]())
	if err != nil {
		return nil, err
	}

	step, err := itemstep.NewChunkStep[*entity.Customer, *entity.Customer]("customerMapperStep",
		item.NewPagingItemReader[*entity.Customer]("customerMapperReader", source),
		processor.AddOneAge(), updateWriter, d.chunkSize(), d.Repository, sqldb.NewSQLTransactionManager(d.SQL))
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return d.finish(runner.NewSimpleJob(CustomerMapperJobName, d.Repository, step))
}

// CustomerCompositeJob lower-cases every name and adds twenty years before printing.
func (d *Deps) CustomerCompositeJob() (port.Job, error) {
	customers, err := d.customerSource("customerCompositeReader", byID)
	if err != nil {
		return nil, err
	}
	pipeline := item.NewCompositeItemProcessor(processor.LowerCaseName(), processor.After20Years())

	step, err := itemstep.NewChunkStep[*entity.Customer, *entity.Customer]("customerCompositeStep",
		customers, pipeline, d.printCustomers(), d.chunkSize(), d.Repository, d.noDatabaseTx())
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return d.finish(runner.NewSimpleJob(CustomerCompositeJobName, d.Repository, step))
}

// CustomerBonusJob looks up the bonus of every customer older than 50 and
// reports the high-bonus ones. Nothing is written back.
func (d *Deps) CustomerBonusJob() (port.Job, error) {
	customers, err := d.customerSource("customerBonusReader", byIDDesc(BonusMinimumAge))
	if err != nil {
		return nil, err
	}
	client := d.Bonus
	if client == nil {
		client = tutorialwriter.NewStubBonusClient()
	}
	bonusWriter, err := tutorialwriter.NewBonusItemWriter(client, d.BonusConcurrency, d.out())
	if err != nil {
		return nil, err
	}

	step, err := itemstep.NewChunkStep[*entity.Customer, *entity.Customer]("customerBonusStep",
		customers, processor.AssignGrade(), bonusWriter, bonusChunkSize, d.Repository, d.noDatabaseTx())
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return d.finish(runner.NewSimpleJob(CustomerBonusJobName, d.Repository, step))
}

// CustomerExportJob exports every customer as Parquet, one object per chunk
// and grade, and publishes them to Kafka when a producer is configured.
func (d *Deps) CustomerExportJob() (port.Job, error) {
	customers, err := d.customerSource("customerExportReader", byID)
	if err != nil {
		return nil, err
	}
	parquetWriter, err := writer.NewParquetItemWriter[entity.CustomerRecord]("customerParquetWriter",
		map[string]interface{}{"outputBaseDir": ExportBaseDir, "compressionType": "SNAPPY"},
		d.Storage, &entity.CustomerRecord{}, gradePartition)
	if err != nil {
		return nil, err
	}
	writers := []port.ItemWriter[entity.CustomerRecord]{parquetWriter}
	if d.Kafka != nil {
		kafkaWriter, err := writer.NewKafkaItemWriter[entity.CustomerRecord]("customerKafkaWriter", d.Kafka,
			func(r entity.CustomerRecord) []byte { return []byte(strconv.FormatInt(r.ID, 10)) })
		if err != nil {
			return nil, err
		}
		writers = append(writers, kafkaWriter)
	}

	step, err := itemstep.NewChunkStep[*entity.Customer, entity.CustomerRecord]("customerExportStep",
		customers, processor.ToRecord(), item.NewCompositeItemWriter(writers...), d.chunkSize(), d.Repository, d.noDatabaseTx())
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return d.finish(runner.NewSimpleJob(CustomerExportJobName, d.Repository, step))
}

// gradePartition places each record under grade=<grade>, ungraded ones under grade=NONE.
func gradePartition(r entity.CustomerRecord) (string, error) {
	if r.Grade == "" {
		return "grade=NONE", nil
	}
	return "grade=" + r.Grade, nil
}
