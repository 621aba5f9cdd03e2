package job

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/resources"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/step/processor"
	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/writer"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/job/runner"
	itemstep "github.com/tigerroll/chunkbatch/pkg/batch/engine/step/item"
)

const (
	PlayersOutputFile   = "players_out.csv"
	CustomersOutputFile = "customers_out.csv"

	playerChunkSize       = 10
	customerFileChunkSize = 100
)

// totalsFooter renders the player or customer count and the age sum.
func totalsFooter(label, countKey string) writer.FooterCallback {
	return func(w io.Writer, totals map[string]int64) error {
		_, err := fmt.Fprintf(w, "Total %s: %d\nTotal ages: %d\n", label, totals[countKey], totals[processor.TotalAges])
		return err
	}
}

func header(line string) writer.HeaderCallback {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, line+"\n")
		return err
	}
}

// PlayerJob reads players.csv, makes every player a year older, writes
// players_out.csv with totals in the footer and stores the players in PLAYER
// when a workload database is configured.
func (d *Deps) PlayerJob() (port.Job, error) {
	aggregate := model.NewAggregateState()

	fileReader, err := reader.NewFlatFileItemReader(reader.FlatFileItemReaderConfig[*entity.Player]{
		Name:        "playerReader",
		FS:          d.Data,
		Path:        resources.PlayersFile,
		LinesToSkip: 1,
		Names:       []string{"No", "Name", "Age"},
		Mapper: func(fs reader.FieldSet) (*entity.Player, error) {
			no, err := fs.ReadInt("No")
			if err != nil {
				return nil, err
			}
			name, err := fs.ReadString("Name")
			if err != nil {
				return nil, err
			}
			age, err := fs.ReadInt("Age")
			if err != nil {
				return nil, err
			}
			return &entity.Player{No: int64(no), Name: name, Age: age}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	fileWriter, err := writer.NewFlatFileItemWriter(writer.FlatFileItemWriterConfig[*entity.Player]{
		Name: "playerWriter",
		Path: filepath.Join(d.OutputDir, PlayersOutputFile),
		Fields: func(p *entity.Player) ([]string, error) {
			return []string{strconv.FormatInt(p.No, 10), p.Name, strconv.Itoa(p.Age)}, nil
		},
		Header:    header("No,Name,Age"),
		Footer:    totalsFooter("players", processor.TotalPlayers),
		Aggregate: aggregate,
	})
	if err != nil {
		return nil, err
	}

	var (
		out       port.ItemWriter[*entity.Player] = fileWriter
		txManager                                 = d.noDatabaseTx()
	)
	if d.Gorm != nil {
		persist, err := writer.NewGormPersistItemWriter[*entity.Player]("playerPersistWriter", entity.PlayerMapping())
		if err != nil {
			return nil, err
		}
		out = item.NewCompositeItemWriter[*entity.Player](fileWriter, persist)
		txManager = gormadapter.NewGormTransactionManager(d.Gorm)
	}

	step, err := itemstep.NewChunkStep[*entity.Player, *entity.Player]("playerStep",
		fileReader, processor.NewPlayerAgeIncrement(aggregate), out, playerChunkSize, d.Repository, txManager)
	if err != nil {
		return nil, err
	}
	d.instrument(step, processor.NewAggregateListener(aggregate))
	return d.finish(runner.NewSimpleJob(PlayerJobName, d.Repository, step))
}

// CustomerFileJob converts the tab separated customers.tsv into
// customers_out.csv holding name and age, with totals in the footer.
func (d *Deps) CustomerFileJob() (port.Job, error) {
	aggregate := model.NewAggregateState()

	fileReader, err := reader.NewFlatFileItemReader(reader.FlatFileItemReaderConfig[*entity.Customer]{
		Name:      "customerFileReader",
		FS:        d.Data,
		Path:      resources.CustomersFile,
		Delimiter: '\t',
		Names:     []string{"name", "age", "gender"},
		Mapper: func(fs reader.FieldSet) (*entity.Customer, error) {
			name, err := fs.ReadString("name")
			if err != nil {
				return nil, err
			}
			age, err := fs.ReadInt("age")
			if err != nil {
				return nil, err
			}
			gender, err := fs.ReadInt("gender")
			if err != nil {
				return nil, err
			}
			return &entity.Customer{Name: name, Age: age, Gender: gender}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	fileWriter, err := writer.NewFlatFileItemWriter(writer.FlatFileItemWriterConfig[*entity.Customer]{
		Name: "customerFileWriter",
		Path: filepath.Join(d.OutputDir, CustomersOutputFile),
		Aggregator: func(c *entity.Customer) (string, error) {
			return fmt.Sprintf("%s,%d", c.Name, c.Age), nil
		},
		Header:    header("ID,AGE"),
		Footer:    totalsFooter("customers", processor.TotalCustomers),
		Aggregate: aggregate,
	})
	if err != nil {
		return nil, err
	}

	step, err := itemstep.NewChunkStep[*entity.Customer, *entity.Customer]("customerFileStep",
		fileReader, processor.CustomerTotals(aggregate), fileWriter, customerFileChunkSize, d.Repository, d.noDatabaseTx())
	if err != nil {
		return nil, err
	}
	d.instrument(step, processor.NewAggregateListener(aggregate))
	return d.finish(runner.NewSimpleJob(CustomerFileJobName, d.Repository, step))
}
