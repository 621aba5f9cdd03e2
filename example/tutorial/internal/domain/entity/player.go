package entity

import (
	"fmt"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
)

// PlayerTable is the table players are stored in.
const PlayerTable = "PLAYER"

// Player is a line of players.csv.
type Player struct {
	No   int64
	Name string
	Age  int
}

func (p *Player) String() string {
	return fmt.Sprintf("Player(no=%d, name=%s, age=%d)", p.No, p.Name, p.Age)
}

// PlayerMapping binds Player to the PLAYER table, keyed by NO.
func PlayerMapping() *mapping.SchemaMapping {
	return mapping.NewSchemaMapping(PlayerTable, "NO").
		Map("No", "NO").
		Map("Name", "NAME").
		Map("Age", "AGE")
}
