package importer

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ChunkProcessor runs one chunk of rows through validation and upsert.
// Every row either succeeds or produces exactly one error string; a bad
// row never aborts the rest of the chunk.
type ChunkProcessor struct {
	engine *UpsertEngine
	log    *logrus.Entry
}

func NewChunkProcessor(engine *UpsertEngine, logger *logrus.Logger) *ChunkProcessor {
	return &ChunkProcessor{
		engine: engine,
		log:    logger.WithField("component", "import-chunk"),
	}
}

// Process applies every row in the chunk and returns the number of
// successful rows plus one "Row {n}: {reason}" string per failed row.
func (p *ChunkProcessor) Process(rows []ChunkRow) (int, []string) {
	successCount := 0
	var errs []string

	for _, cr := range rows {
		row, err := ValidateRow(cr.Record)
		if err == nil {
			err = p.engine.Apply(row)
		}
		if err != nil {
			msg := fmt.Sprintf("Row %d: %s", cr.Num, err)
			errs = append(errs, msg)
			p.log.Warn(msg)
			continue
		}
		successCount++
	}

	return successCount, errs
}
