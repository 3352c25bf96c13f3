// Package inmemdb provides map backed repositories, used in debug mode and tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
)

type (
	DB struct {
		record *recordTable
		report *reportTable
	}

	recordTable struct {
		sync.RWMutex
		table map[string]*academic.Record
	}

	reportTable struct {
		sync.RWMutex
		table map[string]*report.Archive
	}
)

func Open() *DB {
	return &DB{
		record: &recordTable{table: make(map[string]*academic.Record)},
		report: &reportTable{table: make(map[string]*report.Archive)},
	}
}
