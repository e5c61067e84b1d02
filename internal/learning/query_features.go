// Package learning implements the Learning Engine: an 8-dimensional
// query feature extractor, a UCB1 contextual scan-strategy bandit, a
// multi-dimensional query plan optimizer, and the composition layer
// that wires them to DML traffic. Ported from
// ai/learning/{query_features,bandit,query_plan_optimizer,
// learning_engine}.cpp.
package learning

import (
	"math"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// selectivityPriors are the fixed per-operator priors used to estimate
// predicate selectivity absent any learned model.
var selectivityPriors = map[string]float64{
	"=":    0.1,
	"<":    0.33,
	">":    0.33,
	"<=":   0.33,
	">=":   0.33,
	"!=":   0.9,
	"LIKE": 0.25,
}

// CatalogIndexLookup answers whether table has an index on column,
// the read-only catalog view the feature extractor and cost model
// need.
type CatalogIndexLookup interface {
	HasIndex(table, column string) bool
	RowCount(table string) uint64
}

// Features is the fixed 8-dimensional vector consumed by the
// scan-strategy bandit.
type Features struct {
	Log2RowCount              float64
	WhereClauseCount          float64
	FirstPredicateIsEquality  float64
	IndexAvailable            float64
	SelectivityEstimate       float64
	ProjectedColumnCount      float64
	HasOrderBy                float64
	HasLimit                  float64
}

// ToArray returns the features in the fixed ordering the bandit and
// any persisted model depend on.
func (f Features) ToArray() [8]float64 {
	return [8]float64{
		f.Log2RowCount,
		f.WhereClauseCount,
		f.FirstPredicateIsEquality,
		f.IndexAvailable,
		f.SelectivityEstimate,
		f.ProjectedColumnCount,
		f.HasOrderBy,
		f.HasLimit,
	}
}

// Extract derives the feature vector for stmt against catalog.
func Extract(stmt aimodel.SelectStatement, catalog CatalogIndexLookup) Features {
	rowCount := catalog.RowCount(stmt.TableName)
	log2Rows := 0.0
	if rowCount > 0 {
		log2Rows = math.Log2(float64(rowCount))
	}

	firstEquality := 0.0
	indexAvailable := 0.0
	if len(stmt.Predicates) > 0 {
		first := stmt.Predicates[0]
		if first.Op == "=" {
			firstEquality = 1.0
		}
		if catalog.HasIndex(stmt.TableName, first.Column) {
			indexAvailable = 1.0
		}
	}

	selectivity := 1.0
	for _, p := range stmt.Predicates {
		prior, ok := selectivityPriors[p.Op]
		if !ok {
			prior = 0.5
		}
		selectivity *= prior
	}
	if len(stmt.Predicates) == 0 {
		selectivity = 1.0
	}

	hasOrderBy := 0.0
	if stmt.HasOrderBy {
		hasOrderBy = 1.0
	}
	hasLimit := 0.0
	if stmt.HasLimit {
		hasLimit = 1.0
	}

	return Features{
		Log2RowCount:             log2Rows,
		WhereClauseCount:         float64(len(stmt.Predicates)),
		FirstPredicateIsEquality: firstEquality,
		IndexAvailable:           indexAvailable,
		SelectivityEstimate:      selectivity,
		ProjectedColumnCount:     float64(stmt.ColumnCount),
		HasOrderBy:               hasOrderBy,
		HasLimit:                 hasLimit,
	}
}
