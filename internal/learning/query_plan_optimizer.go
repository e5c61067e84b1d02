package learning

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

const optimizerHeader = "CHRONOS_OPTIMIZER_V1"

const (
	numFilterArms = 3
	numLimitArms  = 2
)

var predicateCostPriors = map[string]float64{
	"=":    1.0,
	"!=":   1.0,
	"<>":   1.0,
	"<":    1.5,
	">":    1.5,
	"<=":   1.5,
	">=":   1.5,
	"IN":   3.0,
	"LIKE": 5.0,
}

type optimizerArm struct {
	pullCount       uint64
	totalRewardX1e4 uint64
}

type selectivityEntry struct {
	observations          uint64
	cumulativeSelectivity float64
}

// DimensionStats reports one decision dimension's per-arm pull counts,
// used by SHOW EXECUTION STATS.
type DimensionStats struct {
	Name  string
	Arms  []string
	Pulls []uint64
}

// OptimizerStats is a read-only snapshot of the plan optimizer.
type OptimizerStats struct {
	TotalOptimizations uint64
	FilterReorders     uint64
	EarlyTerminations  uint64
	Dimensions         []DimensionStats
}

// PlanOptimizer composes independent UCB1 bandits per decision
// dimension with a learned predicate-selectivity model. Ported from
// ai/learning/query_plan_optimizer.cpp.
type PlanOptimizer struct {
	minSamples       int
	minArmPulls      int
	explorationConst float64
	rewardScaleMS    float64

	totalOptimizations uint64
	filterReorders     uint64
	earlyTerminations  uint64

	filterArms      [numFilterArms]*optimizerArm
	filterTotalPull uint64

	limitArms      [numLimitArms]*optimizerArm
	limitTotalPull uint64

	selMu    sync.Mutex
	selModel map[string]selectivityEntry
}

// NewPlanOptimizer creates a PlanOptimizer from the shared tunables.
func NewPlanOptimizer(minSamples, minArmPulls int, explorationConst, rewardScaleMS float64) *PlanOptimizer {
	o := &PlanOptimizer{
		minSamples:       minSamples,
		minArmPulls:      minArmPulls,
		explorationConst: explorationConst,
		rewardScaleMS:    rewardScaleMS,
		selModel:         make(map[string]selectivityEntry),
	}
	for i := range o.filterArms {
		o.filterArms[i] = &optimizerArm{}
	}
	for i := range o.limitArms {
		o.limitArms[i] = &optimizerArm{}
	}
	return o
}

// Optimize produces an execution plan for stmt against table.
func (o *PlanOptimizer) Optimize(stmt aimodel.SelectStatement, table string) aimodel.ExecutionPlan {
	order := make([]int, len(stmt.Predicates))
	for i := range order {
		order[i] = i
	}

	if atomic.LoadUint64(&o.totalOptimizations) < uint64(o.minSamples) {
		return aimodel.ExecutionPlan{FilterOrder: order, AIGenerated: false}
	}

	plan := aimodel.ExecutionPlan{AIGenerated: true}

	if len(stmt.Predicates) > 1 {
		plan.FilterStrategy = aimodel.FilterStrategy(o.selectArm(o.filterArms[:], &o.filterTotalPull))
	} else {
		plan.FilterStrategy = aimodel.FilterOriginal
	}

	switch plan.FilterStrategy {
	case aimodel.FilterSelectivity:
		order = o.orderBySelectivity(stmt, table, order)
	case aimodel.FilterCost:
		order = o.orderByCost(stmt, order)
	}
	plan.FilterOrder = order

	if stmt.HasLimit && !stmt.HasOrderBy {
		plan.LimitStrategy = aimodel.LimitStrategy(o.selectArm(o.limitArms[:], &o.limitTotalPull))
	} else {
		plan.LimitStrategy = aimodel.LimitFullScan
	}

	return plan
}

func (o *PlanOptimizer) selectArm(arms []*optimizerArm, totalPulls *uint64) int {
	for i, arm := range arms {
		if atomic.LoadUint64(&arm.pullCount) < uint64(o.minArmPulls) {
			return i
		}
	}
	bestScore := math.Inf(-1)
	bestArm := 0
	n := atomic.LoadUint64(totalPulls)
	for i, arm := range arms {
		score := o.computeUCB(arm, n)
		if score > bestScore {
			bestScore = score
			bestArm = i
		}
	}
	return bestArm
}

func (o *PlanOptimizer) computeUCB(arm *optimizerArm, total uint64) float64 {
	nA := atomic.LoadUint64(&arm.pullCount)
	if nA == 0 {
		return math.Inf(1)
	}
	reward := float64(atomic.LoadUint64(&arm.totalRewardX1e4)) / 10000.0
	qA := reward / float64(nA)
	exploration := o.explorationConst * math.Sqrt(math.Log(float64(total))/float64(nA))
	return qA + exploration
}

func (o *PlanOptimizer) orderBySelectivity(stmt aimodel.SelectStatement, table string, order []int) []int {
	sorted := append([]int(nil), order...)
	selectivityOf := func(idx int) float64 {
		p := stmt.Predicates[idx]
		key := selectivityKey(table, p.Column, p.Op)
		o.selMu.Lock()
		entry, ok := o.selModel[key]
		o.selMu.Unlock()
		if !ok || entry.observations == 0 {
			return 0.5
		}
		return entry.cumulativeSelectivity / float64(entry.observations)
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return selectivityOf(sorted[a]) < selectivityOf(sorted[b])
	})
	return sorted
}

func (o *PlanOptimizer) orderByCost(stmt aimodel.SelectStatement, order []int) []int {
	sorted := append([]int(nil), order...)
	costOf := func(idx int) float64 {
		if c, ok := predicateCostPriors[stmt.Predicates[idx].Op]; ok {
			return c
		}
		return 2.0
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return costOf(sorted[a]) < costOf(sorted[b])
	})
	return sorted
}

func selectivityKey(table, column, op string) string {
	return table + "::" + column + "::" + op
}

// RecordFeedback updates the chosen dimensions' arm statistics and the
// selectivity model from one completed SELECT.
func (o *PlanOptimizer) RecordFeedback(feedback aimodel.OptimizationFeedback, plan aimodel.ExecutionPlan) {
	atomic.AddUint64(&o.totalOptimizations, 1)

	reward := o.computeReward(feedback.DurationMS)
	rewardFixed := uint64(reward * 10000.0)

	if feedback.WhereClauseCount > 1 {
		arm := int(plan.FilterStrategy)
		if arm >= 0 && arm < numFilterArms {
			atomic.AddUint64(&o.filterArms[arm].pullCount, 1)
			atomic.AddUint64(&o.filterArms[arm].totalRewardX1e4, rewardFixed)
			atomic.AddUint64(&o.filterTotalPull, 1)
			if plan.FilterStrategy != aimodel.FilterOriginal {
				atomic.AddUint64(&o.filterReorders, 1)
			}
		}
	}

	if feedback.HadLimit && !feedback.HadOrderBy {
		arm := int(plan.LimitStrategy)
		if arm >= 0 && arm < numLimitArms {
			atomic.AddUint64(&o.limitArms[arm].pullCount, 1)
			atomic.AddUint64(&o.limitArms[arm].totalRewardX1e4, rewardFixed)
			atomic.AddUint64(&o.limitTotalPull, 1)
			if plan.LimitStrategy == aimodel.LimitEarlyTermination {
				atomic.AddUint64(&o.earlyTerminations, 1)
			}
		}
	}

	if feedback.TotalRowsScanned > 0 && feedback.WhereClauseCount > 0 {
		selectivity := float64(feedback.RowsAfterFilter) / float64(feedback.TotalRowsScanned)
		key := selectivityKey(feedback.TableName, "*", strconv.Itoa(feedback.WhereClauseCount)+"conds")
		o.selMu.Lock()
		entry := o.selModel[key]
		entry.observations++
		entry.cumulativeSelectivity += selectivity
		o.selModel[key] = entry
		o.selMu.Unlock()
	}
}

func (o *PlanOptimizer) computeReward(executionTimeMS float64) float64 {
	return 1.0 / (1.0 + executionTimeMS/o.rewardScaleMS)
}

// HasSufficientData reports whether enough optimizations have been
// recorded to generate AI-driven plans.
func (o *PlanOptimizer) HasSufficientData() bool {
	return atomic.LoadUint64(&o.totalOptimizations) >= uint64(o.minSamples)
}

// GetStats returns a snapshot for SHOW EXECUTION STATS.
func (o *PlanOptimizer) GetStats() OptimizerStats {
	filterPulls := make([]uint64, numFilterArms)
	for i, a := range o.filterArms {
		filterPulls[i] = atomic.LoadUint64(&a.pullCount)
	}
	limitPulls := make([]uint64, numLimitArms)
	for i, a := range o.limitArms {
		limitPulls[i] = atomic.LoadUint64(&a.pullCount)
	}
	return OptimizerStats{
		TotalOptimizations: atomic.LoadUint64(&o.totalOptimizations),
		FilterReorders:     atomic.LoadUint64(&o.filterReorders),
		EarlyTerminations:  atomic.LoadUint64(&o.earlyTerminations),
		Dimensions: []DimensionStats{
			{Name: "Filter Strategy", Arms: []string{"Original Order", "Selectivity Order", "Cost Order"}, Pulls: filterPulls},
			{Name: "Limit Strategy", Arms: []string{"Full Scan", "Early Termination"}, Pulls: limitPulls},
		},
	}
}

// Reset clears every dimension's statistics and the selectivity model.
func (o *PlanOptimizer) Reset() {
	for _, a := range o.filterArms {
		atomic.StoreUint64(&a.pullCount, 0)
		atomic.StoreUint64(&a.totalRewardX1e4, 0)
	}
	atomic.StoreUint64(&o.filterTotalPull, 0)
	for _, a := range o.limitArms {
		atomic.StoreUint64(&a.pullCount, 0)
		atomic.StoreUint64(&a.totalRewardX1e4, 0)
	}
	atomic.StoreUint64(&o.limitTotalPull, 0)

	o.selMu.Lock()
	o.selModel = make(map[string]selectivityEntry)
	o.selMu.Unlock()

	atomic.StoreUint64(&o.totalOptimizations, 0)
	atomic.StoreUint64(&o.filterReorders, 0)
	atomic.StoreUint64(&o.earlyTerminations, 0)
}

// SaveState writes the optimizer's state to path in the text
// CHRONOS_OPTIMIZER_V1 format.
func (o *PlanOptimizer) SaveState(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, optimizerHeader)
	fmt.Fprintln(w, atomic.LoadUint64(&o.totalOptimizations))
	fmt.Fprintln(w, atomic.LoadUint64(&o.filterReorders))
	fmt.Fprintln(w, atomic.LoadUint64(&o.earlyTerminations))

	fmt.Fprintln(w, atomic.LoadUint64(&o.filterTotalPull))
	for _, a := range o.filterArms {
		fmt.Fprintf(w, "%d %d\n", atomic.LoadUint64(&a.pullCount), atomic.LoadUint64(&a.totalRewardX1e4))
	}

	fmt.Fprintln(w, atomic.LoadUint64(&o.limitTotalPull))
	for _, a := range o.limitArms {
		fmt.Fprintf(w, "%d %d\n", atomic.LoadUint64(&a.pullCount), atomic.LoadUint64(&a.totalRewardX1e4))
	}

	o.selMu.Lock()
	fmt.Fprintln(w, len(o.selModel))
	for key, entry := range o.selModel {
		fmt.Fprintf(w, "%s %d %g\n", key, entry.observations, entry.cumulativeSelectivity)
	}
	o.selMu.Unlock()

	return w.Flush()
}

// LoadState reads a previously saved optimizer state from path,
// rejecting a mismatched header.
func (o *PlanOptimizer) LoadState(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := func() string {
		sc.Scan()
		return sc.Text()
	}

	if h := line(); h != optimizerHeader {
		return fmt.Errorf("optimizer state: bad header %q", h)
	}

	var totalOpts, reorders, earlyTerm uint64
	fmt.Sscanf(line(), "%d", &totalOpts)
	fmt.Sscanf(line(), "%d", &reorders)
	fmt.Sscanf(line(), "%d", &earlyTerm)

	var filterTotal uint64
	fmt.Sscanf(line(), "%d", &filterTotal)
	var filterArms [numFilterArms]*optimizerArm
	for i := 0; i < numFilterArms; i++ {
		var pulls, reward uint64
		fmt.Sscanf(line(), "%d %d", &pulls, &reward)
		filterArms[i] = &optimizerArm{pullCount: pulls, totalRewardX1e4: reward}
	}

	var limitTotal uint64
	fmt.Sscanf(line(), "%d", &limitTotal)
	var limitArms [numLimitArms]*optimizerArm
	for i := 0; i < numLimitArms; i++ {
		var pulls, reward uint64
		fmt.Sscanf(line(), "%d %d", &pulls, &reward)
		limitArms[i] = &optimizerArm{pullCount: pulls, totalRewardX1e4: reward}
	}

	var selCount int
	fmt.Sscanf(line(), "%d", &selCount)
	selModel := make(map[string]selectivityEntry, selCount)
	for i := 0; i < selCount; i++ {
		fields := strings.Fields(line())
		if len(fields) != 3 {
			return fmt.Errorf("optimizer state: malformed selectivity line")
		}
		obs, _ := strconv.ParseUint(fields[1], 10, 64)
		cum, _ := strconv.ParseFloat(fields[2], 64)
		selModel[fields[0]] = selectivityEntry{observations: obs, cumulativeSelectivity: cum}
	}

	atomic.StoreUint64(&o.totalOptimizations, totalOpts)
	atomic.StoreUint64(&o.filterReorders, reorders)
	atomic.StoreUint64(&o.earlyTerminations, earlyTerm)
	o.filterArms = filterArms
	atomic.StoreUint64(&o.filterTotalPull, filterTotal)
	o.limitArms = limitArms
	atomic.StoreUint64(&o.limitTotalPull, limitTotal)

	o.selMu.Lock()
	o.selModel = selModel
	o.selMu.Unlock()

	return nil
}
