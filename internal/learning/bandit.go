package learning

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

const numScanArms = 2

const banditHeader = "CHRONOS_BANDIT_V1"

type tableStat struct {
	pulls       uint64
	totalReward float64
}

type scanArm struct {
	pullCount       uint64 // atomic
	totalRewardX1e4 uint64 // atomic, fixed-point reward*10000

	tableMu    sync.Mutex
	tableStats map[string]tableStat
}

// ArmStats is a read-only snapshot of one arm, used by SHOW EXECUTION
// STATS.
type ArmStats struct {
	Strategy     aimodel.ScanStrategy
	TotalPulls   uint64
	AverageReward float64
	UCBScore     float64
}

// ScanBandit implements a two-armed contextual UCB1 bandit choosing
// between sequential and index scans. Ported from
// ai/learning/bandit.cpp.
type ScanBandit struct {
	minSamples       int
	minArmPulls      int
	minTablePulls    int
	explorationConst float64
	rewardScaleMS    float64

	arms       [numScanArms]*scanArm
	totalPulls uint64 // atomic
}

// NewScanBandit creates a ScanBandit from the shared tunables.
func NewScanBandit(minSamples, minArmPulls, minTablePulls int, explorationConst, rewardScaleMS float64) *ScanBandit {
	b := &ScanBandit{
		minSamples:       minSamples,
		minArmPulls:      minArmPulls,
		minTablePulls:    minTablePulls,
		explorationConst: explorationConst,
		rewardScaleMS:    rewardScaleMS,
	}
	for i := range b.arms {
		b.arms[i] = &scanArm{tableStats: make(map[string]tableStat)}
	}
	return b
}

// SelectStrategy chooses a scan strategy for a query against table
// with the given features.
func (b *ScanBandit) SelectStrategy(features Features, table string) aimodel.ScanStrategy {
	if features.IndexAvailable < 0.5 {
		return aimodel.ScanSequential
	}

	total := atomic.LoadUint64(&b.totalPulls)
	if total < uint64(b.minSamples) {
		if total%2 == 0 {
			return aimodel.ScanIndex
		}
		return aimodel.ScanSequential
	}

	for i, arm := range b.arms {
		if atomic.LoadUint64(&arm.pullCount) < uint64(b.minArmPulls) {
			return aimodel.ScanStrategy(i)
		}
	}

	hasTableContext := true
	for _, arm := range b.arms {
		arm.tableMu.Lock()
		st, ok := arm.tableStats[table]
		arm.tableMu.Unlock()
		if !ok || st.pulls < uint64(b.minTablePulls) {
			hasTableContext = false
			break
		}
	}

	bestScore := math.Inf(-1)
	bestArm := 0
	for i := range b.arms {
		var score float64
		if hasTableContext {
			score = b.computeTableUCBScore(i, table)
		} else {
			score = b.computeUCBScore(i)
		}
		if score > bestScore {
			bestScore = score
			bestArm = i
		}
	}

	if features.SelectivityEstimate < 0.05 && bestArm == int(aimodel.ScanSequential) {
		idxReward := b.averageReward(int(aimodel.ScanIndex))
		seqReward := b.averageReward(int(aimodel.ScanSequential))
		if idxReward > 0 && idxReward > seqReward*0.8 {
			bestArm = int(aimodel.ScanIndex)
		}
	} else if features.SelectivityEstimate > 0.5 && bestArm == int(aimodel.ScanIndex) {
		idxReward := b.averageReward(int(aimodel.ScanIndex))
		seqReward := b.averageReward(int(aimodel.ScanSequential))
		if seqReward > 0 && seqReward > idxReward*0.8 {
			bestArm = int(aimodel.ScanSequential)
		}
	}

	return aimodel.ScanStrategy(bestArm)
}

// RecordOutcome records the observed execution time for strategy on
// table, updating global and per-table arm statistics.
func (b *ScanBandit) RecordOutcome(strategy aimodel.ScanStrategy, table string, executionTimeMS float64) {
	arm := int(strategy)
	if arm < 0 || arm >= numScanArms {
		return
	}

	reward := b.computeReward(executionTimeMS)
	rewardFixed := uint64(reward * 10000.0)

	atomic.AddUint64(&b.arms[arm].pullCount, 1)
	atomic.AddUint64(&b.arms[arm].totalRewardX1e4, rewardFixed)
	atomic.AddUint64(&b.totalPulls, 1)

	a := b.arms[arm]
	a.tableMu.Lock()
	st := a.tableStats[table]
	st.pulls++
	st.totalReward += reward
	a.tableStats[table] = st
	a.tableMu.Unlock()
}

// GetStats returns a snapshot of every arm, used by SHOW EXECUTION
// STATS.
func (b *ScanBandit) GetStats() []ArmStats {
	out := make([]ArmStats, numScanArms)
	for i := range b.arms {
		out[i] = ArmStats{
			Strategy:      aimodel.ScanStrategy(i),
			TotalPulls:    atomic.LoadUint64(&b.arms[i].pullCount),
			AverageReward: b.averageReward(i),
			UCBScore:      b.computeUCBScore(i),
		}
	}
	return out
}

// HasSufficientData reports whether the bandit has seen enough pulls
// to recommend a strategy with confidence.
func (b *ScanBandit) HasSufficientData() bool {
	return atomic.LoadUint64(&b.totalPulls) >= uint64(b.minSamples)
}

// Reset clears all arm and per-table statistics.
func (b *ScanBandit) Reset() {
	for _, arm := range b.arms {
		atomic.StoreUint64(&arm.pullCount, 0)
		atomic.StoreUint64(&arm.totalRewardX1e4, 0)
		arm.tableMu.Lock()
		arm.tableStats = make(map[string]tableStat)
		arm.tableMu.Unlock()
	}
	atomic.StoreUint64(&b.totalPulls, 0)
}

// Decay multiplies every counter by factor. factor<=0 is equivalent to
// Reset; factor>=1 is a no-op. Per-table entries whose decayed pull
// count drops below 2 are evicted.
func (b *ScanBandit) Decay(factor float64) {
	if factor <= 0.0 {
		b.Reset()
		return
	}
	if factor >= 1.0 {
		return
	}

	var newTotal uint64
	for _, arm := range b.arms {
		oldPulls := atomic.LoadUint64(&arm.pullCount)
		newPulls := uint64(float64(oldPulls) * factor)
		atomic.StoreUint64(&arm.pullCount, newPulls)
		newTotal += newPulls

		oldReward := atomic.LoadUint64(&arm.totalRewardX1e4)
		atomic.StoreUint64(&arm.totalRewardX1e4, uint64(float64(oldReward)*factor))

		arm.tableMu.Lock()
		for name, st := range arm.tableStats {
			st.pulls = uint64(float64(st.pulls) * factor)
			st.totalReward *= factor
			if st.pulls < 2 {
				delete(arm.tableStats, name)
				continue
			}
			arm.tableStats[name] = st
		}
		arm.tableMu.Unlock()
	}
	atomic.StoreUint64(&b.totalPulls, newTotal)
}

func (b *ScanBandit) computeReward(executionTimeMS float64) float64 {
	return 1.0 / (1.0 + executionTimeMS/b.rewardScaleMS)
}

func (b *ScanBandit) averageReward(arm int) float64 {
	pulls := atomic.LoadUint64(&b.arms[arm].pullCount)
	if pulls == 0 {
		return 0
	}
	reward := atomic.LoadUint64(&b.arms[arm].totalRewardX1e4)
	return (float64(reward) / 10000.0) / float64(pulls)
}

func (b *ScanBandit) computeUCBScore(arm int) float64 {
	nA := atomic.LoadUint64(&b.arms[arm].pullCount)
	n := atomic.LoadUint64(&b.totalPulls)
	if nA == 0 {
		return math.Inf(1)
	}
	qA := b.averageReward(arm)
	exploration := b.explorationConst * math.Sqrt(math.Log(float64(n))/float64(nA))
	return qA + exploration
}

func (b *ScanBandit) computeTableUCBScore(arm int, table string) float64 {
	a := b.arms[arm]
	a.tableMu.Lock()
	st, ok := a.tableStats[table]
	a.tableMu.Unlock()
	if !ok || st.pulls == 0 {
		return math.Inf(1)
	}
	n := atomic.LoadUint64(&b.totalPulls)
	qA := st.totalReward / float64(st.pulls)
	exploration := b.explorationConst * math.Sqrt(math.Log(float64(n))/float64(st.pulls))
	return qA + exploration
}

// SaveState writes the bandit's state to path in the text
// CHRONOS_BANDIT_V1 format.
func (b *ScanBandit) SaveState(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, banditHeader)
	fmt.Fprintln(w, atomic.LoadUint64(&b.totalPulls))
	fmt.Fprintln(w, numScanArms)
	for _, arm := range b.arms {
		fmt.Fprintf(w, "%d %d\n", atomic.LoadUint64(&arm.pullCount), atomic.LoadUint64(&arm.totalRewardX1e4))
		arm.tableMu.Lock()
		fmt.Fprintln(w, len(arm.tableStats))
		for name, st := range arm.tableStats {
			fmt.Fprintf(w, "%s %d %g\n", name, st.pulls, st.totalReward)
		}
		arm.tableMu.Unlock()
	}
	return w.Flush()
}

// LoadState reads a previously saved bandit state from path, rejecting
// a mismatched header or arm count.
func (b *ScanBandit) LoadState(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	readLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	header, ok := readLine()
	if !ok || header != banditHeader {
		return fmt.Errorf("bandit state: bad header %q", header)
	}

	var totalPulls uint64
	var numArms int
	if _, err := fmt.Sscanf(mustLine(readLine()), "%d", &totalPulls); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(mustLine(readLine()), "%d", &numArms); err != nil {
		return err
	}
	if numArms != numScanArms {
		return fmt.Errorf("bandit state: arm count %d != %d", numArms, numScanArms)
	}

	newArms := [numScanArms]*scanArm{}
	for i := 0; i < numScanArms; i++ {
		var pulls, reward uint64
		if _, err := fmt.Sscanf(mustLine(readLine()), "%d %d", &pulls, &reward); err != nil {
			return err
		}
		var tableCount int
		if _, err := fmt.Sscanf(mustLine(readLine()), "%d", &tableCount); err != nil {
			return err
		}
		tables := make(map[string]tableStat, tableCount)
		for t := 0; t < tableCount; t++ {
			var name string
			var tPulls uint64
			var tReward float64
			line := mustLine(readLine())
			if _, err := fmt.Sscanf(line, "%s %d %g", &name, &tPulls, &tReward); err != nil {
				return err
			}
			tables[name] = tableStat{pulls: tPulls, totalReward: tReward}
		}
		newArms[i] = &scanArm{tableStats: tables}
		atomic.StoreUint64(&newArms[i].pullCount, pulls)
		atomic.StoreUint64(&newArms[i].totalRewardX1e4, reward)
	}

	b.arms = newArms
	atomic.StoreUint64(&b.totalPulls, totalPulls)
	return nil
}

func mustLine(s string, ok bool) string {
	if !ok {
		return ""
	}
	return s
}
