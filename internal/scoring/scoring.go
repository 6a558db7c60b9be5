// Package scoring compares a QC predictor's binary labels against a ground
// truth label and reports confusion counts.
package scoring

import (
	"fmt"
	"strings"

	"qcmeta/internal/table"
)

// Default label columns and positive values.
const (
	DefaultTruthColumn   = "HQ"
	DefaultPredColumn    = "QC_Prediction"
	DefaultTruthPositive = "T"
	DefaultPredPositive  = "pass"
)

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Predicate decides whether a non-null label is positive.
type Predicate func(label string) bool

// EqualFold returns a Predicate matching any of values after trimming
// whitespace, ignoring case.
func EqualFold(values ...string) Predicate {
	return func(label string) bool {
		label = strings.TrimSpace(label)
		for _, v := range values {
			if table.FoldEqual(label, strings.TrimSpace(v)) {
				return true
			}
		}
		return false
	}
}

// Config selects the label columns and positive predicates.
//
// TruthID and PredID default to the resolved key column of each table.
// TruthPositive defaults to EqualFold("T") and PredPositive to
// EqualFold("pass").
type Config struct {
	TruthColumn string
	PredColumn  string
	TruthID     string
	PredID      string

	TruthPositive Predicate
	PredPositive  Predicate

	Logger Logger
}

func (c Config) logf(format string, v ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}

// Result holds confusion counts over the joined rows.
type Result struct {
	TP, FP, TN, FN int

	Joined         int // rows in the inner join
	Undefined      int // joined rows with a null truth or prediction
	UnmatchedTruth int // truth rows without a prediction
	UnmatchedPred  int // prediction rows without a truth row
}

// Total is TP+FP+TN+FN.
func (r Result) Total() int { return r.TP + r.FP + r.TN + r.FN }

// Accuracy is (TP+TN)/Total, or 0 with no scored rows.
func (r Result) Accuracy() float64 { return ratio(r.TP+r.TN, r.Total()) }

// Precision is TP/(TP+FP), or 0 when undefined.
func (r Result) Precision() float64 { return ratio(r.TP, r.TP+r.FP) }

// Recall is TP/(TP+FN), or 0 when undefined.
func (r Result) Recall() float64 { return ratio(r.TP, r.TP+r.FN) }

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func (r Result) String() string {
	return fmt.Sprintf("TP=%d FP=%d TN=%d FN=%d undefined=%d unmatched_truth=%d unmatched_pred=%d",
		r.TP, r.FP, r.TN, r.FN, r.Undefined, r.UnmatchedTruth, r.UnmatchedPred)
}

// AsTable renders the result as a one-row report table.
func (r Result) AsTable() *table.Table {
	return table.New(
		[]string{"TP", "FP", "TN", "FN", "undefined", "unmatched_truth", "unmatched_pred", "accuracy", "precision", "recall"},
		[]any{r.TP, r.FP, r.TN, r.FN, r.Undefined, r.UnmatchedTruth, r.UnmatchedPred, r.Accuracy(), r.Precision(), r.Recall()},
	)
}

// DetectPredictionColumn picks the prediction column of t: QC_Prediction when
// present, else the first column whose name contains "qc" or "prediction"
// (ignoring case), else the last column.
func DetectPredictionColumn(t *table.Table) (string, error) {
	if t.Width() == 0 {
		return "", table.ErrNoColumns
	}
	if t.Has(DefaultPredColumn) {
		return DefaultPredColumn, nil
	}
	for _, c := range t.Columns {
		if table.FoldContains(c, "qc") || table.FoldContains(c, "prediction") {
			return c, nil
		}
	}
	return t.Columns[len(t.Columns)-1], nil
}

// Score inner-joins truth and pred on their identifier columns and counts
// each joined row with non-null labels into one confusion cell. Identifiers
// are compared in normalized form; empty identifiers never match. When an
// identifier repeats, every pairing is counted.
func Score(truth, pred *table.Table, cfg Config) (Result, error) {
	var res Result

	if cfg.TruthColumn == "" {
		cfg.TruthColumn = DefaultTruthColumn
	}
	if cfg.PredColumn == "" {
		cfg.PredColumn = DefaultPredColumn
	}
	if cfg.TruthPositive == nil {
		cfg.TruthPositive = EqualFold(DefaultTruthPositive)
	}
	if cfg.PredPositive == nil {
		cfg.PredPositive = EqualFold(DefaultPredPositive)
	}

	tid, err := idColumn(truth, cfg.TruthID)
	if err != nil {
		return res, fmt.Errorf("score: truth: %w", err)
	}
	pid, err := idColumn(pred, cfg.PredID)
	if err != nil {
		return res, fmt.Errorf("score: prediction: %w", err)
	}
	tl, ok := truth.Index(cfg.TruthColumn)
	if !ok {
		return res, fmt.Errorf("score: truth: %w: %q", table.ErrMissingColumn, cfg.TruthColumn)
	}
	pl, ok := pred.Index(cfg.PredColumn)
	if !ok {
		return res, fmt.Errorf("score: prediction: %w: %q", table.ErrMissingColumn, cfg.PredColumn)
	}

	byID := make(map[string][]int, pred.Len())
	for j, r := range pred.Rows {
		id := table.NormalizeKey(r[pid])
		if id == "" {
			continue
		}
		byID[id] = append(byID[id], j)
	}

	matchedPred := make([]bool, pred.Len())
	for _, r := range truth.Rows {
		id := table.NormalizeKey(r[tid])
		hits := byID[id]
		if id == "" || len(hits) == 0 {
			res.UnmatchedTruth++
			continue
		}
		for _, j := range hits {
			matchedPred[j] = true
			res.Joined++
			tv, pv := r[tl], pred.Rows[j][pl]
			if tv == nil || pv == nil {
				res.Undefined++
				continue
			}
			tpos := cfg.TruthPositive(table.FormatValue(tv))
			ppos := cfg.PredPositive(table.FormatValue(pv))
			switch {
			case tpos && ppos:
				res.TP++
			case !tpos && ppos:
				res.FP++
			case !tpos && !ppos:
				res.TN++
			default:
				res.FN++
			}
		}
	}
	for _, ok := range matchedPred {
		if !ok {
			res.UnmatchedPred++
		}
	}

	if res.UnmatchedTruth > 0 || res.UnmatchedPred > 0 {
		cfg.logf("stage=score unmatched truth=%d prediction=%d", res.UnmatchedTruth, res.UnmatchedPred)
	}
	if res.Undefined > 0 {
		cfg.logf("stage=score rows_with_null_labels=%d", res.Undefined)
	}
	return res, nil
}

func idColumn(t *table.Table, name string) (int, error) {
	if name == "" {
		k, err := table.RequireKey(t)
		if err != nil {
			return -1, err
		}
		return k.Index, nil
	}
	ix, ok := t.Index(name)
	if !ok {
		return -1, fmt.Errorf("%w: %q", table.ErrMissingColumn, name)
	}
	return ix, nil
}
