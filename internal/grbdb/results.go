// Public domain.

package grbdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/soniakeys/grbpost/internal/grbbkg"
	"github.com/soniakeys/grbpost/internal/grbeff"
	"github.com/soniakeys/grbpost/internal/grbtab"
	"github.com/soniakeys/grbpost/internal/grbtrial"
)

// Event is a ranked trigger.
type Event struct {
	Trigger grbtab.Trigger
	Stat    float64
	FAP     grbbkg.Significance
}

// Summary holds the scalar results of a run.
type Summary struct {
	Trials   int
	Median   float64 // median loudest-per-trial
	Loudest  float64 // loudest background trial
	OnSource bool    // on-source window was analysed
	// loudest on-source event, zero Stat if none survived
	OnSourceStat float64
	OnSourceFAP  grbbkg.Significance
}

// Results is everything one run writes.
type Results struct {
	RunID   uuid.UUID
	Created time.Time
	Config  any // recorded as JSON

	Trials     *grbtrial.Set
	Background *grbbkg.Background
	Summary    Summary
	Loudest    []Event

	// Efficiency is nil for a run without injections.  InjTrigs are the
	// triggers its matches index.
	Efficiency          *grbeff.Result
	InjTrigs            []grbtab.Trigger
	ExclusionPercentile float64
}

var resultsSchema = []string{
	`CREATE TABLE run (
		run_id     TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		config     TEXT NOT NULL
	)`,
	`CREATE TABLE slides (
		slide_id    INTEGER PRIMARY KEY,
		first_trial INTEGER NOT NULL,
		num_trials  INTEGER NOT NULL
	)`,
	`CREATE TABLE background (
		trial      INTEGER PRIMARY KEY,
		slide_id   INTEGER NOT NULL REFERENCES slides(slide_id),
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL,
		bestnr     REAL NOT NULL
	)`,
	`CREATE TABLE summary (
		num_trials      INTEGER NOT NULL,
		median_bestnr   REAL NOT NULL,
		loudest_bestnr  REAL NOT NULL,
		onsource        INTEGER NOT NULL,
		onsource_bestnr REAL NOT NULL,
		onsource_fap    REAL,
		onsource_upper  INTEGER NOT NULL
	)`,
	`CREATE TABLE efficiency (
		curve          TEXT NOT NULL,
		bin            INTEGER NOT NULL,
		dist_lo        REAL NOT NULL,
		dist_hi        REAL,
		total          INTEGER NOT NULL,
		found_bkg      INTEGER NOT NULL,
		eff_bkg        REAL,
		err_lo_bkg     REAL,
		err_hi_bkg     REAL,
		found_fore     INTEGER NOT NULL,
		eff_fore       REAL,
		err_lo_fore    REAL,
		err_hi_fore    REAL,
		PRIMARY KEY (curve, bin)
	)`,
	`CREATE TABLE distances (
		name       TEXT PRIMARY KEY,
		mpc        REAL,
		status     TEXT NOT NULL,
		percentile REAL NOT NULL,
		no_mc      INTEGER NOT NULL
	)`,
	`CREATE TABLE injections (
		id          INTEGER PRIMARY KEY,
		time        REAL NOT NULL,
		distance    REAL NOT NULL,
		disposition TEXT NOT NULL,
		glitched    INTEGER NOT NULL,
		trigger_id  INTEGER,
		bestnr      REAL NOT NULL,
		sky_error   REAL
	)`,
	`CREATE TABLE loudest (
		rank       INTEGER PRIMARY KEY,
		trigger_id INTEGER NOT NULL,
		slide_id   INTEGER NOT NULL,
		end_time   REAL NOT NULL,
		snr        REAL NOT NULL,
		null_snr   REAL NOT NULL,
		bestnr     REAL NOT NULL,
		fap        REAL,
		fap_upper  INTEGER NOT NULL
	)`,
}

// WriteResults writes r to a new database at path, replacing any file
// there.  The database is built in a temporary file next to path and
// renamed into place; on failure nothing is left behind.
func WriteResults(path string, r *Results) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".grbpost-*.db")
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	tmp := f.Name()
	f.Close()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	if err = writeResults(tmp, r); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeResults(path string, r *Results) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := exec(tx, resultsSchema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO run VALUES (?,?,?)`,
		r.RunID.String(), r.Created.UnixNano(), string(cfg)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if err := writeBackground(tx, r.Trials, r.Background); err != nil {
		return err
	}
	s := &r.Summary
	if _, err := tx.Exec(`INSERT INTO summary VALUES (?,?,?,?,?,?,?)`,
		s.Trials, s.Median, s.Loudest, s.OnSource, s.OnSourceStat,
		fap(s.OnSourceFAP), s.OnSourceFAP.UpperBound); err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	for i, e := range r.Loudest {
		t := &e.Trigger
		if _, err := tx.Exec(`INSERT INTO loudest VALUES (?,?,?,?,?,?,?,?,?)`,
			i+1, t.ID, t.Slide, t.EndTime, t.SNR, t.NullSNR, e.Stat,
			fap(e.FAP), e.FAP.UpperBound); err != nil {
			return fmt.Errorf("failed to insert loudest event: %w", err)
		}
	}
	if r.Efficiency != nil {
		if err := writeEfficiency(tx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func fap(s grbbkg.Significance) sql.NullFloat64 {
	return sql.NullFloat64{Float64: s.Value, Valid: s.N > 0}
}

func writeBackground(tx *sql.Tx, set *grbtrial.Set, b *grbbkg.Background) error {
	for k, id := range b.Slides {
		if _, err := tx.Exec(`INSERT INTO slides VALUES (?,?,?)`,
			id, b.Start[k], b.Start[k+1]-b.Start[k]); err != nil {
			return fmt.Errorf("failed to insert slide: %w", err)
		}
	}
	for i, v := range b.Values {
		tr := set.Trials[i]
		if _, err := tx.Exec(`INSERT INTO background VALUES (?,?,?,?,?)`,
			i, tr.Slide, tr.Start, tr.End, v); err != nil {
			return fmt.Errorf("failed to insert background trial: %w", err)
		}
	}
	return nil
}

func nullEff(e grbeff.Eff) (f, lo, hi sql.NullFloat64) {
	f = sql.NullFloat64{Float64: e.Fraction, Valid: e.Defined}
	lo = sql.NullFloat64{Float64: e.ErrLow, Valid: e.Defined}
	hi = sql.NullFloat64{Float64: e.ErrHigh, Valid: e.Defined}
	return
}

func writeEfficiency(tx *sql.Tx, r *Results) error {
	res := r.Efficiency
	for _, c := range []struct {
		name  string
		curve *grbeff.Curve
	}{{"nomc", res.NoMC}, {"mc", res.MC}} {
		tot := c.curve.Total()
		bkg := c.curve.Background()
		fore := c.curve.Foreground()
		for x := range tot {
			lo, hi := c.curve.Bins.Edges(x)
			dhi := sql.NullFloat64{Float64: hi, Valid: x < c.curve.Bins.N}
			bf, blo, bhi := nullEff(bkg[x])
			ff, flo, fhi := nullEff(fore[x])
			if _, err := tx.Exec(`INSERT INTO efficiency VALUES
				(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				c.name, x, lo, dhi, tot[x],
				bkg[x].Found, bf, blo, bhi,
				fore[x].Found, ff, flo, fhi); err != nil {
				return fmt.Errorf("failed to insert efficiency: %w", err)
			}
		}
	}
	for _, d := range []struct {
		name string
		d    grbeff.Distance
		pct  float64
		noMC bool
	}{
		{"sensitive", res.Sensitive, 50, true},
		{"exclusion", res.Exclusion, r.ExclusionPercentile, res.ExclusionNoMC},
	} {
		mpc := sql.NullFloat64{Float64: d.d.Mpc,
			Valid: d.d.Status == grbeff.Measured || d.d.Status == grbeff.Unbounded}
		if _, err := tx.Exec(`INSERT INTO distances VALUES (?,?,?,?,?)`,
			d.name, mpc, d.d.Status.String(), d.pct, d.noMC); err != nil {
			return fmt.Errorf("failed to insert distance: %w", err)
		}
	}
	for _, c := range res.Injections {
		var sky sql.NullFloat64
		var id sql.NullInt64
		if c.Recovered() {
			id = sql.NullInt64{Int64: r.InjTrigs[c.Trigger].ID, Valid: true}
			sky = sql.NullFloat64{Float64: c.SkyError.Rad(), Valid: true}
		}
		in := &c.Injection
		if _, err := tx.Exec(`INSERT INTO injections VALUES (?,?,?,?,?,?,?,?)`,
			in.ID, in.Time, in.Distance, c.Disposition.String(), c.Glitched,
			id, c.Stat, sky); err != nil {
			return fmt.Errorf("failed to insert injection result: %w", err)
		}
	}
	return nil
}

// ReadBackground reads the background stored in the results database at
// path.
func ReadBackground(path string) (*grbbkg.Background, error) {
	db, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT slide_id, first_trial, num_trials FROM slides
		ORDER BY slide_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slides: %w", err)
	}
	var slides, start []int
	n := 0
	for rows.Next() {
		var id, first, num int
		if err := rows.Scan(&id, &first, &num); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan slide: %w", err)
		}
		if first != n {
			rows.Close()
			return nil, fmt.Errorf("slide %d trials out of order", id)
		}
		slides = append(slides, id)
		start = append(start, first)
		n += num
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	start = append(start, n)

	rows, err = db.Query(`SELECT bestnr FROM background ORDER BY trial`)
	if err != nil {
		return nil, fmt.Errorf("failed to query background: %w", err)
	}
	defer rows.Close()
	values := make([]float64, 0, n)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan background: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) != n {
		return nil, fmt.Errorf("background has %d trials, slides account for %d",
			len(values), n)
	}
	return grbbkg.New(slides, start, values), nil
}

// ReadRunID returns the run id recorded in the results database at path.
func ReadRunID(path string) (uuid.UUID, error) {
	db, err := openExisting(path)
	if err != nil {
		return uuid.Nil, err
	}
	defer db.Close()
	var s string
	if err := db.QueryRow(`SELECT run_id FROM run`).Scan(&s); err != nil {
		return uuid.Nil, fmt.Errorf("failed to read run: %w", err)
	}
	return uuid.Parse(s)
}
