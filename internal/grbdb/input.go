// Public domain.

// Package grbdb reads analysis tables from and writes results to SQLite
// databases.
//
// The input database is the tabular form of one GRB analysis: time slides,
// science segments, vetoes, search windows, coherent and single-detector
// triggers, and injections.  Angles are stored in radians, times in GPS
// seconds.
package grbdb

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/soniakeys/unit"
	_ "modernc.org/sqlite"

	"github.com/soniakeys/grbpost/internal/grbseg"
	"github.com/soniakeys/grbpost/internal/grbtab"
)

// Values of triggers.run.
const (
	RunOffSource = "offsource"
	RunOnSource  = "onsource"
	RunInjection = "injection"
)

// Names in search_windows.
const (
	WindowOnSource = "onsource"
	WindowBuffer   = "buffer"
)

var inputSchema = []string{
	`CREATE TABLE time_slides (
		slide_id    INTEGER NOT NULL,
		ifo         TEXT NOT NULL,
		time_offset REAL NOT NULL,
		PRIMARY KEY (slide_id, ifo)
	)`,
	`CREATE TABLE segments (
		slide_id   INTEGER NOT NULL,
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL
	)`,
	`CREATE TABLE vetoes (
		ifo        TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL
	)`,
	`CREATE TABLE search_windows (
		name       TEXT PRIMARY KEY,
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL
	)`,
	`CREATE TABLE triggers (
		run            TEXT NOT NULL,
		id             INTEGER NOT NULL,
		slide_id       INTEGER NOT NULL,
		end_time       REAL NOT NULL,
		snr            REAL NOT NULL,
		chisq          REAL DEFAULT 0,
		chisq_dof      REAL NOT NULL DEFAULT 0,
		bank_chisq     REAL DEFAULT 0,
		bank_chisq_dof REAL NOT NULL DEFAULT 0,
		cont_chisq     REAL DEFAULT 0,
		cont_chisq_dof REAL NOT NULL DEFAULT 0,
		null_snr       REAL DEFAULT 0,
		ra             REAL NOT NULL DEFAULT 0,
		dec            REAL NOT NULL DEFAULT 0,
		mass1          REAL NOT NULL DEFAULT 0,
		mass2          REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (run, id)
	)`,
	`CREATE TABLE sngl_triggers (
		run        TEXT NOT NULL,
		trigger_id INTEGER NOT NULL,
		ifo        TEXT NOT NULL,
		snr        REAL NOT NULL,
		PRIMARY KEY (run, trigger_id, ifo),
		FOREIGN KEY (run, trigger_id) REFERENCES triggers(run, id) ON DELETE CASCADE
	)`,
	`CREATE TABLE injections (
		id          INTEGER PRIMARY KEY,
		time        REAL NOT NULL,
		distance    REAL NOT NULL,
		mass1       REAL NOT NULL DEFAULT 0,
		mass2       REAL NOT NULL DEFAULT 0,
		spin1z      REAL NOT NULL DEFAULT 0,
		spin2z      REAL NOT NULL DEFAULT 0,
		inclination REAL NOT NULL DEFAULT 0,
		ra          REAL NOT NULL DEFAULT 0,
		dec         REAL NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX idx_triggers_time ON triggers(run, slide_id, end_time)`,
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// openExisting opens path, which must exist.  sqlite would otherwise
// create an empty database.
func openExisting(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return open(path)
}

func exec(tx *sql.Tx, stmts []string) error {
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// CreateInput creates an empty input database at path.  An existing file
// is not overwritten.
func CreateInput(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
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
	if err := exec(tx, inputSchema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return tx.Commit()
}

// WriteTables inserts t into the input database at path, which must have
// been created with CreateInput.
func WriteTables(path string, t *grbtab.Tables) error {
	db, err := openExisting(path)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, s := range t.Slides {
		for ifo := grbtab.Ifo(0); ifo < grbtab.NumIfo; ifo++ {
			if _, err := tx.Exec(`INSERT INTO time_slides VALUES (?,?,?)`,
				s.ID, ifo.String(), s.Offset[ifo]); err != nil {
				return fmt.Errorf("failed to insert time slide: %w", err)
			}
		}
	}
	for id, l := range t.Segments {
		for _, s := range l {
			if _, err := tx.Exec(`INSERT INTO segments VALUES (?,?,?)`,
				id, s.Start, s.End); err != nil {
				return fmt.Errorf("failed to insert segment: %w", err)
			}
		}
	}
	for ifo, l := range t.Vetoes {
		for _, s := range l {
			if _, err := tx.Exec(`INSERT INTO vetoes VALUES (?,?,?)`,
				grbtab.Ifo(ifo).String(), s.Start, s.End); err != nil {
				return fmt.Errorf("failed to insert veto: %w", err)
			}
		}
	}
	for _, w := range []struct {
		name string
		seg  grbseg.Seg
	}{{WindowOnSource, t.OnSource}, {WindowBuffer, t.Buffer}} {
		if w.seg.Empty() {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO search_windows VALUES (?,?,?)`,
			w.name, w.seg.Start, w.seg.End); err != nil {
			return fmt.Errorf("failed to insert search window: %w", err)
		}
	}
	for _, r := range []struct {
		run   string
		trigs []grbtab.Trigger
	}{{RunOffSource, t.OffSource}, {RunOnSource, t.OnTrigs}, {RunInjection, t.InjTrigs}} {
		for i := range r.trigs {
			if err := insertTrigger(tx, r.run, &r.trigs[i]); err != nil {
				return err
			}
		}
	}
	for _, in := range t.Injections {
		if _, err := tx.Exec(`INSERT INTO injections VALUES (?,?,?,?,?,?,?,?,?,?)`,
			in.ID, in.Time, in.Distance, in.Mass1, in.Mass2, in.Spin1z, in.Spin2z,
			in.Inclination.Rad(), in.RA.Rad(), in.Dec.Rad()); err != nil {
			return fmt.Errorf("failed to insert injection: %w", err)
		}
	}
	return tx.Commit()
}

// nullable maps NaN to NULL.  sqlite has no NaN and would reject it in a
// REAL column.
func nullable(x float64) any {
	if math.IsNaN(x) {
		return nil
	}
	return x
}

// nanIfNull is the inverse of nullable.
func nanIfNull(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

func insertTrigger(tx *sql.Tx, run string, t *grbtab.Trigger) error {
	_, err := tx.Exec(`
		INSERT INTO triggers
			(run, id, slide_id, end_time, snr, chisq, chisq_dof,
			 bank_chisq, bank_chisq_dof, cont_chisq, cont_chisq_dof,
			 null_snr, ra, dec, mass1, mass2)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run, t.ID, t.Slide, t.EndTime, t.SNR, nullable(t.Chisq.Value), t.Chisq.Dof,
		nullable(t.Bank.Value), t.Bank.Dof, nullable(t.Auto.Value), t.Auto.Dof,
		nullable(t.NullSNR), t.RA.Rad(), t.Dec.Rad(), t.Mass1, t.Mass2)
	if err != nil {
		return fmt.Errorf("failed to insert trigger %d: %w", t.ID, err)
	}
	for ifo := grbtab.Ifo(0); ifo < grbtab.NumIfo; ifo++ {
		if !t.Network.Has(ifo) {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO sngl_triggers VALUES (?,?,?,?)`,
			run, t.ID, ifo.String(), t.Sngl[ifo]); err != nil {
			return fmt.Errorf("failed to insert single-detector trigger: %w", err)
		}
	}
	return nil
}

// ReadTables loads the input database at path.  The result is not
// validated; call Tables.Validate.
func ReadTables(path string) (*grbtab.Tables, error) {
	db, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	t := &grbtab.Tables{Segments: map[int]grbseg.List{}}
	if err := readSlides(db, t); err != nil {
		return nil, err
	}
	if err := readSegments(db, t); err != nil {
		return nil, err
	}
	if err := readWindows(db, t); err != nil {
		return nil, err
	}
	for _, r := range []struct {
		run string
		dst *[]grbtab.Trigger
	}{{RunOffSource, &t.OffSource}, {RunOnSource, &t.OnTrigs}, {RunInjection, &t.InjTrigs}} {
		if *r.dst, err = readTriggers(db, r.run); err != nil {
			return nil, err
		}
	}
	if t.Injections, err = readInjections(db); err != nil {
		return nil, err
	}
	return t, nil
}

func readSlides(db *sql.DB, t *grbtab.Tables) error {
	rows, err := db.Query(`SELECT slide_id, ifo, time_offset FROM time_slides
		ORDER BY slide_id`)
	if err != nil {
		return fmt.Errorf("failed to query time slides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var name string
		var off float64
		if err := rows.Scan(&id, &name, &off); err != nil {
			return fmt.Errorf("failed to scan time slide: %w", err)
		}
		ifo, err := grbtab.ParseIfo(name)
		if err != nil {
			return fmt.Errorf("time slide %d: %w", id, err)
		}
		if n := len(t.Slides); n == 0 || t.Slides[n-1].ID != id {
			t.Slides = append(t.Slides, grbtab.TimeSlide{ID: id})
		}
		t.Slides[len(t.Slides)-1].Offset[ifo] = off
	}
	return rows.Err()
}

func readSegments(db *sql.DB, t *grbtab.Tables) error {
	rows, err := db.Query(`SELECT slide_id, start_time, end_time FROM segments`)
	if err != nil {
		return fmt.Errorf("failed to query segments: %w", err)
	}
	for rows.Next() {
		var id int
		var s grbseg.Seg
		if err := rows.Scan(&id, &s.Start, &s.End); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan segment: %w", err)
		}
		t.Segments[id] = append(t.Segments[id], s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for id, l := range t.Segments {
		t.Segments[id] = l.Coalesce()
	}

	rows, err = db.Query(`SELECT ifo, start_time, end_time FROM vetoes`)
	if err != nil {
		return fmt.Errorf("failed to query vetoes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var s grbseg.Seg
		if err := rows.Scan(&name, &s.Start, &s.End); err != nil {
			return fmt.Errorf("failed to scan veto: %w", err)
		}
		ifo, err := grbtab.ParseIfo(name)
		if err != nil {
			return fmt.Errorf("veto: %w", err)
		}
		t.Vetoes[ifo] = append(t.Vetoes[ifo], s)
	}
	for ifo, l := range t.Vetoes {
		t.Vetoes[ifo] = l.Coalesce()
	}
	return rows.Err()
}

func readWindows(db *sql.DB, t *grbtab.Tables) error {
	for _, w := range []struct {
		name string
		dst  *grbseg.Seg
	}{{WindowOnSource, &t.OnSource}, {WindowBuffer, &t.Buffer}} {
		err := db.QueryRow(`SELECT start_time, end_time FROM search_windows WHERE name = ?`,
			w.name).Scan(&w.dst.Start, &w.dst.End)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read %s window: %w", w.name, err)
		}
	}
	// the buffer always covers the on-source window
	if t.Buffer.Empty() {
		t.Buffer = t.OnSource
	}
	return nil
}

func readTriggers(db *sql.DB, run string) ([]grbtab.Trigger, error) {
	rows, err := db.Query(`
		SELECT id, slide_id, end_time, snr, chisq, chisq_dof,
			bank_chisq, bank_chisq_dof, cont_chisq, cont_chisq_dof,
			null_snr, ra, dec, mass1, mass2
		FROM triggers WHERE run = ? ORDER BY id`, run)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s triggers: %w", run, err)
	}
	var trigs []grbtab.Trigger
	index := map[int64]int{}
	for rows.Next() {
		var t grbtab.Trigger
		var ra, dec float64
		var chisq, bank, auto, null sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Slide, &t.EndTime, &t.SNR,
			&chisq, &t.Chisq.Dof, &bank, &t.Bank.Dof,
			&auto, &t.Auto.Dof, &null, &ra, &dec,
			&t.Mass1, &t.Mass2); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		t.Chisq.Value = nanIfNull(chisq)
		t.Bank.Value = nanIfNull(bank)
		t.Auto.Value = nanIfNull(auto)
		t.NullSNR = nanIfNull(null)
		t.RA = unit.RAFromRad(ra)
		t.Dec = unit.Angle(dec)
		index[t.ID] = len(trigs)
		trigs = append(trigs, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(`SELECT trigger_id, ifo, snr FROM sngl_triggers
		WHERE run = ?`, run)
	if err != nil {
		return nil, fmt.Errorf("failed to query single-detector triggers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		var snr float64
		if err := rows.Scan(&id, &name, &snr); err != nil {
			return nil, fmt.Errorf("failed to scan single-detector trigger: %w", err)
		}
		ifo, err := grbtab.ParseIfo(name)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", id, err)
		}
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("single-detector row for unknown %s trigger %d", run, id)
		}
		trigs[i].Network = trigs[i].Network.Add(ifo)
		trigs[i].Sngl[ifo] = snr
	}
	return trigs, rows.Err()
}

func readInjections(db *sql.DB) ([]grbtab.Injection, error) {
	rows, err := db.Query(`
		SELECT id, time, distance, mass1, mass2, spin1z, spin2z,
			inclination, ra, dec
		FROM injections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query injections: %w", err)
	}
	defer rows.Close()
	var injs []grbtab.Injection
	for rows.Next() {
		var in grbtab.Injection
		var inc, ra, dec float64
		if err := rows.Scan(&in.ID, &in.Time, &in.Distance, &in.Mass1,
			&in.Mass2, &in.Spin1z, &in.Spin2z, &inc, &ra, &dec); err != nil {
			return nil, fmt.Errorf("failed to scan injection: %w", err)
		}
		in.Inclination = unit.Angle(inc)
		in.RA = unit.RAFromRad(ra)
		in.Dec = unit.Angle(dec)
		injs = append(injs, in)
	}
	return injs, rows.Err()
}
