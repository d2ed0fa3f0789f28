package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/pipeline"
)

const analysisColumns = `hash, label, p1_name, p2_name, source, frame_count, fps, analyzed_at,
	window_count, plus_on_block, minus_on_block, avg_on_block, median_on_block,
	whiffs, whiff_punishable, jumps, jump_punishable, drive_impacts`

var childTables = []string{"frames", "attack_windows", "events", "punishable_jumps", "insights"}

// AnalysisExists returns true if an analysis with the given hash is already stored.
func (db *DB) AnalysisExists(hash string) (bool, error) {
	var count int
	err := db.queryRow("SELECT COUNT(1) FROM analyses WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertAnalysis upserts the summary row and replaces every child row of the
// analysis in one transaction.
func (db *DB) InsertAnalysis(rec model.AnalysisRecord, a *pipeline.Analysis) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(db.rebind(`
		INSERT INTO analyses(`+analysisColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(hash) DO UPDATE SET
			label = excluded.label, p1_name = excluded.p1_name, p2_name = excluded.p2_name,
			source = excluded.source, frame_count = excluded.frame_count, fps = excluded.fps,
			analyzed_at = excluded.analyzed_at, window_count = excluded.window_count,
			plus_on_block = excluded.plus_on_block, minus_on_block = excluded.minus_on_block,
			avg_on_block = excluded.avg_on_block, median_on_block = excluded.median_on_block,
			whiffs = excluded.whiffs, whiff_punishable = excluded.whiff_punishable,
			jumps = excluded.jumps, jump_punishable = excluded.jump_punishable,
			drive_impacts = excluded.drive_impacts`),
		rec.Hash, rec.Label, rec.P1Name, rec.P2Name, rec.Source, rec.FrameCount, rec.FPS, rec.AnalyzedAt,
		rec.WindowCount, rec.PlusOnBlock, rec.MinusOnBlock, rec.AvgOnBlock, rec.MedianOnBlock,
		rec.Whiffs, rec.WhiffPunishable, rec.Jumps, rec.JumpPunishable, rec.DriveImpacts,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", rec.ShortHash(), err)
	}

	for _, table := range childTables {
		if _, err := tx.Exec(db.rebind("DELETE FROM "+table+" WHERE analysis_hash = ?"), rec.Hash); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := db.insertFrames(tx, rec.Hash, a.Frames); err != nil {
		return err
	}
	if err := db.insertWindows(tx, rec.Hash, a.Result.Windows); err != nil {
		return err
	}
	if err := db.insertEvents(tx, rec.Hash, a.Events); err != nil {
		return err
	}
	if err := db.insertJumps(tx, rec.Hash, a.Result.Summary.PunishableJumps); err != nil {
		return err
	}
	if err := db.insertInsights(tx, rec.Hash, a.Insights); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) insertFrames(tx *sql.Tx, hash string, frames []model.FrameSnapshot) error {
	stmt, err := tx.Prepare(db.rebind(`
		INSERT INTO frames(
			analysis_hash, frame_id, ts, p1_state, p2_state,
			p1_can_act, p2_can_act, life_p1, life_p2, p1_action, p2_action
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		_, err = stmt.Exec(
			hash, f.FrameID, f.Timestamp, string(f.P1.State), string(f.P2.State),
			boolInt(f.P1.CanAct), boolInt(f.P2.CanAct), f.P1.Life, f.P2.Life, f.P1.Action, f.P2.Action,
		)
		if err != nil {
			return fmt.Errorf("insert frame %d: %w", f.FrameID, err)
		}
	}
	return nil
}

func (db *DB) insertWindows(tx *sql.Tx, hash string, windows []model.AttackWindow) error {
	stmt, err := tx.Prepare(db.rebind(`
		INSERT INTO attack_windows(
			analysis_hash, seq, attacker, start_frame, end_frame,
			on_block_adv, whiff, punishable, source
		) VALUES (?,?,?,?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, w := range windows {
		var end sql.NullInt64
		if w.End != nil {
			end = sql.NullInt64{Int64: int64(*w.End), Valid: true}
		}
		_, err = stmt.Exec(
			hash, i, string(w.Attacker), w.Start, end,
			w.OnBlockAdv, boolInt(w.Whiff), boolInt(w.Punishable), string(w.Source),
		)
		if err != nil {
			return fmt.Errorf("insert attack_window %s@%d: %w", w.Attacker, w.Start, err)
		}
	}
	return nil
}

func (db *DB) insertEvents(tx *sql.Tx, hash string, evs []model.Event) error {
	stmt, err := tx.Prepare(db.rebind(`
		INSERT INTO events(analysis_hash, seq, event_type, frame_id, attacker, defender)
		VALUES (?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range evs {
		if _, err = stmt.Exec(hash, i, string(e.Type), e.FrameID, string(e.Attacker), string(e.Defender)); err != nil {
			return fmt.Errorf("insert event %s@%d: %w", e.Type, e.FrameID, err)
		}
	}
	return nil
}

func (db *DB) insertJumps(tx *sql.Tx, hash string, jumps []model.PunishableJump) error {
	stmt, err := tx.Prepare(db.rebind(`
		INSERT INTO punishable_jumps(analysis_hash, seq, player, start_frame, land_frame, punishable)
		VALUES (?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, j := range jumps {
		if _, err = stmt.Exec(hash, i, string(j.Player), j.Start, j.Land, boolInt(j.Punishable)); err != nil {
			return fmt.Errorf("insert punishable_jump %s@%d: %w", j.Player, j.Start, err)
		}
	}
	return nil
}

func (db *DB) insertInsights(tx *sql.Tx, hash string, msgs []string) error {
	stmt, err := tx.Prepare(db.rebind(`INSERT INTO insights(analysis_hash, seq, message) VALUES (?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range msgs {
		if _, err = stmt.Exec(hash, i, m); err != nil {
			return fmt.Errorf("insert insight: %w", err)
		}
	}
	return nil
}

// DeleteAnalysis removes an analysis and all of its child rows. It reports
// whether a row was deleted.
func (db *DB) DeleteAnalysis(hash string) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	for _, table := range childTables {
		if _, err := tx.Exec(db.rebind("DELETE FROM "+table+" WHERE analysis_hash = ?"), hash); err != nil {
			return false, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	res, err := tx.Exec(db.rebind("DELETE FROM analyses WHERE hash = ?"), hash)
	if err != nil {
		return false, fmt.Errorf("delete analysis: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}

func scanAnalysis(sc interface{ Scan(...any) error }) (model.AnalysisRecord, error) {
	var r model.AnalysisRecord
	err := sc.Scan(&r.Hash, &r.Label, &r.P1Name, &r.P2Name, &r.Source, &r.FrameCount, &r.FPS, &r.AnalyzedAt,
		&r.WindowCount, &r.PlusOnBlock, &r.MinusOnBlock, &r.AvgOnBlock, &r.MedianOnBlock,
		&r.Whiffs, &r.WhiffPunishable, &r.Jumps, &r.JumpPunishable, &r.DriveImpacts)
	return r, err
}

// ListAnalyses returns all stored analyses ordered by analyzed_at desc.
func (db *DB) ListAnalyses() ([]model.AnalysisRecord, error) {
	return db.listAnalyses("SELECT " + analysisColumns + " FROM analyses ORDER BY analyzed_at DESC, hash")
}

// GetTrend returns the most recent limit analyses (all when limit <= 0) in
// chronological order.
func (db *DB) GetTrend(limit int) ([]model.AnalysisRecord, error) {
	recs, err := db.ListAnalyses()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (db *DB) listAnalyses(q string, args ...any) ([]model.AnalysisRecord, error) {
	rows, err := db.query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AnalysisRecord
	for rows.Next() {
		r, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetAnalysisByPrefix finds the first analysis whose hash starts with the given prefix.
func (db *DB) GetAnalysisByPrefix(prefix string) (*model.AnalysisRecord, error) {
	r, err := scanAnalysis(db.queryRow(
		"SELECT "+analysisColumns+" FROM analyses WHERE hash LIKE ? ORDER BY hash LIMIT 1", prefix+"%"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetFrames returns the stored timeline of an analysis in frame order.
func (db *DB) GetFrames(hash string) ([]model.FrameSnapshot, error) {
	rows, err := db.query(`
		SELECT frame_id, ts, p1_state, p2_state, p1_can_act, p2_can_act, life_p1, life_p2, p1_action, p2_action
		FROM frames WHERE analysis_hash = ? ORDER BY frame_id`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FrameSnapshot
	for rows.Next() {
		var (
			f            model.FrameSnapshot
			p1, p2       string
			p1Act, p2Act int
		)
		if err := rows.Scan(&f.FrameID, &f.Timestamp, &p1, &p2, &p1Act, &p2Act,
			&f.P1.Life, &f.P2.Life, &f.P1.Action, &f.P2.Action); err != nil {
			return nil, err
		}
		f.P1.State, f.P2.State = model.State(p1), model.State(p2)
		f.P1.CanAct, f.P2.CanAct = p1Act != 0, p2Act != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetWindows returns the attack windows of an analysis in result order.
func (db *DB) GetWindows(hash string) ([]model.AttackWindow, error) {
	rows, err := db.query(`
		SELECT attacker, start_frame, end_frame, on_block_adv, whiff, punishable, source
		FROM attack_windows WHERE analysis_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AttackWindow, 0)
	for rows.Next() {
		var (
			w                 model.AttackWindow
			attacker, source  string
			end               sql.NullInt64
			whiff, punishable int
		)
		if err := rows.Scan(&attacker, &w.Start, &end, &w.OnBlockAdv, &whiff, &punishable, &source); err != nil {
			return nil, err
		}
		w.Attacker = model.Side(attacker)
		w.Source = model.WindowSource(source)
		w.Whiff, w.Punishable = whiff != 0, punishable != 0
		if end.Valid {
			v := int(end.Int64)
			w.End = &v
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetEvents returns the detected events of an analysis in detection order.
func (db *DB) GetEvents(hash string) ([]model.Event, error) {
	rows, err := db.query(`
		SELECT event_type, frame_id, attacker, defender
		FROM events WHERE analysis_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var (
			e                       model.Event
			typ, attacker, defender string
		)
		if err := rows.Scan(&typ, &e.FrameID, &attacker, &defender); err != nil {
			return nil, err
		}
		e.Type, e.Attacker, e.Defender = model.EventType(typ), model.Side(attacker), model.Side(defender)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetPunishableJumps returns every jump of an analysis in frame order.
func (db *DB) GetPunishableJumps(hash string) ([]model.PunishableJump, error) {
	rows, err := db.query(`
		SELECT player, start_frame, land_frame, punishable
		FROM punishable_jumps WHERE analysis_hash = ? ORDER BY seq`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.PunishableJump, 0)
	for rows.Next() {
		var (
			j          model.PunishableJump
			player     string
			punishable int
		)
		if err := rows.Scan(&player, &j.Start, &j.Land, &punishable); err != nil {
			return nil, err
		}
		j.Player, j.Punishable = model.Side(player), punishable != 0
		out = append(out, j)
	}
	return out, rows.Err()
}

// GetInsights returns the insight messages of an analysis in priority order.
func (db *DB) GetInsights(hash string) ([]string, error) {
	rows, err := db.query("SELECT message FROM insights WHERE analysis_hash = ? ORDER BY seq", hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadResult rebuilds the engine result of a stored analysis. It returns
// (nil, nil) when the hash is unknown.
func (db *DB) LoadResult(hash string) (*model.Result, error) {
	rec, err := db.GetAnalysisByPrefix(hash)
	if err != nil || rec == nil {
		return nil, err
	}
	windows, err := db.GetWindows(rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	jumps, err := db.GetPunishableJumps(rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("load jumps: %w", err)
	}
	evs, err := db.GetEvents(rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	s := model.Summary{
		PlusOnBlock:     rec.PlusOnBlock,
		MinusOnBlock:    rec.MinusOnBlock,
		AvgOnBlock:      rec.AvgOnBlock,
		MedianOnBlock:   rec.MedianOnBlock,
		PunishableJumps: jumps,
		DriveImpacts:    make([]model.Event, 0),
		WhiffPunishes:   make([]model.AttackWindow, 0),
	}
	for _, w := range windows {
		if w.IsWhiff() {
			s.WhiffPunishes = append(s.WhiffPunishes, w)
		}
	}
	for _, e := range evs {
		if e.Type == model.EventDriveImpact {
			s.DriveImpacts = append(s.DriveImpacts, e)
		}
	}
	return &model.Result{Windows: windows, Summary: s}, nil
}

// LoadAnalysis reassembles the stored analysis matching prefix. It returns
// (nil, nil, nil) when nothing matches.
func (db *DB) LoadAnalysis(prefix string) (*model.AnalysisRecord, *pipeline.Analysis, error) {
	rec, err := db.GetAnalysisByPrefix(prefix)
	if err != nil || rec == nil {
		return nil, nil, err
	}
	res, err := db.LoadResult(rec.Hash)
	if err != nil {
		return nil, nil, err
	}
	frames, err := db.GetFrames(rec.Hash)
	if err != nil {
		return nil, nil, fmt.Errorf("load frames: %w", err)
	}
	evs, err := db.GetEvents(rec.Hash)
	if err != nil {
		return nil, nil, fmt.Errorf("load events: %w", err)
	}
	msgs, err := db.GetInsights(rec.Hash)
	if err != nil {
		return nil, nil, fmt.Errorf("load insights: %w", err)
	}
	return rec, &pipeline.Analysis{
		Hash:     rec.Hash,
		Frames:   frames,
		Events:   evs,
		Result:   *res,
		Insights: msgs,
	}, nil
}

// GetOverview returns totals across all stored analyses.
func (db *DB) GetOverview() (model.DBOverview, error) {
	var o model.DBOverview
	err := db.queryRow(`
		SELECT COUNT(1),
		       COALESCE(SUM(frame_count), 0), COALESCE(SUM(window_count), 0),
		       COALESCE(SUM(whiffs), 0), COALESCE(SUM(jumps), 0),
		       COALESCE(MIN(analyzed_at), ''), COALESCE(MAX(analyzed_at), '')
		FROM analyses`).
		Scan(&o.TotalAnalyses, &o.TotalFrames, &o.TotalWindows, &o.TotalWhiffs, &o.TotalJumps, &o.Earliest, &o.Latest)
	return o, err
}

// GetPlayerAggregate sums a named player's stats over every analysis where
// they played either side. Names match case-insensitively. It returns
// (nil, nil) when the player appears in no analysis.
func (db *DB) GetPlayerAggregate(name string) (*model.PlayerAggregate, error) {
	rows, err := db.query(`
		SELECT hash, CASE WHEN LOWER(p1_name) = LOWER(?) THEN 'P1' ELSE 'P2' END
		FROM analyses
		WHERE LOWER(p1_name) = LOWER(?) OR LOWER(p2_name) = LOWER(?)
		ORDER BY analyzed_at`, name, name, name)
	if err != nil {
		return nil, err
	}
	type appearance struct{ hash, side string }
	var apps []appearance
	for rows.Next() {
		var a appearance
		if err := rows.Scan(&a.hash, &a.side); err != nil {
			rows.Close()
			return nil, err
		}
		apps = append(apps, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}

	agg := &model.PlayerAggregate{Name: name, Analyses: len(apps)}
	for _, a := range apps {
		var windows, plus, minus, advSum, whiffs, whiffPun int
		err := db.queryRow(`
			SELECT COALESCE(SUM(CASE WHEN whiff = 0 THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN whiff = 0 AND on_block_adv > 0 THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN whiff = 0 AND on_block_adv < 0 THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN whiff = 0 THEN on_block_adv ELSE 0 END), 0),
			       COALESCE(SUM(whiff), 0),
			       COALESCE(SUM(CASE WHEN whiff = 1 AND punishable = 1 THEN 1 ELSE 0 END), 0)
			FROM attack_windows WHERE analysis_hash = ? AND attacker = ?`, a.hash, a.side).
			Scan(&windows, &plus, &minus, &advSum, &whiffs, &whiffPun)
		if err != nil {
			return nil, fmt.Errorf("aggregate windows for %s: %w", a.hash, err)
		}

		var jumps, jumpPun, drives int
		err = db.queryRow(`
			SELECT COUNT(1), COALESCE(SUM(punishable), 0)
			FROM punishable_jumps WHERE analysis_hash = ? AND player = ?`, a.hash, a.side).
			Scan(&jumps, &jumpPun)
		if err != nil {
			return nil, fmt.Errorf("aggregate jumps for %s: %w", a.hash, err)
		}
		err = db.queryRow(`
			SELECT COUNT(1) FROM events
			WHERE analysis_hash = ? AND event_type = ? AND attacker = ?`,
			a.hash, string(model.EventDriveImpact), a.side).Scan(&drives)
		if err != nil {
			return nil, fmt.Errorf("aggregate drive impacts for %s: %w", a.hash, err)
		}

		agg.Windows += windows
		agg.PlusOnBlock += plus
		agg.MinusOnBlock += minus
		agg.AdvSum += advSum
		agg.Whiffs += whiffs
		agg.WhiffPunishable += whiffPun
		agg.Jumps += jumps
		agg.JumpPunishable += jumpPun
		agg.DriveImpacts += drives
	}
	return agg, nil
}

// QueryRaw runs an arbitrary read query and returns column names and
// stringified rows. NULL values render as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = strings.TrimSpace(fmt.Sprint(x))
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
