package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	tick := fs.Uint64("tick", 0, "snapshot tick (optional; defaults to latest)")
	limit := fs.Int("limit", 20, "result limit")
	action := fs.String("action", "", "action filter (audits)")
	pos := fs.String("pos", "", "x,y,z filter (audits, inputs)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	f := queryFilter{Tick: *tick, Limit: *limit, Action: strings.TrimSpace(*action)}
	if strings.TrimSpace(*pos) != "" {
		p, err := parseVec3(*pos)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -pos:", err)
			os.Exit(2)
		}
		f.Pos = &p
	}
	if err := runQuery(db, q, f, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-tick T] snapshots|mechanisms|audits|inputs")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type queryFilter struct {
	Tick   uint64
	Limit  int
	Action string
	Pos    *[3]int
}

func runQuery(db *sql.DB, q string, f queryFilter, out io.Writer) error {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,height,chunks,switches,mechanisms FROM snapshots ORDER BY tick DESC LIMIT ?`, f.Limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick       int64  `json:"tick"`
				Path       string `json:"path"`
				Height     int    `json:"height"`
				Chunks     int    `json:"chunks"`
				Switches   int    `json:"switches"`
				Mechanisms int    `json:"mechanisms"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Height, &r.Chunks, &r.Switches, &r.Mechanisms); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			writeJSON(out, r)
		}
		return rows.Err()

	case "mechanisms":
		tick := f.Tick
		if tick == 0 {
			lt, err := latestSnapshotTick(db)
			if err != nil {
				return fmt.Errorf("latest tick: %w", err)
			}
			if lt == 0 {
				return fmt.Errorf("no snapshots found")
			}
			tick = lt
		}
		rows, err := db.Query(`SELECT x,y,z,facing,extended,speed,needsrs,powered,buffered FROM snapshot_mechanisms WHERE tick=? ORDER BY x,y,z`, tick)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     uint64 `json:"tick"`
				Pos      [3]int `json:"pos"`
				Facing   string `json:"facing"`
				Extended int    `json:"extended"`
				Speed    int    `json:"speed"`
				NeedsRS  bool   `json:"needsrs"`
				Powered  bool   `json:"powered"`
				Buffered int    `json:"buffered"`
			}
			if err := rows.Scan(&r.Pos[0], &r.Pos[1], &r.Pos[2], &r.Facing, &r.Extended, &r.Speed, &r.NeedsRS, &r.Powered, &r.Buffered); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			r.Tick = tick
			writeJSON(out, r)
		}
		return rows.Err()

	case "audits":
		where, args := []string{}, []any{}
		if f.Action != "" {
			where = append(where, "action=?")
			args = append(args, f.Action)
		}
		if f.Pos != nil {
			where = append(where, "x=? AND y=? AND z=?")
			args = append(args, f.Pos[0], f.Pos[1], f.Pos[2])
		}
		stmt := `SELECT tick,actor,action,x,y,z,from_block,to_block,COALESCE(reason,'') FROM audits`
		if len(where) > 0 {
			stmt += " WHERE " + strings.Join(where, " AND ")
		}
		stmt += " ORDER BY tick DESC, seq DESC LIMIT ?"
		args = append(args, f.Limit)
		rows, err := db.Query(stmt, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   uint64 `json:"tick"`
				Actor  string `json:"actor"`
				Action string `json:"action"`
				Pos    [3]int `json:"pos"`
				From   int    `json:"from"`
				To     int    `json:"to"`
				Reason string `json:"reason,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Actor, &r.Action, &r.Pos[0], &r.Pos[1], &r.Pos[2], &r.From, &r.To, &r.Reason); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			writeJSON(out, r)
		}
		return rows.Err()

	case "inputs":
		stmt := `SELECT tick,seq,kind,source,input_json FROM inputs`
		args := []any{}
		if f.Pos != nil {
			stmt += ` WHERE x=? AND y=? AND z=?`
			args = append(args, f.Pos[0], f.Pos[1], f.Pos[2])
		}
		stmt += ` ORDER BY tick DESC, seq DESC LIMIT ?`
		args = append(args, f.Limit)
		rows, err := db.Query(stmt, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   uint64          `json:"tick"`
				Seq    int             `json:"seq"`
				Kind   string          `json:"kind"`
				Source string          `json:"source"`
				Input  json.RawMessage `json:"input"`
			}
			var raw string
			if err := rows.Scan(&r.Tick, &r.Seq, &r.Kind, &r.Source, &raw); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			r.Input = json.RawMessage(raw)
			writeJSON(out, r)
		}
		return rows.Err()
	}
	return fmt.Errorf("unknown query: %s", q)
}

func latestSnapshotTick(db *sql.DB) (uint64, error) {
	if db == nil {
		return 0, fmt.Errorf("nil db")
	}
	var t int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(tick),0) FROM snapshots`).Scan(&t); err != nil {
		return 0, err
	}
	if t < 0 {
		return 0, nil
	}
	return uint64(t), nil
}

func printJSON(v any) { writeJSON(os.Stdout, v) }

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
