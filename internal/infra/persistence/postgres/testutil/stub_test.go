package testutil

import (
	"context"
	"testing"
)

func TestStubUpsertSelectDelete(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	upsert := `INSERT INTO layout_state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`
	for _, payload := range []string{"v1", "v2"} {
		if _, err := db.ExecContext(ctx, upsert, "meta", []byte(payload)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	rows := conn.Rows("layout_state")
	if len(rows) != 1 || string(rows[0]["payload"].([]byte)) != "v2" {
		t.Fatalf("conflict should replace the row, got %v", rows)
	}

	var bucket string
	var payload []byte
	if err := db.QueryRowContext(ctx, `SELECT bucket, payload FROM layout_state`).Scan(&bucket, &payload); err != nil {
		t.Fatalf("select: %v", err)
	}
	if bucket != "meta" || string(payload) != "v2" {
		t.Fatalf("unexpected row %s=%s", bucket, payload)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM layout_state WHERE bucket=$1`, "meta"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(conn.Rows("layout_state")) != 0 {
		t.Fatal("delete should remove the row")
	}
}

func TestStubAdvisoryLocks(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	try := func() bool {
		var ok bool
		if err := db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, "publication").Scan(&ok); err != nil {
			t.Fatalf("try lock: %v", err)
		}
		return ok
	}
	if !try() {
		t.Fatal("first lock should succeed")
	}
	if try() {
		t.Fatal("second lock should fail while held")
	}
	if !conn.Held("publication") {
		t.Fatal("lock should be recorded as held")
	}
	var released bool
	if err := db.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, "publication").Scan(&released); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !released || conn.Held("publication") {
		t.Fatal("unlock should release the lock")
	}
}

func TestStubParseErrors(t *testing.T) {
	if _, _, err := parseSelect("SELECT 1"); err == nil {
		t.Fatal("select without FROM must fail")
	}
	if _, _, err := parseInsert("INSERT INTO t VALUES"); err == nil {
		t.Fatal("insert without columns must fail")
	}
	if _, _, err := parseDelete("DELETE FROM t"); err == nil {
		t.Fatal("delete without WHERE must fail")
	}
	table, cols, err := parseSelect("select Bucket, Payload from Layout_State where x")
	if err != nil || table != "layout_state" || len(cols) != 2 || cols[0] != "bucket" {
		t.Fatalf("unexpected parse %q %v %v", table, cols, err)
	}
}

func TestStubFailureSwitches(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	conn.FailLock = true
	var ok bool
	if err := db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, "x").Scan(&ok); err == nil {
		t.Fatal("expected lock failure")
	}
	conn.FailBegin = true
	if _, err := db.BeginTx(ctx, nil); err == nil {
		t.Fatal("expected begin failure")
	}
}
