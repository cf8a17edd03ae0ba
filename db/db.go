package db

import (
	"database/sql"
	"errors"
	"fmt"
	"minter/config"
	"minter/log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
)

var (
	db     *sql.DB
	locker uint32

	// open is replaced in tests.
	open = func() (*sql.DB, error) {
		return sql.Open("mysql", config.GetDbConnStr())
	}
	reconnectInterval = 5 * time.Second
)

// maxReconnectTimes is the number of reconnect attempts before giving up.
const maxReconnectTimes = 5

const createTables = `
CREATE TABLE IF NOT EXISTS mint_run (
	id          INT UNSIGNED NOT NULL AUTO_INCREMENT,
	label       VARCHAR(64)  NOT NULL DEFAULT '',
	contract    CHAR(42)     NOT NULL,
	owner       CHAR(42)     NOT NULL,
	mint_amount BIGINT UNSIGNED NOT NULL,
	token_index BIGINT UNSIGNED NOT NULL,
	minted_ids  TEXT         NOT NULL,
	token_uri   TEXT         NOT NULL,
	error       TEXT         NOT NULL,
	started_at  DATETIME     NOT NULL,
	finished_at DATETIME     NOT NULL,
	PRIMARY KEY (id),
	KEY idx_contract (contract)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS mint_call (
	id           INT UNSIGNED NOT NULL AUTO_INCREMENT,
	run_id       INT UNSIGNED NOT NULL,
	method       VARCHAR(32)  NOT NULL,
	tx_hash      CHAR(66)     NOT NULL,
	block_number BIGINT UNSIGNED NOT NULL,
	gas_used     BIGINT UNSIGNED NOT NULL,
	succeeded    TINYINT(1)   NOT NULL,
	PRIMARY KEY (id),
	KEY idx_run_id (run_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS mint_holder (
	id       INT UNSIGNED NOT NULL AUTO_INCREMENT,
	run_id   INT UNSIGNED NOT NULL,
	token_id VARCHAR(78)  NOT NULL,
	holder   CHAR(42)     NOT NULL,
	PRIMARY KEY (id),
	KEY idx_run_id (run_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// Enabled returns true if the database connection was initialized.
func Enabled() bool {
	return db != nil
}

// Init connects to the configured mysql database and creates missing tables.
func Init() {
	if !config.DbEnabled() {
		log.Printf("Database hostname not set, run records will not be persisted.")
		return
	}

	var err error

	db, err = open()
	if err != nil {
		panic(err)
	}

	for _, stmt := range strings.Split(createTables, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			panic(err)
		}
	}
}

func reconnect() error {
	if !atomic.CompareAndSwapUint32(&locker, 0, 1) {
		for {
			// Lock was held by others, wait till lock released.
			time.Sleep(20 * time.Millisecond)
			// Lock was released.
			if atomic.LoadUint32(&locker) != 1 {
				return nil
			}
		}
	}

	defer atomic.StoreUint32(&locker, 0)

	var err error
	for i := 1; ; i++ {
		log.Printf("Try Reconnecting to database (%d/%d)...", i, maxReconnectTimes)

		var conn *sql.DB
		conn, err = open()
		if err == nil {
			if err = conn.Ping(); err == nil {
				db = conn
				return nil
			}
			conn.Close()
		}

		if i >= maxReconnectTimes {
			return fmt.Errorf("database unreachable after %d attempts: %w", i, err)
		}

		log.Printf("Wait for few seconds to reconnect again")
		time.Sleep(reconnectInterval)
	}
}

func transact(txFunc func(*sql.Tx) error) error {
	for retryTime := 0; ; retryTime++ {
		err := transactOnce(txFunc)
		if !connErr(err) || retryTime >= maxReconnectTimes {
			return err
		}

		if err := reconnect(); err != nil {
			return err
		}
	}
}

func transactOnce(txFunc func(*sql.Tx) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	return txFunc(tx)
}

func connErr(err error) bool {
	if err == nil {
		return false
	}

	log.Println(err)

	if errors.Is(err, mysql.ErrInvalidConn) ||
		strings.HasSuffix(err.Error(), "operation timed out") ||
		strings.HasSuffix(err.Error(), "Server shutdown in progress") ||
		strings.HasPrefix(err.Error(), "Error 1290") {
		return true
	}

	return false
}
