package db

import (
	"database/sql"
	"minter/token"
)

const insertRun = "INSERT INTO `mint_run` (`label`, `contract`, `owner`, `mint_amount`, `token_index`, `minted_ids`, `token_uri`, `error`, `started_at`, `finished_at`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

const insertCall = "INSERT INTO `mint_call` (`run_id`, `method`, `tx_hash`, `block_number`, `gas_used`, `succeeded`) VALUES (?, ?, ?, ?, ?, ?)"

const insertHolder = "INSERT INTO `mint_holder` (`run_id`, `token_id`, `holder`) VALUES (?, ?, ?)"

// SaveRun persists the run with all its calls in one transaction.
func SaveRun(r *token.Run) error {
	return transact(func(tx *sql.Tx) error {
		return saveRun(tx, r)
	})
}

func saveRun(tx *sql.Tx, r *token.Run) error {
	res, err := tx.Exec(insertRun, runArgs(r)...)
	if err != nil {
		return err
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint(runID)

	for _, c := range r.Calls {
		c.RunID = r.ID
		res, err := tx.Exec(insertCall, callArgs(c)...)
		if err != nil {
			return err
		}

		callID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint(callID)
	}

	for _, h := range r.Holders {
		if _, err := tx.Exec(insertHolder, holderArgs(r.ID, h)...); err != nil {
			return err
		}
	}

	return nil
}

func runArgs(r *token.Run) []interface{} {
	return []interface{}{
		r.Label,
		r.Contract.Hex(),
		r.Owner.Hex(),
		r.MintAmount,
		r.TokenIndex,
		r.MintedIDsString(),
		r.TokenURI,
		r.Err,
		r.StartedAt,
		r.FinishedAt,
	}
}

func callArgs(c *token.Call) []interface{} {
	return []interface{}{
		c.RunID,
		c.Method,
		c.TxHash.Hex(),
		c.BlockNumber,
		c.GasUsed,
		c.Succeeded,
	}
}

func holderArgs(runID uint, h token.Holder) []interface{} {
	return []interface{}{
		runID,
		h.TokenID.String(),
		h.Owner.Hex(),
	}
}
