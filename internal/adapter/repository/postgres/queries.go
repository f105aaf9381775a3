package postgres

const (
	createCardSQL = `INSERT INTO cards (owner_id, number, pin, balance) VALUES ($1, $2, $3, $4)`

	getCardSQL = `SELECT owner_id, number, pin, balance FROM cards WHERE number = $1`

	depositSQL = `UPDATE cards SET balance = balance + $1 WHERE number = $2`

	lockCardSQL = `SELECT number FROM cards WHERE number = $1 FOR UPDATE`

	debitSQL = `UPDATE cards SET balance = balance - $1 WHERE number = $2 AND balance >= $1`

	creditSQL = `UPDATE cards SET balance = balance + $1 WHERE number = $2`

	lockOwnerSQL = `SELECT balance FROM cards WHERE owner_id = $1 FOR UPDATE`

	deleteOwnerSQL = `DELETE FROM cards WHERE owner_id = $1`
)
