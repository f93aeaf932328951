// Package bigquery implements the pipeline store boundary on top of
// BigQuery. Transactions are streamed through the table inserter; account
// lookups and balance updates run as parameterized queries.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/finstream/bankfeed/internal/pipeline"
)

const (
	accountsTable     = "accounts"
	transactionsTable = "transactions"
)

type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// New creates a store backed by the given project and dataset. The caller
// owns the lifecycle and must Close the store when done.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("New: creating bigquery client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

func (s *Store) FindAccount(ctx context.Context, accountID string) (*pipeline.Account, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			account_name,
			currency,
			balance,
			available_balance,
			created_ts
		FROM %s
		WHERE account_id = @account_id
		LIMIT 1
	`, s.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccount: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccount: iterating: %w", err)
	}
	return fromAccountRow(&row), nil
}

func (s *Store) FirstAccount(ctx context.Context) (*pipeline.Account, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			account_name,
			currency,
			balance,
			available_balance,
			created_ts
		FROM %s
		ORDER BY created_ts ASC
		LIMIT 1
	`, s.table(accountsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FirstAccount: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FirstAccount: iterating: %w", err)
	}
	return fromAccountRow(&row), nil
}

func (s *Store) CreateAccount(ctx context.Context, account *pipeline.Account) error {
	createdTS := account.CreatedAt
	if createdTS.IsZero() {
		createdTS = time.Now().UTC()
	}

	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			account_id, account_name, currency,
			balance, available_balance, created_ts
		)
		VALUES (
			@account_id, @account_name, @currency,
			@balance, @available_balance, @created_ts
		)
	`, s.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: account.ID},
		{Name: "account_name", Value: account.Name},
		{Name: "currency", Value: account.Currency},
		{Name: "balance", Value: account.Balance.Rat()},
		{Name: "available_balance", Value: account.AvailableBalance.Rat()},
		{Name: "created_ts", Value: createdTS},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("CreateAccount: %w", err)
	}
	return nil
}

func (s *Store) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	if len(hashes) == 0 {
		return map[string]struct{}{}, nil
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT DISTINCT transaction_hash
		FROM %s
		WHERE account_id = @account_id
		  AND transaction_hash IN UNNEST(@hashes)
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "hashes", Value: hashes},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExistingHashes: reading query: %w", err)
	}

	existing := make(map[string]struct{})
	for {
		var row struct {
			Hash string `bigquery:"transaction_hash"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ExistingHashes: iterating: %w", err)
		}
		existing[row.Hash] = struct{}{}
	}
	return existing, nil
}

func (s *Store) InsertTransactions(ctx context.Context, txs []*pipeline.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, toTransactionRow(tx))
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]*pipeline.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			account_id,
			transaction_date,
			description,
			amount,
			direction,
			external_reference,
			currency,
			transaction_hash,
			created_ts
		FROM %s
		WHERE account_id = @account_id
		ORDER BY transaction_date, created_ts
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: reading query: %w", err)
	}

	var txs []*pipeline.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iterating: %w", err)
		}
		txs = append(txs, fromTransactionRow(&row))
	}
	return txs, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, accountID string, balance, available decimal.Decimal) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET balance = @balance,
		    available_balance = @available_balance
		WHERE account_id = @account_id
	`, s.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "balance", Value: balance.Rat()},
		{Name: "available_balance", Value: available.Rat()},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("UpdateAccountBalance: %w", err)
	}
	return nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
